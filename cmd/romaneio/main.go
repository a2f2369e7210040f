package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cache"
	"romaneio-service/internal/config"
	"romaneio-service/internal/database"
	"romaneio-service/internal/export"
	"romaneio-service/internal/handlers"
	"romaneio-service/internal/middleware"
	"romaneio-service/internal/repository"
	"romaneio-service/internal/romaneio"
	"romaneio-service/internal/routes"
	"romaneio-service/internal/services"
	"romaneio-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Version = "1.0.0"
	appName = "romaneio-service"

	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Romaneio (packing list) service for barcode stations",
		Long: `romaneio-service atiende estaciones de despacho: lectura de códigos,
carrito por estación, cierre del romaneio contra el backend de inventario
y exportación en texto, WhatsApp, A4 o térmica.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), historyCmd(), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg.Logging.Level, cfg.Server.GinMode)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		format string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "history <batch-id>",
		Short: "Render a finalized romaneio from the journal or the movement history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := args[0]
			if !romaneio.IsBatchID(batchID) {
				return fmt.Errorf("invalid batch id %q", batchID)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger("warn", gin.ReleaseMode)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			if token != "" {
				ctx = apiclient.WithToken(ctx, token)
			}

			deps, err := buildDeps(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer deps.close()

			doc, err := deps.station.Document(ctx, batchID)
			if err != nil {
				return fmt.Errorf("load romaneio %s: %w", batchID, err)
			}

			out, err := export.Render(*doc, export.Format(format))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Body)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatText), "Output format (text, whatsapp, a4, thermal)")
	cmd.Flags().StringVar(&token, "token", os.Getenv("ROMANEIO_API_TOKEN"), "Backend bearer token, needed when the batch is not in the journal")
	return cmd
}

// newLogger JSON en release, consola con colores en debug
func newLogger(level, ginMode string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if ginMode == gin.DebugMode {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}

// deps dependencias compartidas por serve y history
type deps struct {
	postgres     *database.PostgresDB
	redis        *database.RedisDB
	journal      repository.JournalRepository
	tokens       session.TokenStore
	productCache *cache.ProductCache
	api          *apiclient.Client
	catalog      services.CatalogService
	station      services.StationService
	monitoring   services.MonitoringService
}

// buildDeps Postgres y Redis son opcionales: sin URL o sin conexión se usa
// el journal y las sesiones en memoria
func buildDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	if cfg.Database.URL != "" {
		pg, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("⚠️ PostgreSQL no disponible, journal en memoria", zap.Error(err))
		} else {
			journal, err := repository.NewJournalRepository(ctx, pg.DB)
			if err != nil {
				pg.Close()
				return nil, fmt.Errorf("init journal repository: %w", err)
			}
			d.postgres, d.journal = pg, journal
		}
	}
	if d.journal == nil {
		d.journal = repository.NewMemoryJournal()
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("⚠️ Redis no disponible, caché solo L1 y sesiones en memoria", zap.Error(err))
		} else {
			d.redis, redisClient = rdb, rdb.Client
		}
	}
	if redisClient != nil {
		d.tokens = session.NewRedisTokenStore(redisClient, cfg.Redis.SessionTTL)
	} else {
		d.tokens = session.NewMemoryTokenStore()
	}

	d.productCache = cache.NewProductCache(redisClient, cfg.Cache.MaxL1Size, cfg.Cache.TTL, logger)
	d.api = apiclient.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)

	d.monitoring = services.NewMonitoringService(logger, cfg, d.redis, d.postgres, d.productCache)
	d.catalog = services.NewCatalogService(d.api, d.productCache, logger)
	d.station = services.NewStationService(d.catalog, d.api, d.journal, d.monitoring, logger)
	d.monitoring.TrackStations(d.station.ActiveStations)

	return d, nil
}

func (d *deps) close() {
	d.productCache.Close()
	_ = d.journal.Close()
	if d.postgres != nil {
		_ = d.postgres.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

func (d *deps) modes() (journal, cacheMode string) {
	journal, cacheMode = "memory", "L1 (memory)"
	if d.postgres != nil {
		journal = "PostgreSQL"
	}
	if d.redis != nil {
		cacheMode = "L1 + Redis"
	}
	return journal, cacheMode
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	monitoringHandler := handlers.NewMonitoringHandler(d.monitoring, logger)
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.Use(monitoringHandler.RecordRequestMiddleware())

	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(d.api, d.tokens, logger),
		Cart:       handlers.NewCartHandler(d.station, logger),
		Catalog:    handlers.NewCatalogHandler(d.catalog, d.productCache, logger),
		Export:     handlers.NewExportHandler(d.station, logger),
		StationWS:  handlers.NewStationWSHandler(d.station, d.catalog, cfg.Scanner, cfg.Search, logger),
		Monitoring: monitoringHandler,
	}
	healthChecker := middleware.NewHealthChecker(d.postgres, d.redis, d.api, logger)
	routes.SetupRoutes(router, h, healthChecker, d.tokens, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		journal, cacheMode := d.modes()
		middleware.ServerInfo(cfg.Server.Port, cfg.API.BaseURL, journal, cacheMode, logger)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case s := <-sig:
		logger.Info("🛑 Apagando servidor", zap.String("signal", s.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("❌ Error en apagado ordenado", zap.Error(err))
		return err
	}

	logger.Info("✅ Servidor detenido")
	return nil
}

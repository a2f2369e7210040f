package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cache"
	"romaneio-service/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Límite de la búsqueda por código compartida entre lectores
const sharedLookupTimeout = 10 * time.Second

type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Resolution resultado de resolver un código leído. Degraded indica que
// algún paso falló por red o por el backend y no por falta de coincidencia.
type Resolution struct {
	Code       string
	Outcome    Outcome
	Product    *models.Product
	Candidates []models.Product
	Degraded   bool
	Source     string
}

// CatalogAPI operaciones de lectura del backend que usa el catálogo
type CatalogAPI interface {
	GetProductByBarcode(ctx context.Context, code string) (*models.Product, error)
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]models.Product, error)
	ListProducts(ctx context.Context, f models.ProductFilter) (*models.ProductPage, error)
	StockLevels(ctx context.Context) ([]models.StockLevel, error)
	ListClients(ctx context.Context, search string) ([]models.Client, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	PlanUsage(ctx context.Context) (*models.PlanUsage, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	CreateClient(ctx context.Context, in models.ClientInput) (*models.Client, error)
}

// ErrNameRequired alta de producto o cliente sin nombre
var ErrNameRequired = errors.New("name is required")

// CatalogService define la búsqueda de productos y datos auxiliares
type CatalogService interface {
	ResolveCode(ctx context.Context, code string) *Resolution
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	SearchProducts(ctx context.Context, query string) ([]models.Product, error)
	SearchClients(ctx context.Context, query string) ([]models.Client, error)
	CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
	CreateClient(ctx context.Context, req models.CreateClientRequest) (*models.Client, error)
	StockLevels(ctx context.Context) ([]models.StockLevel, error)
	Categories(ctx context.Context) ([]models.Category, error)
	PlanUsage(ctx context.Context) (*models.PlanUsage, error)
	WarmCache(ctx context.Context) (int, error)
}

type catalogService struct {
	api    CatalogAPI
	cache  *cache.ProductCache
	group  singleflight.Group
	logger *zap.Logger
}

func NewCatalogService(api CatalogAPI, productCache *cache.ProductCache, logger *zap.Logger) CatalogService {
	return &catalogService{
		api:    api,
		cache:  productCache,
		logger: logger,
	}
}

// ResolveCode sigue la cadena caché -> código de barras -> búsqueda por texto.
// No toca el carrito: solo informa el resultado.
func (s *catalogService) ResolveCode(ctx context.Context, code string) *Resolution {
	start := time.Now()
	code = strings.TrimSpace(code)
	res := &Resolution{Code: code, Outcome: OutcomeNotFound}
	if code == "" {
		return res
	}

	logger := s.logger.With(
		zap.String("operation", "resolve_code"),
		zap.String("code", code),
	)

	// 1. Caché multi-nivel
	if product, err := s.cache.GetProduct(ctx, code); err == nil {
		res.Outcome, res.Product, res.Source = OutcomeResolved, product, "cache"
		logger.Debug("🔍 Código resuelto desde caché", zap.Duration("latency", time.Since(start)))
		return res
	}

	// 2. Búsqueda exacta por código de barras; lecturas simultáneas de la
	// misma cuenta comparten la llamada
	var (
		v      interface{}
		err    error
		shared bool
	)
	key := fmt.Sprintf("barcode:%d:%s", cache.AccountFrom(ctx), code)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// la llamada compartida no depende de la cancelación del primer lector
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return s.api.GetProductByBarcode(lookupCtx, code)
	})
	select {
	case r := <-ch:
		v, err, shared = r.Val, r.Err, r.Shared
	case <-ctx.Done():
		logger.Debug("Lectura cancelada por el cliente", zap.Error(ctx.Err()))
		return res
	}
	if err == nil {
		product := v.(*models.Product)
		if cacheErr := s.cache.SetProduct(ctx, code, product); cacheErr != nil {
			logger.Warn("Error cacheando producto", zap.Error(cacheErr))
		}
		res.Outcome, res.Product, res.Source = OutcomeResolved, product, "barcode"
		logger.Info("✅ Producto encontrado por código de barras",
			zap.Int("product_id", product.ID),
			zap.Bool("shared", shared),
			zap.Duration("latency", time.Since(start)))
		return res
	}
	if !apiclient.IsNotFound(err) {
		res.Degraded = true
		logger.Warn("⚠️ Falla en búsqueda por código de barras, se intenta por texto", zap.Error(err))
	}

	// 3. Búsqueda por texto
	items, err := s.api.SearchProducts(ctx, code)
	if err != nil {
		res.Degraded = true
		logger.Warn("⚠️ Falla en búsqueda por texto", zap.Error(err))
		return res
	}

	switch len(items) {
	case 0:
		logger.Info("❌ Código no registrado", zap.Duration("latency", time.Since(start)))
	case 1:
		product := items[0]
		res.Outcome, res.Product, res.Source = OutcomeResolved, &product, "search"
		if product.BarcodeValue() == code {
			_ = s.cache.SetProduct(ctx, code, &product)
		}
		logger.Info("✅ Producto encontrado por búsqueda", zap.Int("product_id", product.ID))
	default:
		res.Outcome, res.Candidates = OutcomeAmbiguous, items
		logger.Info("🔀 Código ambiguo", zap.Int("candidates", len(items)))
	}
	return res
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	return s.api.GetProduct(ctx, id)
}

func (s *catalogService) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	return s.api.SearchProducts(ctx, strings.TrimSpace(query))
}

func (s *catalogService) SearchClients(ctx context.Context, query string) ([]models.Client, error) {
	return s.api.ListClients(ctx, strings.TrimSpace(query))
}

// CreateProduct da de alta el producto y lo deja en caché por su código,
// así la próxima lectura se resuelve sin ir al backend
func (s *catalogService) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	product, err := s.api.CreateProduct(ctx, req.Input())
	if err != nil {
		return nil, err
	}

	if code := product.BarcodeValue(); code != "" {
		if err := s.cache.SetProduct(ctx, code, product); err != nil {
			s.logger.Warn("Error cacheando producto nuevo", zap.Int("product_id", product.ID), zap.Error(err))
		}
	}

	s.logger.Info("🆕 Producto creado",
		zap.Int("product_id", product.ID),
		zap.String("barcode", product.BarcodeValue()))
	return product, nil
}

func (s *catalogService) CreateClient(ctx context.Context, req models.CreateClientRequest) (*models.Client, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrNameRequired
	}

	client, err := s.api.CreateClient(ctx, req.Input())
	if err != nil {
		return nil, err
	}

	s.logger.Info("🆕 Cliente creado", zap.Int("client_id", client.ID))
	return client, nil
}

func (s *catalogService) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	return s.api.StockLevels(ctx)
}

func (s *catalogService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.api.ListCategories(ctx)
}

func (s *catalogService) PlanUsage(ctx context.Context) (*models.PlanUsage, error) {
	return s.api.PlanUsage(ctx)
}

// WarmCache recorre el catálogo paginado y precarga los códigos de barras
func (s *catalogService) WarmCache(ctx context.Context) (int, error) {
	logger := s.logger.With(zap.String("operation", "warm_cache"))
	start := time.Now()

	total := 0
	for page := 1; ; page++ {
		res, err := s.api.ListProducts(ctx, models.ProductFilter{Page: page, PerPage: 100})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return total, err
			}
			logger.Error("Error precargando productos", zap.Int("page", page), zap.Error(err))
			return total, err
		}

		loaded, err := s.cache.Warm(ctx, res.Items)
		total += loaded
		if err != nil {
			return total, err
		}
		if page >= res.Pages || len(res.Items) == 0 {
			break
		}
	}

	logger.Info("🔥 Caché de productos precargado",
		zap.Int("products", total),
		zap.Duration("latency", time.Since(start)))
	return total, nil
}

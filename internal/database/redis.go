package database

import (
	"context"
	"fmt"
	"time"

	"romaneio-service/internal/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisDB respalda el L2 del caché de productos y los tokens de sesión
type RedisDB struct {
	Client *redis.Client
}

func NewRedisDB(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisDB, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Si se proporciona una contraseña separada, usarla
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	opt.DB = cfg.DB

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", opt.Addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisDB{Client: client}, nil
}

func (r *RedisDB) Close() error {
	return r.Client.Close()
}

func (r *RedisDB) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// GetStats retorna la sección "stats" de INFO
func (r *RedisDB) GetStats(ctx context.Context) (string, error) {
	return r.Client.Info(ctx, "stats").Result()
}

// CountKeys cuenta las claves que coinciden con pattern usando SCAN
func (r *RedisDB) CountKeys(ctx context.Context, pattern string) (int, error) {
	count := 0
	iter := r.Client.Scan(ctx, 0, pattern, 500).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return count, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return count, nil
}

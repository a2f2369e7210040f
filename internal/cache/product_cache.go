package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"romaneio-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrMiss el código no está en ningún nivel del caché
var ErrMiss = errors.New("product not in cache")

const keyPrefix = "product:barcode:"

// KeyPattern patrón SCAN de las claves de productos en Redis
const KeyPattern = keyPrefix + "*"

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

type l1Entry struct {
	product   *models.Product
	expiresAt time.Time
}

// ProductCache caché multi-nivel de productos por cuenta y código de barras.
// L2 (Redis) es opcional: con redisClient nil solo se usa memoria.
type ProductCache struct {
	// L1 Cache: memoria local
	l1Cache map[string]l1Entry
	l1Mutex sync.RWMutex

	// L2 Cache: Redis
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once

	statsMutex sync.RWMutex
	hits       int64
	misses     int64
}

// NewProductCache crea el caché e inicia la limpieza periódica del L1
func NewProductCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *ProductCache {
	pc := &ProductCache{
		l1Cache:     make(map[string]l1Entry),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	go pc.cleanupL1Cache(time.Minute)

	return pc
}

type accountKey struct{}

// WithAccount limita el caché a la cuenta del backend de la sesión: dos
// cuentas nunca comparten productos
func WithAccount(ctx context.Context, accountID int) context.Context {
	return context.WithValue(ctx, accountKey{}, accountID)
}

// AccountFrom devuelve la cuenta del contexto, 0 si no hay
func AccountFrom(ctx context.Context) int {
	id, _ := ctx.Value(accountKey{}).(int)
	return id
}

func normalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// accountPrefix prefijo de las claves de la cuenta: product:barcode:<cuenta>:
func accountPrefix(ctx context.Context) string {
	return fmt.Sprintf("%s%d:", keyPrefix, AccountFrom(ctx))
}

func productKey(ctx context.Context, barcode string) string {
	return accountPrefix(ctx) + barcode
}

// GetStats retorna estadísticas del caché
func (pc *ProductCache) GetStats() CacheStats {
	pc.statsMutex.RLock()
	defer pc.statsMutex.RUnlock()

	pc.l1Mutex.RLock()
	totalKeys := len(pc.l1Cache)
	pc.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          pc.hits,
		Misses:        pc.misses,
		TotalRequests: pc.hits + pc.misses,
		TotalKeys:     totalKeys,
	}
}

// HasL2 indica si hay Redis detrás del caché
func (pc *ProductCache) HasL2() bool {
	return pc.redisClient != nil
}

// GetProduct busca un producto por código en L1 y luego en L2
func (pc *ProductCache) GetProduct(ctx context.Context, barcode string) (*models.Product, error) {
	start := time.Now()
	barcode = normalizeCode(barcode)
	key := productKey(ctx, barcode)

	if product := pc.getFromL1(key); product != nil {
		pc.recordHit()
		pc.logger.Debug("L1 cache hit",
			zap.String("barcode", barcode),
			zap.Duration("latency", time.Since(start)))
		return product, nil
	}

	if pc.redisClient != nil {
		product, err := pc.getFromL2(ctx, key)
		if err == nil && product != nil {
			pc.setToL1(key, product)
			pc.recordHit()
			pc.logger.Debug("L2 cache hit",
				zap.String("barcode", barcode),
				zap.Duration("latency", time.Since(start)))
			return product, nil
		}
		if err != nil && err != redis.Nil {
			pc.logger.Warn("L2 cache unavailable", zap.Error(err))
		}
	}

	pc.recordMiss()
	pc.logger.Debug("Cache miss",
		zap.String("barcode", barcode),
		zap.Duration("latency", time.Since(start)))

	return nil, ErrMiss
}

func (pc *ProductCache) recordHit() {
	pc.statsMutex.Lock()
	pc.hits++
	pc.statsMutex.Unlock()
}

func (pc *ProductCache) recordMiss() {
	pc.statsMutex.Lock()
	pc.misses++
	pc.statsMutex.Unlock()
}

// SetProduct almacena un producto en ambos niveles
func (pc *ProductCache) SetProduct(ctx context.Context, barcode string, product *models.Product) error {
	barcode = normalizeCode(barcode)
	if barcode == "" || product == nil {
		return nil
	}

	key := productKey(ctx, barcode)
	pc.setToL1(key, product)

	if pc.redisClient == nil {
		return nil
	}
	return pc.setToL2(ctx, key, product)
}

// Warm carga en caché todos los productos que tienen código de barras
func (pc *ProductCache) Warm(ctx context.Context, products []models.Product) (int, error) {
	loaded := 0
	for i := range products {
		p := products[i]
		code := p.BarcodeValue()
		if code == "" {
			continue
		}
		if err := pc.SetProduct(ctx, code, &p); err != nil {
			return loaded, fmt.Errorf("warm product %d: %w", p.ID, err)
		}
		loaded++
	}
	return loaded, nil
}

// InvalidateProduct invalida un código en ambos niveles
func (pc *ProductCache) InvalidateProduct(ctx context.Context, barcode string) error {
	key := productKey(ctx, normalizeCode(barcode))

	pc.l1Mutex.Lock()
	delete(pc.l1Cache, key)
	pc.l1Mutex.Unlock()

	if pc.redisClient == nil {
		return nil
	}
	return pc.redisClient.Del(ctx, key).Err()
}

// InvalidateAll borra los productos de la cuenta del contexto en ambos niveles
func (pc *ProductCache) InvalidateAll(ctx context.Context) (int, error) {
	prefix := accountPrefix(ctx)

	pc.l1Mutex.Lock()
	removed := 0
	for key := range pc.l1Cache {
		if strings.HasPrefix(key, prefix) {
			delete(pc.l1Cache, key)
			removed++
		}
	}
	pc.l1Mutex.Unlock()

	if pc.redisClient == nil {
		return removed, nil
	}

	iter := pc.redisClient.Scan(ctx, 0, prefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan product keys: %w", err)
	}
	if len(keys) > 0 {
		if err := pc.redisClient.Del(ctx, keys...).Err(); err != nil {
			return removed, fmt.Errorf("delete product keys: %w", err)
		}
	}
	if len(keys) > removed {
		removed = len(keys)
	}
	return removed, nil
}

func (pc *ProductCache) getFromL1(key string) *models.Product {
	pc.l1Mutex.RLock()
	defer pc.l1Mutex.RUnlock()

	entry, ok := pc.l1Cache[key]
	if !ok || pc.now().After(entry.expiresAt) {
		return nil
	}
	return entry.product
}

func (pc *ProductCache) setToL1(key string, product *models.Product) {
	pc.l1Mutex.Lock()
	defer pc.l1Mutex.Unlock()

	if _, exists := pc.l1Cache[key]; !exists && len(pc.l1Cache) >= pc.maxL1Size {
		pc.evictOldest()
	}

	pc.l1Cache[key] = l1Entry{product: product, expiresAt: pc.now().Add(pc.ttl)}
}

// evictOldest elimina la entrada que vence primero
func (pc *ProductCache) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, entry := range pc.l1Cache {
		if oldestKey == "" || entry.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = key, entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(pc.l1Cache, oldestKey)
	}
}

func (pc *ProductCache) getFromL2(ctx context.Context, key string) (*models.Product, error) {
	data, err := pc.redisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		return nil, err
	}

	return &product, nil
}

func (pc *ProductCache) setToL2(ctx context.Context, key string, product *models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}

	return pc.redisClient.Set(ctx, key, data, pc.ttl).Err()
}

// cleanupL1Cache elimina periódicamente las entradas vencidas del L1
func (pc *ProductCache) cleanupL1Cache(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pc.purgeExpired()
		case <-pc.stop:
			return
		}
	}
}

func (pc *ProductCache) purgeExpired() int {
	pc.l1Mutex.Lock()
	defer pc.l1Mutex.Unlock()

	now := pc.now()
	removed := 0
	for key, entry := range pc.l1Cache {
		if now.After(entry.expiresAt) {
			delete(pc.l1Cache, key)
			removed++
		}
	}
	if removed > 0 {
		pc.logger.Debug("L1 cache cleanup", zap.Int("removed", removed), zap.Int("items", len(pc.l1Cache)))
	}
	return removed
}

// Close detiene la limpieza periódica
func (pc *ProductCache) Close() {
	pc.once.Do(func() { close(pc.stop) })
}

// Stats retorna estadísticas del caché como mapa, para respuestas JSON
func (pc *ProductCache) Stats() map[string]interface{} {
	stats := pc.GetStats()
	hitRate := 0.0
	if stats.TotalRequests > 0 {
		hitRate = float64(stats.Hits) / float64(stats.TotalRequests)
	}
	return map[string]interface{}{
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"total_requests": stats.TotalRequests,
		"total_keys":     stats.TotalKeys,
		"hit_rate":       hitRate,
		"l2_enabled":     pc.HasL2(),
	}
}

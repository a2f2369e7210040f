package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cache"
	"romaneio-service/internal/models"
	"romaneio-service/internal/repository"
	"romaneio-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func strPtr(s string) *string { return &s }

// memBackend backend en memoria para los handlers
type memBackend struct {
	mu        sync.Mutex
	products  map[int]models.Product
	levels    []models.StockLevel
	movements []models.Movement
	failOn    map[int]error
}

func newMemBackend() *memBackend {
	b := &memBackend{
		products: map[int]models.Product{
			1: {ID: 1, Name: "Arroz", Barcode: strPtr("7891000100103"), Unit: "UN", Price: 10},
			2: {ID: 2, Name: "Queijo", Barcode: strPtr("7891000200200"), Unit: "KG", Price: 40},
		},
		failOn: map[int]error{},
	}
	b.levels = []models.StockLevel{
		{ProductID: 1, ProductName: "Arroz", StockQuantity: 100, Unit: "UN"},
		{ProductID: 2, ProductName: "Queijo", StockQuantity: 1, Unit: "KG"},
	}
	return b
}

func (b *memBackend) GetProductByBarcode(ctx context.Context, code string) (*models.Product, error) {
	for _, p := range b.products {
		if p.BarcodeValue() == code {
			p := p
			return &p, nil
		}
	}
	return nil, &apiclient.APIError{StatusCode: http.StatusNotFound, Detail: "Produto não encontrado"}
}

func (b *memBackend) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, ok := b.products[id]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusNotFound, Detail: "Produto não encontrado"}
	}
	return &p, nil
}

func (b *memBackend) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range b.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *memBackend) ListProducts(ctx context.Context, f models.ProductFilter) (*models.ProductPage, error) {
	items := []models.Product{b.products[1], b.products[2]}
	return &models.ProductPage{Items: items, Page: 1, Pages: 1, Total: len(items)}, nil
}

func (b *memBackend) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	return b.levels, nil
}

func (b *memBackend) ListClients(ctx context.Context, search string) ([]models.Client, error) {
	return []models.Client{{ID: 7, Name: "Mercado Central"}}, nil
}

func (b *memBackend) ListCategories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{{ID: 1, Name: "Grãos"}}, nil
}

func (b *memBackend) PlanUsage(ctx context.Context) (*models.PlanUsage, error) {
	return &models.PlanUsage{PlanID: "free"}, nil
}

func (b *memBackend) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := models.Product{ID: len(b.products) + 1, Name: *in.Name, Barcode: in.Barcode, Unit: *in.Unit, Price: *in.Price}
	b.products[p.ID] = p
	return &p, nil
}

func (b *memBackend) CreateClient(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	return &models.Client{ID: 8, Name: *in.Name, Phone: in.Phone, Email: in.Email}, nil
}

func (b *memBackend) CreateMovement(ctx context.Context, in models.MovementCreate) (*models.Movement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.failOn[in.ProductID]; ok {
		return nil, err
	}
	now := time.Now()
	mv := models.Movement{
		ID:                  len(b.movements) + 1,
		ProductID:           in.ProductID,
		Quantity:            in.Quantity,
		MovementType:        in.MovementType,
		Notes:               in.Notes,
		ClientID:            in.ClientID,
		ProductNameSnapshot: in.ProductNameSnapshot,
		UnitSnapshot:        in.UnitSnapshot,
		UnitPriceSnapshot:   in.UnitPriceSnapshot,
		RomaneioID:          in.RomaneioID,
		CreatedAt:           &now,
	}
	b.movements = append(b.movements, mv)
	return &mv, nil
}

func (b *memBackend) ListMovements(ctx context.Context, f models.MovementFilter) ([]models.Movement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Movement(nil), b.movements...), nil
}

type testEnv struct {
	router  *gin.Engine
	backend *memBackend
	cache   *cache.ProductCache
}

// newTestEnv monta las rutas de estación sin StationAuth
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	backend := newMemBackend()
	productCache := cache.NewProductCache(nil, 100, time.Minute, logger)
	t.Cleanup(productCache.Close)

	catalog := services.NewCatalogService(backend, productCache, logger)
	station := services.NewStationService(catalog, backend, repository.NewMemoryJournal(), nil, logger)

	cartHandler := NewCartHandler(station, logger)
	catalogHandler := NewCatalogHandler(catalog, productCache, logger)
	exportHandler := NewExportHandler(station, logger)

	router := gin.New()
	st := router.Group("/stations/:station")
	st.GET("/cart", cartHandler.GetCart)
	st.POST("/cart/items", cartHandler.AddItem)
	st.POST("/cart/scan", cartHandler.Scan)
	st.PATCH("/cart/items/:id", cartHandler.SetQuantity)
	st.POST("/cart/items/:id/commit", cartHandler.CommitQuantity)
	st.POST("/cart/items/:id/increment", cartHandler.Increment)
	st.DELETE("/cart/items/:id", cartHandler.RemoveItem)
	st.DELETE("/cart", cartHandler.ResetCart)
	st.POST("/cart/stock-check", cartHandler.StockCheck)
	st.POST("/cart/finalize", cartHandler.Finalize)
	st.POST("/romaneios/:batch/retry", cartHandler.Retry)
	st.GET("/romaneios", exportHandler.History)
	st.GET("/romaneios/:batch/export", exportHandler.ExportBatch)
	st.GET("/export", exportHandler.ExportLast)
	st.GET("/products/search", catalogHandler.SearchProducts)
	st.GET("/products/resolve/:code", catalogHandler.ResolveCode)
	st.POST("/products", catalogHandler.CreateProduct)
	st.POST("/clients", catalogHandler.CreateClient)
	st.POST("/cache/warm", catalogHandler.WarmCache)
	st.GET("/cache/stats", catalogHandler.GetCacheStats)
	st.DELETE("/cache", catalogHandler.InvalidateCache)

	return &testEnv{router: router, backend: backend, cache: productCache}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

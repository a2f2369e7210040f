package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cache"
	"romaneio-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

// fakeBackend implementa CatalogAPI y StationAPI en memoria
type fakeBackend struct {
	mu sync.Mutex

	byBarcode   map[string]models.Product
	barcodeErr  error
	search      map[string][]models.Product
	searchErr   error
	products    map[int]models.Product
	levels      []models.StockLevel
	clients     []models.Client
	movements   []models.Movement
	failOn      map[int]error
	created     []models.MovementCreate
	barcodeHits int32
	barcodeWait time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		byBarcode: map[string]models.Product{},
		search:    map[string][]models.Product{},
		products:  map[int]models.Product{},
		failOn:    map[int]error{},
	}
}

func (f *fakeBackend) GetProductByBarcode(ctx context.Context, code string) (*models.Product, error) {
	atomic.AddInt32(&f.barcodeHits, 1)
	if f.barcodeWait > 0 {
		select {
		case <-time.After(f.barcodeWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.barcodeErr != nil {
		return nil, f.barcodeErr
	}
	p, ok := f.byBarcode[code]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusNotFound, Detail: "Produto não encontrado"}
	}
	return &p, nil
}

func (f *fakeBackend) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, &apiclient.APIError{StatusCode: http.StatusNotFound, Detail: "Produto não encontrado"}
	}
	return &p, nil
}

func (f *fakeBackend) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.search[query], nil
}

func (f *fakeBackend) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductPage, error) {
	all := []models.Product{
		{ID: 1, Name: "Arroz", Barcode: strPtr("111")},
		{ID: 2, Name: "Feijão", Barcode: strPtr("222")},
		{ID: 3, Name: "Avulso"},
	}
	if filter.Page == 1 {
		return &models.ProductPage{Items: all[:2], Page: 1, Pages: 2}, nil
	}
	return &models.ProductPage{Items: all[2:], Page: 2, Pages: 2}, nil
}

func (f *fakeBackend) StockLevels(ctx context.Context) ([]models.StockLevel, error) {
	return f.levels, nil
}

func (f *fakeBackend) ListClients(ctx context.Context, search string) ([]models.Client, error) {
	return f.clients, nil
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{{ID: 1, Name: "Grãos"}}, nil
}

func (f *fakeBackend) PlanUsage(ctx context.Context) (*models.PlanUsage, error) {
	return &models.PlanUsage{PlanID: "free"}, nil
}

func (f *fakeBackend) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := models.Product{ID: 100 + len(f.products), Name: *in.Name, Barcode: in.Barcode, Unit: *in.Unit, Price: *in.Price}
	f.products[p.ID] = p
	return &p, nil
}

func (f *fakeBackend) CreateClient(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := models.Client{ID: len(f.clients) + 1, Name: *in.Name, Email: in.Email}
	f.clients = append(f.clients, c)
	return &c, nil
}

func (f *fakeBackend) CreateMovement(ctx context.Context, in models.MovementCreate) (*models.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.created = append(f.created, in)
	if err, ok := f.failOn[in.ProductID]; ok {
		return nil, err
	}
	now := time.Now()
	mv := models.Movement{
		ID:                  len(f.created),
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
	f.movements = append(f.movements, mv)
	return &mv, nil
}

func (f *fakeBackend) ListMovements(ctx context.Context, filter models.MovementFilter) ([]models.Movement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Movement(nil), f.movements...), nil
}

func newCatalog(t *testing.T, api *fakeBackend) (CatalogService, *cache.ProductCache) {
	t.Helper()
	pc := cache.NewProductCache(nil, 100, time.Minute, zap.NewNop())
	t.Cleanup(pc.Close)
	return NewCatalogService(api, pc, zap.NewNop()), pc
}

func TestResolveCode_Barcode(t *testing.T) {
	api := newFakeBackend()
	api.byBarcode["789"] = models.Product{ID: 1, Name: "Arroz", Barcode: strPtr("789")}
	svc, _ := newCatalog(t, api)

	res := svc.ResolveCode(context.Background(), " 789 ")
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, "barcode", res.Source)
	assert.False(t, res.Degraded)

	// la segunda lectura sale del caché
	res = svc.ResolveCode(context.Background(), "789")
	assert.Equal(t, "cache", res.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.barcodeHits))
}

func TestResolveCode_SearchFallback(t *testing.T) {
	api := newFakeBackend()
	api.search["arroz"] = []models.Product{{ID: 5, Name: "Arroz 5kg"}}
	svc, _ := newCatalog(t, api)

	res := svc.ResolveCode(context.Background(), "arroz")
	require.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, 5, res.Product.ID)
	assert.Equal(t, "search", res.Source)
	assert.False(t, res.Degraded)
}

func TestResolveCode_AmbiguousAndNotFound(t *testing.T) {
	api := newFakeBackend()
	api.search["cafe"] = []models.Product{{ID: 1}, {ID: 2}}
	svc, _ := newCatalog(t, api)

	res := svc.ResolveCode(context.Background(), "cafe")
	assert.Equal(t, OutcomeAmbiguous, res.Outcome)
	assert.Len(t, res.Candidates, 2)
	assert.Nil(t, res.Product)

	res = svc.ResolveCode(context.Background(), "nada")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, "nada", res.Code)

	res = svc.ResolveCode(context.Background(), "   ")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}

func TestResolveCode_NetworkErrorIsDegraded(t *testing.T) {
	api := newFakeBackend()
	api.barcodeErr = errors.New("connection refused")
	api.search["789"] = []models.Product{{ID: 9, Name: "Leite"}}
	svc, _ := newCatalog(t, api)

	res := svc.ResolveCode(context.Background(), "789")
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.True(t, res.Degraded)

	api.searchErr = errors.New("timeout")
	res = svc.ResolveCode(context.Background(), "123")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.True(t, res.Degraded)
}

func TestResolveCode_ConcurrentLookupsShareCall(t *testing.T) {
	api := newFakeBackend()
	api.barcodeWait = 50 * time.Millisecond
	api.byBarcode["789"] = models.Product{ID: 1, Name: "Arroz"}
	svc, _ := newCatalog(t, api)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := svc.ResolveCode(context.Background(), "789")
			assert.Equal(t, OutcomeResolved, res.Outcome)
		}()
	}
	wg.Wait()

	assert.Less(t, atomic.LoadInt32(&api.barcodeHits), int32(5))
}

func TestResolveCode_CancelledReaderDoesNotFailSharedLookup(t *testing.T) {
	api := newFakeBackend()
	api.barcodeWait = 150 * time.Millisecond
	api.byBarcode["789"] = models.Product{ID: 1, Name: "Arroz"}
	svc, _ := newCatalog(t, api)

	first, cancel := context.WithCancel(context.Background())
	firstDone := make(chan *Resolution, 1)
	go func() { firstDone <- svc.ResolveCode(first, "789") }()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&api.barcodeHits) == 1
	}, time.Second, 5*time.Millisecond)

	secondDone := make(chan *Resolution, 1)
	go func() { secondDone <- svc.ResolveCode(context.Background(), "789") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	res := <-firstDone
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	second := <-secondDone
	assert.Equal(t, OutcomeResolved, second.Outcome)
	assert.False(t, second.Degraded)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.barcodeHits))
}

func TestCreateProduct_CachedForNextScan(t *testing.T) {
	api := newFakeBackend()
	svc, _ := newCatalog(t, api)
	ctx := context.Background()

	res := svc.ResolveCode(ctx, "555")
	require.Equal(t, OutcomeNotFound, res.Outcome)

	req := *models.NewProductDraft("555")
	req.Name = "Sal Grosso"
	p, err := svc.CreateProduct(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "UN", p.Unit)

	hits := atomic.LoadInt32(&api.barcodeHits)
	res = svc.ResolveCode(ctx, "555")
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, "cache", res.Source)
	assert.Equal(t, hits, atomic.LoadInt32(&api.barcodeHits))
}

func TestCreateProductAndClient_RequireName(t *testing.T) {
	svc, _ := newCatalog(t, newFakeBackend())

	_, err := svc.CreateProduct(context.Background(), models.CreateProductRequest{Name: "   "})
	assert.ErrorIs(t, err, ErrNameRequired)
	_, err = svc.CreateClient(context.Background(), models.CreateClientRequest{Name: " "})
	assert.ErrorIs(t, err, ErrNameRequired)

	c, err := svc.CreateClient(context.Background(), models.CreateClientRequest{Name: "Padaria Sol"})
	require.NoError(t, err)
	assert.Equal(t, "Padaria Sol", c.Name)
}

func TestResolveCode_CacheIsPerAccount(t *testing.T) {
	api := newFakeBackend()
	api.byBarcode["789"] = models.Product{ID: 1, Name: "Arroz"}
	svc, _ := newCatalog(t, api)

	acme := cache.WithAccount(context.Background(), 1)
	other := cache.WithAccount(context.Background(), 2)

	res := svc.ResolveCode(acme, "789")
	require.Equal(t, "barcode", res.Source)
	assert.Equal(t, "cache", svc.ResolveCode(acme, "789").Source)

	// otra cuenta no ve el producto cacheado por la primera
	delete(api.byBarcode, "789")
	res = svc.ResolveCode(other, "789")
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}

func TestWarmCache_LoadsEveryPage(t *testing.T) {
	api := newFakeBackend()
	svc, pc := newCatalog(t, api)

	loaded, err := svc.WarmCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	p, err := pc.GetProduct(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, "Feijão", p.Name)
}

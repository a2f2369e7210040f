package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/cart"
	"romaneio-service/internal/models"
	"romaneio-service/internal/repository"
	"romaneio-service/internal/romaneio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingRecorder struct {
	scans, finalized, partial, retries int
}

func (r *countingRecorder) RecordScan(string, bool) { r.scans++ }

func (r *countingRecorder) RecordFinalize(completed, retry bool) {
	if retry {
		r.retries++
	}
	if completed {
		r.finalized++
	} else {
		r.partial++
	}
}

func newStation(t *testing.T) (StationService, *fakeBackend, *countingRecorder) {
	t.Helper()
	api := newFakeBackend()
	api.byBarcode["111"] = models.Product{ID: 1, Name: "Arroz", Barcode: strPtr("111"), Unit: "UN", Price: 10}
	api.byBarcode["222"] = models.Product{ID: 2, Name: "Queijo", Barcode: strPtr("222"), Unit: "KG", Price: 40}
	api.products[1] = api.byBarcode["111"]
	api.products[2] = api.byBarcode["222"]
	api.levels = []models.StockLevel{
		{ProductID: 1, StockQuantity: 100, Unit: "UN"},
		{ProductID: 2, StockQuantity: 1, Unit: "KG"},
	}
	api.clients = []models.Client{{ID: 7, Name: "Mercado Central"}}

	catalog, _ := newCatalog(t, api)
	rec := &countingRecorder{}
	svc := NewStationService(catalog, api, repository.NewMemoryJournal(), rec, zap.NewNop())
	return svc, api, rec
}

func TestScan_AddsResolvedProduct(t *testing.T) {
	svc, _, rec := newStation(t)
	ctx := context.Background()

	res, resp, err := svc.Scan(ctx, "caixa-1", "111")
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, string(romaneio.StateBuilding), resp.State)

	_, resp, err = svc.Scan(ctx, "caixa-1", "111")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2.0, resp.Items[0].Quantity)
	assert.Equal(t, 2, rec.scans)

	// otra estación tiene su propio carrito
	assert.Empty(t, svc.Cart("caixa-2").Items)
	assert.Equal(t, 2, svc.ActiveStations())
}

func TestScan_NotFoundLeavesCartUntouched(t *testing.T) {
	svc, _, _ := newStation(t)

	res, resp, err := svc.Scan(context.Background(), "caixa-1", "999")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Empty(t, resp.Items)
	assert.Equal(t, string(romaneio.StateEmpty), resp.State)
}

func TestCartEdits(t *testing.T) {
	svc, _, _ := newStation(t)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c", 2)
	require.NoError(t, err)

	resp, err := svc.SetQuantity("c", 2, "1,5")
	require.NoError(t, err)
	assert.Equal(t, 1.5, resp.Items[0].Quantity)

	_, err = svc.SetQuantity("c", 2, "abc")
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	resp, err = svc.Increment("c", 2, -1.5)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, string(romaneio.StateEmpty), resp.State)

	_, err = svc.RemoveItem("c", 2)
	assert.ErrorIs(t, err, cart.ErrItemNotFound)

	_, err = svc.AddProduct(ctx, "c", 42)
	assert.True(t, apiclient.IsNotFound(err))
}

func TestStockCheck_ReportsMismatches(t *testing.T) {
	svc, _, _ := newStation(t)
	ctx := context.Background()

	_, err := svc.StockCheck(ctx, "c")
	assert.ErrorIs(t, err, romaneio.ErrEmptyCart)

	_, err = svc.AddProduct(ctx, "c", 2)
	require.NoError(t, err)
	_, err = svc.SetQuantity("c", 2, "3")
	require.NoError(t, err)

	check, err := svc.StockCheck(ctx, "c")
	require.NoError(t, err)
	assert.False(t, check.OK)
	require.Len(t, check.Mismatches, 1)
	assert.Equal(t, 1.0, check.Mismatches[0].Available)
	assert.Equal(t, string(romaneio.StateStockCheck), svc.Cart("c").State)
}

func TestFinalize_StockMismatchNeedsForce(t *testing.T) {
	svc, api, rec := newStation(t)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c", 2)
	require.NoError(t, err)
	_, err = svc.SetQuantity("c", 2, "3")
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, "c", models.FinalizeRequest{})
	var mismatch *StockMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.ErrorIs(t, err, ErrStockMismatch)
	assert.Empty(t, api.created)

	result, err := svc.Finalize(ctx, "c", models.FinalizeRequest{CustomerName: "Ana", Force: true})
	require.NoError(t, err)
	assert.True(t, result.Done())
	assert.Equal(t, 1, rec.finalized)

	resp := svc.Cart("c")
	assert.Empty(t, resp.Items)
	assert.Equal(t, string(romaneio.StateExported), resp.State)

	doc, err := svc.LastDocument("c")
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.CustomerName)
	assert.Equal(t, result.BatchID, doc.BatchID)
}

func TestFinalize_DropsZeroQuantityLines(t *testing.T) {
	svc, api, _ := newStation(t)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c", 1)
	require.NoError(t, err)
	_, err = svc.AddProduct(ctx, "c", 2)
	require.NoError(t, err)
	_, err = svc.SetQuantity("c", 1, "0")
	require.NoError(t, err)

	result, err := svc.Finalize(ctx, "c", models.FinalizeRequest{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, api.created, 1)
	assert.Equal(t, 2, api.created[0].ProductID)
	require.Len(t, result.Document.Items, 1)
	assert.Greater(t, result.Document.Items[0].Quantity, 0.0)
}

func TestFinalize_OnlyZeroLinesIsEmpty(t *testing.T) {
	svc, api, _ := newStation(t)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "c", 1)
	require.NoError(t, err)
	_, err = svc.SetQuantity("c", 1, "0")
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, "c", models.FinalizeRequest{Force: true})
	assert.ErrorIs(t, err, romaneio.ErrEmptyCart)
	assert.Empty(t, api.created)

	resp := svc.Cart("c")
	assert.Empty(t, resp.Items)
	assert.Equal(t, string(romaneio.StateEmpty), resp.State)
}

func TestFinalize_PartialThenRetry(t *testing.T) {
	svc, api, rec := newStation(t)
	ctx := context.Background()

	_, _, err := svc.Scan(ctx, "c", "111")
	require.NoError(t, err)
	_, _, err = svc.Scan(ctx, "c", "222")
	require.NoError(t, err)

	// el carrito queda [Queijo, Arroz]; falla la segunda línea
	api.failOn[1] = &apiclient.APIError{StatusCode: http.StatusBadRequest, Detail: "Estoque insuficiente"}

	result, err := svc.Finalize(ctx, "c", models.FinalizeRequest{})
	require.ErrorIs(t, err, romaneio.ErrPartialFinalize)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, "Arroz", result.FailedOn)
	assert.Equal(t, "Estoque insuficiente", result.Error)
	assert.Equal(t, 1, rec.partial)

	// con un lote pendiente no se puede editar ni volver a finalizar
	assert.Equal(t, string(romaneio.StateFailed), svc.Cart("c").State)
	_, _, err = svc.Scan(ctx, "c", "111")
	var transition *romaneio.TransitionError
	assert.ErrorAs(t, err, &transition)
	_, err = svc.Finalize(ctx, "c", models.FinalizeRequest{})
	assert.ErrorIs(t, err, ErrRetryPending)

	delete(api.failOn, 1)
	result, err = svc.Retry(ctx, "c", result.BatchID)
	require.NoError(t, err)
	assert.True(t, result.Done())
	assert.Equal(t, 1, rec.retries)
	assert.Equal(t, string(romaneio.StateExported), svc.Cart("c").State)

	// Queijo no se reenvía
	sent := map[int]int{}
	for _, mv := range api.created {
		sent[mv.ProductID]++
	}
	assert.Equal(t, 1, sent[2])
	assert.Equal(t, 2, sent[1])
}

func TestRetry_UnknownBatch(t *testing.T) {
	svc, _, _ := newStation(t)

	_, err := svc.Retry(context.Background(), "c", "ROM-1-AAAAAA")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestReset_DiscardsFailedBatch(t *testing.T) {
	svc, api, _ := newStation(t)
	ctx := context.Background()

	_, _, err := svc.Scan(ctx, "c", "111")
	require.NoError(t, err)
	api.failOn[1] = errors.New("connection reset")

	_, err = svc.Finalize(ctx, "c", models.FinalizeRequest{})
	require.Error(t, err)

	resp, err := svc.Reset("c")
	require.NoError(t, err)
	assert.Equal(t, string(romaneio.StateEmpty), resp.State)
	assert.Empty(t, resp.Items)
}

func TestHistory_KeepsTypedCustomerWithoutClient(t *testing.T) {
	svc, _, _ := newStation(t)
	ctx := context.Background()

	_, _, err := svc.Scan(ctx, "c", "111")
	require.NoError(t, err)
	result, err := svc.Finalize(ctx, "c", models.FinalizeRequest{CustomerName: "Padaria Sol", Force: true})
	require.NoError(t, err)

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].ClientID)
	assert.Equal(t, "Padaria Sol", history[0].CustomerName)

	doc, err := svc.Document(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Equal(t, "Padaria Sol", doc.CustomerName)
}

func TestHistory_JournalNameWhenNotesAreMissing(t *testing.T) {
	api := newFakeBackend()
	catalog, _ := newCatalog(t, api)
	journal := repository.NewMemoryJournal()
	svc := NewStationService(catalog, api, journal, nil, zap.NewNop())
	ctx := context.Background()

	batchID := "ROM-1700000000000-ABC123"
	now := time.Now()
	require.NoError(t, journal.Create(ctx, &models.JournalBatch{
		BatchID:      batchID,
		CustomerName: "Padaria Sol",
		CreatedAt:    now,
		Items: []models.JournalItem{
			{Position: 0, Item: models.CartItem{ProductID: 1, Name: "Arroz", Quantity: 1}, Status: models.ItemPending},
		},
	}))
	api.movements = []models.Movement{
		{ID: 1, ProductID: 1, Quantity: 1, MovementType: models.MovementOut, RomaneioID: &batchID, CreatedAt: &now},
	}

	history, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Padaria Sol", history[0].CustomerName)

	// el lote sigue pendiente en el journal: se arma desde el backend
	doc, err := svc.Document(ctx, batchID)
	require.NoError(t, err)
	assert.Equal(t, "Padaria Sol", doc.CustomerName)
}

func TestDocumentAndHistory(t *testing.T) {
	svc, _, _ := newStation(t)
	ctx := context.Background()

	_, _, err := svc.Scan(ctx, "c", "111")
	require.NoError(t, err)
	clientID := 7
	result, err := svc.Finalize(ctx, "c", models.FinalizeRequest{ClientID: &clientID})
	require.NoError(t, err)

	doc, err := svc.Document(ctx, result.BatchID)
	require.NoError(t, err)
	assert.Len(t, doc.Items, 1)

	history, err := svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Mercado Central", history[0].CustomerName)

	_, err = svc.Document(ctx, "ROM-1-ZZZZZZ")
	assert.ErrorIs(t, err, ErrBatchNotFound)

	_, err = svc.LastDocument("otra")
	assert.ErrorIs(t, err, ErrNoDocument)
}

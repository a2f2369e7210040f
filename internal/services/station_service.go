package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"romaneio-service/internal/cart"
	"romaneio-service/internal/models"
	"romaneio-service/internal/repository"
	"romaneio-service/internal/romaneio"

	"go.uber.org/zap"
)

// Cantidad de movimientos que se leen del backend para reconstruir historial
const historyScanLimit = 1000

var (
	ErrStockMismatch = errors.New("requested quantities exceed available stock")
	ErrRetryPending  = errors.New("previous romaneio has pending items; retry or reset first")
	ErrNoDocument    = errors.New("no finalized romaneio for this station")
	ErrBatchNotFound = errors.New("romaneio batch not found")
)

// StockMismatchError detalla las líneas que superan el stock disponible
type StockMismatchError struct {
	Mismatches []models.StockMismatch
}

func (e *StockMismatchError) Error() string {
	return fmt.Sprintf("%s: %d items", ErrStockMismatch, len(e.Mismatches))
}

func (e *StockMismatchError) Unwrap() error {
	return ErrStockMismatch
}

// StationAPI operaciones del backend que usa el cierre y el historial
type StationAPI interface {
	romaneio.MovementCreator
	ListMovements(ctx context.Context, f models.MovementFilter) ([]models.Movement, error)
}

// ActivityRecorder recibe eventos de negocio para las métricas
type ActivityRecorder interface {
	RecordScan(outcome string, degraded bool)
	RecordFinalize(completed, retry bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordScan(string, bool) {}
func (nopRecorder) RecordFinalize(bool, bool) {}

// StationService define las operaciones del romaneio de cada estación
type StationService interface {
	Cart(station string) models.CartResponse
	Scan(ctx context.Context, station, code string) (*Resolution, models.CartResponse, error)
	AddProduct(ctx context.Context, station string, productID int) (models.CartResponse, error)
	SetQuantity(station string, productID int, raw string) (models.CartResponse, error)
	CommitQuantity(station string, productID int) (models.CartResponse, error)
	Increment(station string, productID int, delta float64) (models.CartResponse, error)
	RemoveItem(station string, productID int) (models.CartResponse, error)
	Reset(station string) (models.CartResponse, error)
	StockCheck(ctx context.Context, station string) (*models.StockCheckResponse, error)
	Finalize(ctx context.Context, station string, req models.FinalizeRequest) (*models.FinalizeResult, error)
	Retry(ctx context.Context, station, batchID string) (*models.FinalizeResult, error)
	LastDocument(station string) (*models.Document, error)
	Document(ctx context.Context, batchID string) (*models.Document, error)
	History(ctx context.Context, limit int) ([]models.Document, error)
	ActiveStations() int
}

// stationState carrito y ciclo de vida del romaneio de una estación
type stationState struct {
	mu         sync.Mutex
	cart       *cart.Cart
	state      romaneio.State
	lastResult *models.FinalizeResult
	lastDoc    *models.Document
}

func (st *stationState) snapshot() models.CartResponse {
	items := st.cart.Items()
	return models.CartResponse{
		Items:  items,
		Totals: models.TotalsOf(items),
		State:  string(st.state),
	}
}

// settle deja el estado en Empty o Building según el contenido del carrito
func (st *stationState) settle() {
	if st.cart.Len() == 0 {
		st.state = romaneio.StateEmpty
		return
	}
	st.state = romaneio.StateBuilding
}

type stationService struct {
	catalog   CatalogService
	api       StationAPI
	finalizer *romaneio.Finalizer
	journal   romaneio.Journal
	recorder  ActivityRecorder
	logger    *zap.Logger

	mu       sync.Mutex
	stations map[string]*stationState
}

func NewStationService(
	catalog CatalogService,
	api StationAPI,
	journal romaneio.Journal,
	recorder ActivityRecorder,
	logger *zap.Logger,
) StationService {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &stationService{
		catalog:   catalog,
		api:       api,
		finalizer: romaneio.NewFinalizer(api, journal, logger),
		journal:   journal,
		recorder:  recorder,
		logger:    logger,
		stations:  make(map[string]*stationState),
	}
}

func (s *stationService) station(id string) *stationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stations[id]
	if !ok {
		st = &stationState{cart: cart.New(), state: romaneio.StateEmpty}
		s.stations[id] = st
	}
	return st
}

func (s *stationService) ActiveStations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stations)
}

func (s *stationService) Cart(station string) models.CartResponse {
	st := s.station(station)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot()
}

// mutate aplica fn al carrito si el estado actual admite pasar a target
func (s *stationService) mutate(station string, target romaneio.State, fn func(c *cart.Cart) error) (models.CartResponse, error) {
	st := s.station(station)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !romaneio.CanTransition(st.state, target) {
		return st.snapshot(), &romaneio.TransitionError{From: st.state, To: target}
	}
	if err := fn(st.cart); err != nil {
		return st.snapshot(), err
	}
	st.settle()
	return st.snapshot(), nil
}

// Scan resuelve el código y, si hay un único producto, lo suma al carrito
func (s *stationService) Scan(ctx context.Context, station, code string) (*Resolution, models.CartResponse, error) {
	res := s.catalog.ResolveCode(ctx, code)
	s.recorder.RecordScan(string(res.Outcome), res.Degraded)

	if res.Outcome != OutcomeResolved {
		return res, s.Cart(station), nil
	}

	product := *res.Product
	resp, err := s.mutate(station, romaneio.StateBuilding, func(c *cart.Cart) error {
		c.Add(product)
		return nil
	})
	if err != nil {
		return res, resp, err
	}

	s.logger.Debug("🛒 Producto agregado por lectura",
		zap.String("station", station),
		zap.Int("product_id", product.ID),
		zap.Int("lines", resp.Totals.Lines))
	return res, resp, nil
}

func (s *stationService) AddProduct(ctx context.Context, station string, productID int) (models.CartResponse, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return s.Cart(station), fmt.Errorf("load product %d: %w", productID, err)
	}
	return s.mutate(station, romaneio.StateBuilding, func(c *cart.Cart) error {
		c.Add(*product)
		return nil
	})
}

func (s *stationService) SetQuantity(station string, productID int, raw string) (models.CartResponse, error) {
	return s.mutate(station, romaneio.StateBuilding, func(c *cart.Cart) error {
		_, err := c.SetQuantity(productID, raw)
		return err
	})
}

func (s *stationService) CommitQuantity(station string, productID int) (models.CartResponse, error) {
	return s.mutate(station, romaneio.StateBuilding, func(c *cart.Cart) error {
		_, err := c.CommitQuantityEdit(productID)
		return err
	})
}

func (s *stationService) Increment(station string, productID int, delta float64) (models.CartResponse, error) {
	return s.mutate(station, romaneio.StateBuilding, func(c *cart.Cart) error {
		_, err := c.Increment(productID, delta)
		return err
	})
}

func (s *stationService) RemoveItem(station string, productID int) (models.CartResponse, error) {
	return s.mutate(station, romaneio.StateBuilding, func(c *cart.Cart) error {
		if !c.Remove(productID) {
			return cart.ErrItemNotFound
		}
		return nil
	})
}

// Reset vacía el carrito. Desde Failed descarta el lote pendiente.
func (s *stationService) Reset(station string) (models.CartResponse, error) {
	return s.mutate(station, romaneio.StateEmpty, func(c *cart.Cart) error {
		c.Reset()
		return nil
	})
}

// StockCheck compara el carrito con el stock actual. Es solo informativo.
func (s *stationService) StockCheck(ctx context.Context, station string) (*models.StockCheckResponse, error) {
	st := s.station(station)

	st.mu.Lock()
	if st.cart.Len() == 0 {
		st.mu.Unlock()
		return nil, romaneio.ErrEmptyCart
	}
	if !romaneio.CanTransition(st.state, romaneio.StateStockCheck) {
		from := st.state
		st.mu.Unlock()
		return nil, &romaneio.TransitionError{From: from, To: romaneio.StateStockCheck}
	}
	items := st.cart.Items()
	st.mu.Unlock()

	levels, err := s.catalog.StockLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock levels: %w", err)
	}
	mismatches := cart.StockCheck(items, levels)

	st.mu.Lock()
	if st.state == romaneio.StateBuilding {
		st.state = romaneio.StateStockCheck
	}
	st.mu.Unlock()

	return &models.StockCheckResponse{OK: len(mismatches) == 0, Mismatches: mismatches}, nil
}

// Finalize cierra el carrito de la estación. Sin Force, primero verifica
// stock y corta con StockMismatchError si alguna línea lo supera.
func (s *stationService) Finalize(ctx context.Context, station string, req models.FinalizeRequest) (*models.FinalizeResult, error) {
	st := s.station(station)
	logger := s.logger.With(
		zap.String("operation", "finalize"),
		zap.String("station", station),
	)

	st.mu.Lock()
	if st.state == romaneio.StateFailed {
		st.mu.Unlock()
		return nil, ErrRetryPending
	}
	// Una cantidad en 0 sin confirmar no llega al backend
	if pruned := st.cart.Prune(); pruned > 0 {
		logger.Info("🧹 Líneas sin cantidad descartadas", zap.Int("lines", pruned))
		st.settle()
	}
	if st.cart.Len() == 0 {
		st.mu.Unlock()
		return nil, romaneio.ErrEmptyCart
	}
	if !romaneio.CanTransition(st.state, romaneio.StateFinalizing) {
		from := st.state
		st.mu.Unlock()
		return nil, &romaneio.TransitionError{From: from, To: romaneio.StateFinalizing}
	}
	prev := st.state
	items := st.cart.Items()
	st.state = romaneio.StateFinalizing
	st.mu.Unlock()

	restore := func(state romaneio.State) {
		st.mu.Lock()
		st.state = state
		st.mu.Unlock()
	}

	if !req.Force {
		levels, err := s.catalog.StockLevels(ctx)
		if err != nil {
			restore(prev)
			return nil, fmt.Errorf("load stock levels: %w", err)
		}
		if mismatches := cart.StockCheck(items, levels); len(mismatches) > 0 {
			restore(romaneio.StateStockCheck)
			logger.Info("⚠️ Romaneio con faltante de stock", zap.Int("mismatches", len(mismatches)))
			return nil, &StockMismatchError{Mismatches: mismatches}
		}
	}

	result, err := s.finalizer.Finalize(ctx, romaneio.Request{
		Items:        items,
		CustomerName: req.CustomerName,
		ClientID:     req.ClientID,
		Notes:        req.Notes,
	})
	if result == nil {
		restore(prev)
		return nil, err
	}

	s.recorder.RecordFinalize(err == nil, false)
	s.applyResult(st, result, err)
	return result, err
}

// Retry reenvía lo pendiente de un lote. Si es el último lote de la
// estación, también actualiza su estado.
func (s *stationService) Retry(ctx context.Context, station, batchID string) (*models.FinalizeResult, error) {
	st := s.station(station)

	st.mu.Lock()
	local := st.lastResult != nil && st.lastResult.BatchID == batchID
	if local && st.state == romaneio.StateFinalizing {
		st.mu.Unlock()
		return nil, &romaneio.TransitionError{From: romaneio.StateFinalizing, To: romaneio.StateFinalizing}
	}
	// Si el lote ya se descartó del carrito, el reintento no toca la estación
	local = local && st.state == romaneio.StateFailed
	if local {
		st.state = romaneio.StateFinalizing
	}
	st.mu.Unlock()

	result, err := s.finalizer.Retry(ctx, batchID)
	if result == nil {
		if local {
			st.mu.Lock()
			st.state = romaneio.StateFailed
			st.mu.Unlock()
		}
		if errors.Is(err, repository.ErrBatchNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
		}
		return nil, err
	}

	s.recorder.RecordFinalize(err == nil, true)
	if local {
		s.applyResult(st, result, err)
	}
	return result, err
}

func (s *stationService) applyResult(st *stationState, result *models.FinalizeResult, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.lastResult = result
	if err != nil {
		st.state = romaneio.StateFailed
		return
	}
	st.state = romaneio.StateExported
	st.lastDoc = result.Document
	st.cart.Reset()
}

func (s *stationService) LastDocument(station string) (*models.Document, error) {
	st := s.station(station)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.lastDoc == nil {
		return nil, ErrNoDocument
	}
	doc := *st.lastDoc
	return &doc, nil
}

// Document regenera un romaneio ya emitido. Usa el journal local si el lote
// quedó completo y si no lo reconstruye desde los movimientos del backend.
func (s *stationService) Document(ctx context.Context, batchID string) (*models.Document, error) {
	batch, journalErr := s.journal.Get(ctx, batchID)
	if journalErr == nil && len(batch.Remaining()) == 0 {
		doc := batch.Document()
		return &doc, nil
	}

	movements, err := s.api.ListMovements(ctx, models.MovementFilter{Limit: historyScanLimit})
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}

	doc, ok := romaneio.Find(movements, batchID, s.clientNamer(ctx))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if journalErr == nil && batch.CustomerName != "" {
		doc.CustomerName = batch.CustomerName
	}
	return &doc, nil
}

func (s *stationService) History(ctx context.Context, limit int) ([]models.Document, error) {
	movements, err := s.api.ListMovements(ctx, models.MovementFilter{Limit: historyScanLimit})
	if err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}

	docs := romaneio.History(movements, s.clientNamer(ctx))
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	names := s.journalCustomers(ctx)
	for i := range docs {
		if name, ok := names[docs[i].BatchID]; ok {
			docs[i].CustomerName = name
		}
	}
	return docs, nil
}

// journalCustomers nombres tipeados de los lotes que pasaron por este servicio
func (s *stationService) journalCustomers(ctx context.Context) map[string]string {
	batches, err := s.journal.ListRecent(ctx, historyScanLimit)
	if err != nil {
		s.logger.Warn("⚠️ No se pudo leer el journal para el historial", zap.Error(err))
		return nil
	}

	names := make(map[string]string, len(batches))
	for _, b := range batches {
		if b.CustomerName != "" {
			names[b.BatchID] = b.CustomerName
		}
	}
	return names
}

// clientNamer carga los clientes una vez; si falla, el historial usa el nombre por defecto
func (s *stationService) clientNamer(ctx context.Context) romaneio.ClientNamer {
	clients, err := s.catalog.SearchClients(ctx, "")
	if err != nil {
		s.logger.Warn("⚠️ No se pudieron cargar clientes para el historial", zap.Error(err))
		return nil
	}

	names := make(map[int]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return func(id int) string { return names[id] }
}

package romaneio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"romaneio-service/internal/apiclient"
	"romaneio-service/internal/models"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart       = errors.New("romaneio has no items")
	ErrPartialFinalize = errors.New("romaneio partially finalized")
	ErrInvalidItem     = errors.New("romaneio line must have a positive quantity")
)

// MovementCreator es la parte del cliente REST que usa la finalización
type MovementCreator interface {
	CreateMovement(ctx context.Context, in models.MovementCreate) (*models.Movement, error)
}

// Request datos de cierre de un carrito
type Request struct {
	Items        []models.CartItem
	CustomerName string
	ClientID     *int
	Notes        string
}

type Finalizer struct {
	api     MovementCreator
	journal Journal
	logger  *zap.Logger
	now     func() time.Time
}

func NewFinalizer(api MovementCreator, journal Journal, logger *zap.Logger) *Finalizer {
	return &Finalizer{
		api:     api,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// Finalize envía una salida por línea, en orden y de a una. No es atómico:
// si la línea k falla, las anteriores ya quedaron registradas y el error
// es ErrPartialFinalize junto con el detalle de lo pendiente.
func (f *Finalizer) Finalize(ctx context.Context, req Request) (*models.FinalizeResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}
	for _, it := range req.Items {
		if !(it.Quantity > 0) {
			return nil, fmt.Errorf("%w: %q has quantity %v", ErrInvalidItem, it.Name, it.Quantity)
		}
	}

	now := f.now()
	batch := &models.JournalBatch{
		BatchID:      NewBatchID(now),
		CustomerName: strings.TrimSpace(req.CustomerName),
		ClientID:     req.ClientID,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedAt:    now,
	}
	for i, it := range req.Items {
		batch.Items = append(batch.Items, models.JournalItem{
			Position:  i,
			Item:      it,
			Status:    models.ItemPending,
			UpdatedAt: now,
		})
	}

	if err := f.journal.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create journal entry: %w", err)
	}

	f.logger.Info("📦 Finalizando romaneio",
		zap.String("batch_id", batch.BatchID),
		zap.Int("items", len(batch.Items)),
		zap.String("customer", batch.CustomerName))

	return f.send(ctx, batch)
}

// Retry reenvía solo las líneas que no llegaron al backend, con el mismo lote
func (f *Finalizer) Retry(ctx context.Context, batchID string) (*models.FinalizeResult, error) {
	batch, err := f.journal.Get(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load journal entry %s: %w", batchID, err)
	}

	f.logger.Info("🔁 Reintentando romaneio",
		zap.String("batch_id", batch.BatchID),
		zap.Int("remaining", len(batch.Remaining())))

	return f.send(ctx, batch)
}

func (f *Finalizer) send(ctx context.Context, batch *models.JournalBatch) (*models.FinalizeResult, error) {
	logger := f.logger.With(
		zap.String("operation", "finalize_romaneio"),
		zap.String("batch_id", batch.BatchID),
	)

	for i := range batch.Items {
		entry := &batch.Items[i]
		if entry.Status == models.ItemDone {
			continue
		}

		mv, err := f.api.CreateMovement(ctx, f.movementFor(batch, entry.Item))
		if err != nil {
			msg := err.Error()
			if detail, ok := apiclient.Detail(err); ok {
				msg = detail
			}
			entry.Status = models.ItemFailed
			entry.Error = msg
			f.mark(ctx, logger, batch.BatchID, entry)

			result := summarize(batch)
			result.FailedOn = entry.Item.Name
			result.Error = msg

			logger.Error("❌ Falla al registrar línea del romaneio",
				zap.Int("position", entry.Position),
				zap.Int("product_id", entry.Item.ProductID),
				zap.Int("completed", result.Completed),
				zap.Int("total", result.Total),
				zap.Error(err))

			return result, fmt.Errorf("%w: %d of %d items sent, failed on %q: %v",
				ErrPartialFinalize, result.Completed, result.Total, entry.Item.Name, err)
		}

		entry.Status = models.ItemDone
		entry.Error = ""
		entry.MovementID = &mv.ID
		f.mark(ctx, logger, batch.BatchID, entry)
	}

	result := summarize(batch)
	doc := batch.Document()
	result.Document = &doc

	logger.Info("✅ Romaneio finalizado", zap.Int("items", result.Total))
	return result, nil
}

// mark persiste el estado de una línea; una falla del journal no corta el
// envío, solo queda registrada
func (f *Finalizer) mark(ctx context.Context, logger *zap.Logger, batchID string, entry *models.JournalItem) {
	entry.UpdatedAt = f.now()
	if err := f.journal.MarkItem(ctx, batchID, entry.Position, entry.Status, entry.MovementID, entry.Error); err != nil {
		logger.Warn("⚠️ No se pudo actualizar el journal",
			zap.Int("position", entry.Position),
			zap.Error(err))
	}
}

func (f *Finalizer) movementFor(batch *models.JournalBatch, it models.CartItem) models.MovementCreate {
	name := it.Name
	unit := it.Unit
	price := it.UnitPrice
	batchID := batch.BatchID
	notes := movementNotes(batch)

	mv := models.MovementCreate{
		ProductID:           it.ProductID,
		Quantity:            it.Quantity,
		MovementType:        models.MovementOut,
		Notes:               &notes,
		ClientID:            batch.ClientID,
		ProductNameSnapshot: &name,
		UnitPriceSnapshot:   &price,
		UnitSnapshot:        &unit,
		RomaneioID:          &batchID,
	}
	if it.Barcode != nil {
		barcode := *it.Barcode
		mv.ProductBarcodeSnapshot = &barcode
	}
	return mv
}

func movementNotes(batch *models.JournalBatch) string {
	notes := "Romaneio " + batch.BatchID
	if batch.CustomerName != "" {
		notes += customerMarker + batch.CustomerName
	}
	if batch.Notes != "" {
		notes += notesSeparator + batch.Notes
	}
	return notes
}

func summarize(batch *models.JournalBatch) *models.FinalizeResult {
	result := &models.FinalizeResult{
		BatchID:   batch.BatchID,
		Total:     len(batch.Items),
		Completed: batch.CompletedCount(),
	}
	for _, it := range batch.Remaining() {
		result.Pending = append(result.Pending, it.Item)
	}
	return result
}

package romaneio

import (
	"context"

	"romaneio-service/internal/models"
)

// Journal guarda el avance de cada finalización para poder informar
// "k de n" y reintentar solo lo que falta
type Journal interface {
	Create(ctx context.Context, batch *models.JournalBatch) error
	MarkItem(ctx context.Context, batchID string, position int, status models.ItemStatus, movementID *int, errMsg string) error
	Get(ctx context.Context, batchID string) (*models.JournalBatch, error)
	ListRecent(ctx context.Context, limit int) ([]models.JournalBatch, error)
}

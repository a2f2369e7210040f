package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"romaneio-service/internal/models"
)

// MemoryJournal journal en memoria para estaciones sin base de datos.
// Se pierde al reiniciar el proceso.
type MemoryJournal struct {
	mu      sync.RWMutex
	batches map[string]*models.JournalBatch
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{batches: make(map[string]*models.JournalBatch)}
}

func (m *MemoryJournal) Create(ctx context.Context, batch *models.JournalBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.batches[batch.BatchID]; exists {
		return fmt.Errorf("batch %s already exists", batch.BatchID)
	}
	m.batches[batch.BatchID] = cloneBatch(batch)
	return nil
}

func (m *MemoryJournal) MarkItem(ctx context.Context, batchID string, position int, status models.ItemStatus, movementID *int, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return ErrBatchNotFound
	}
	for i := range batch.Items {
		if batch.Items[i].Position == position {
			batch.Items[i].Status = status
			batch.Items[i].Error = errMsg
			batch.Items[i].UpdatedAt = time.Now()
			if movementID != nil {
				id := *movementID
				batch.Items[i].MovementID = &id
			}
			return nil
		}
	}
	return fmt.Errorf("item %d of %s: %w", position, batchID, ErrBatchNotFound)
}

func (m *MemoryJournal) Get(ctx context.Context, batchID string) (*models.JournalBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return nil, ErrBatchNotFound
	}
	return cloneBatch(batch), nil
}

func (m *MemoryJournal) Close() error { return nil }

func (m *MemoryJournal) ListRecent(ctx context.Context, limit int) ([]models.JournalBatch, error) {
	m.mu.RLock()
	out := make([]models.JournalBatch, 0, len(m.batches))
	for _, b := range m.batches {
		out = append(out, *cloneBatch(b))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneBatch(b *models.JournalBatch) *models.JournalBatch {
	c := *b
	c.Items = make([]models.JournalItem, len(b.Items))
	copy(c.Items, b.Items)
	return &c
}

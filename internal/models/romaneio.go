package models

import "time"

// Document datos de un romaneio listo para exportar
type Document struct {
	BatchID      string     `json:"batch_id,omitempty"`
	CustomerName string     `json:"customer_name"`
	ClientID     *int       `json:"client_id,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
	Items        []CartItem `json:"items"`
}

func (d Document) Totals() CartTotals {
	return TotalsOf(d.Items)
}

type ItemStatus string

const (
	ItemPending ItemStatus = "pending"
	ItemDone    ItemStatus = "done"
	ItemFailed  ItemStatus = "failed"
)

// JournalItem estado de envío de una línea del romaneio
type JournalItem struct {
	Position   int        `json:"position"`
	Item       CartItem   `json:"item"`
	Status     ItemStatus `json:"status"`
	MovementID *int       `json:"movement_id,omitempty"`
	Error      string     `json:"error,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// JournalBatch registro local de una finalización, usado para reintentos
type JournalBatch struct {
	BatchID      string        `json:"batch_id"`
	CustomerName string        `json:"customer_name"`
	ClientID     *int          `json:"client_id,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	Items        []JournalItem `json:"items"`
}

// Remaining devuelve las líneas que aún no llegaron al backend, en orden
func (b *JournalBatch) Remaining() []JournalItem {
	var out []JournalItem
	for _, it := range b.Items {
		if it.Status != ItemDone {
			out = append(out, it)
		}
	}
	return out
}

func (b *JournalBatch) CompletedCount() int {
	n := 0
	for _, it := range b.Items {
		if it.Status == ItemDone {
			n++
		}
	}
	return n
}

func (b *JournalBatch) Document() Document {
	items := make([]CartItem, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, it.Item)
	}
	return Document{
		BatchID:      b.BatchID,
		CustomerName: b.CustomerName,
		ClientID:     b.ClientID,
		Timestamp:    b.CreatedAt,
		Items:        items,
	}
}

// FinalizeResult resultado de una finalización (completa o parcial)
type FinalizeResult struct {
	BatchID   string     `json:"batch_id"`
	Total     int        `json:"total"`
	Completed int        `json:"completed"`
	Pending   []CartItem `json:"pending,omitempty"`
	FailedOn  string     `json:"failed_on,omitempty"`
	Error     string     `json:"error,omitempty"`
	Document  *Document  `json:"document,omitempty"`
}

func (r *FinalizeResult) Done() bool {
	return r.Completed == r.Total
}

package romaneio

import (
	"testing"
	"time"

	"romaneio-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string       { return &s }
func fp(f float64) *float64     { return &f }
func ip(i int) *int             { return &i }
func tp(t time.Time) *time.Time { return &t }

func TestHistory_GroupsByBatchFromSnapshots(t *testing.T) {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	movements := []models.Movement{
		{ID: 3, ProductID: 2, Quantity: 1, MovementType: models.MovementOut, RomaneioID: sp("ROM-1-AAAAAA"),
			ProductNameSnapshot: sp("Feijão"), UnitSnapshot: sp("UN"), UnitPriceSnapshot: fp(8), CreatedAt: tp(base.Add(time.Second)), ClientID: ip(7)},
		{ID: 2, ProductID: 1, Quantity: 2, MovementType: models.MovementOut, RomaneioID: sp("ROM-1-AAAAAA"),
			ProductNameSnapshot: sp("Arroz"), ProductBarcodeSnapshot: sp("789"), UnitSnapshot: sp("UN"), UnitPriceSnapshot: fp(10), CreatedAt: tp(base), ClientID: ip(7)},
		{ID: 5, ProductID: 9, Quantity: 1.5, MovementType: models.MovementOut, RomaneioID: sp("ROM-2-BBBBBB"),
			UnitSnapshot: sp("KG"), CreatedAt: tp(base.Add(time.Hour))},
		{ID: 6, ProductID: 9, Quantity: 10, MovementType: models.MovementIn, CreatedAt: tp(base)},
	}

	names := func(id int) string {
		if id == 7 {
			return "Mercado Central"
		}
		return ""
	}
	docs := History(movements, names)
	require.Len(t, docs, 2)

	assert.Equal(t, "ROM-2-BBBBBB", docs[0].BatchID, "newest first")
	assert.Equal(t, "Consumidor Final", docs[0].CustomerName)
	assert.Equal(t, "Produto Excluído", docs[0].Items[0].Name)

	old := docs[1]
	assert.Equal(t, "Mercado Central", old.CustomerName)
	assert.Equal(t, base, old.Timestamp)
	require.Len(t, old.Items, 2)
	assert.Equal(t, "Arroz", old.Items[0].Name)
	assert.Equal(t, "789", *old.Items[0].Barcode)
	assert.InDelta(t, 28.0, old.Totals().Value, 1e-9)
}

func TestHistory_TypedCustomerFromNotes(t *testing.T) {
	movements := []models.Movement{
		{ID: 1, ProductID: 1, Quantity: 2, MovementType: models.MovementOut, RomaneioID: sp("ROM-3-CCCCCC"),
			Notes: sp("Romaneio ROM-3-CCCCCC - Cliente: Padaria Sol | entregar cedo")},
		{ID: 2, ProductID: 2, Quantity: 1, MovementType: models.MovementOut, RomaneioID: sp("ROM-4-DDDDDD"),
			Notes: sp("Romaneio ROM-4-DDDDDD - Cliente: Ana"), ClientID: ip(7)},
		{ID: 3, ProductID: 2, Quantity: 1, MovementType: models.MovementOut, RomaneioID: sp("ROM-5-EEEEEE"),
			Notes: sp("Romaneio ROM-5-EEEEEE")},
	}
	names := func(id int) string { return "Mercado Central" }

	doc, ok := Find(movements, "ROM-3-CCCCCC", names)
	require.True(t, ok)
	assert.Equal(t, "Padaria Sol", doc.CustomerName)

	doc, ok = Find(movements, "ROM-4-DDDDDD", names)
	require.True(t, ok)
	assert.Equal(t, "Ana", doc.CustomerName, "typed name wins over the linked client")

	doc, ok = Find(movements, "ROM-5-EEEEEE", names)
	require.True(t, ok)
	assert.Equal(t, "Consumidor Final", doc.CustomerName)
}

func TestCustomerFromNotes(t *testing.T) {
	assert.Equal(t, "Padaria Sol", customerFromNotes("Romaneio ROM-1-AAAAAA - Cliente: Padaria Sol | obs"))
	assert.Equal(t, "Ana", customerFromNotes("Romaneio ROM-1-AAAAAA - Cliente: Ana"))
	assert.Empty(t, customerFromNotes("Romaneio ROM-1-AAAAAA | obs"))
	assert.Empty(t, customerFromNotes(""))
}

func TestFind(t *testing.T) {
	movements := []models.Movement{
		{ID: 1, ProductID: 1, Quantity: 1, MovementType: models.MovementOut, RomaneioID: sp("ROM-1-AAAAAA")},
	}

	doc, ok := Find(movements, "ROM-1-AAAAAA", nil)
	assert.True(t, ok)
	assert.Len(t, doc.Items, 1)

	_, ok = Find(movements, "ROM-9-ZZZZZZ", nil)
	assert.False(t, ok)
}

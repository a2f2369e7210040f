package romaneio

import (
	"sort"
	"strings"

	"romaneio-service/internal/models"
)

const (
	deletedProductName = "Produto Excluído"
	defaultCustomer    = "Consumidor Final"

	customerMarker = " - Cliente: "
	notesSeparator = " | "
)

// ClientNamer resuelve el nombre de un cliente por id; "" si no lo conoce
type ClientNamer func(id int) string

// History reagrupa las salidas con romaneio_id en documentos, usando solo
// los datos congelados en cada movimiento. El más reciente va primero.
func History(movements []models.Movement, clientName ClientNamer) []models.Document {
	type group struct {
		doc   models.Document
		moves []models.Movement
	}
	groups := map[string]*group{}

	for _, m := range movements {
		if m.RomaneioID == nil || *m.RomaneioID == "" || m.MovementType != models.MovementOut {
			continue
		}
		id := *m.RomaneioID
		g, ok := groups[id]
		if !ok {
			g = &group{doc: models.Document{BatchID: id}}
			groups[id] = g
		}
		g.moves = append(g.moves, m)
	}

	docs := make([]models.Document, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.moves, func(i, j int) bool { return g.moves[i].ID < g.moves[j].ID })

		doc := g.doc
		for _, m := range g.moves {
			if m.CreatedAt != nil && (doc.Timestamp.IsZero() || m.CreatedAt.Before(doc.Timestamp)) {
				doc.Timestamp = *m.CreatedAt
			}
			if doc.ClientID == nil && m.ClientID != nil {
				id := *m.ClientID
				doc.ClientID = &id
			}
			doc.Items = append(doc.Items, itemFromSnapshot(m))
		}

		doc.CustomerName = customerFor(g.moves, doc.ClientID, clientName)
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Timestamp.Equal(docs[j].Timestamp) {
			return docs[i].BatchID > docs[j].BatchID
		}
		return docs[i].Timestamp.After(docs[j].Timestamp)
	})
	return docs
}

// Find devuelve el documento de un lote
func Find(movements []models.Movement, batchID string, clientName ClientNamer) (models.Document, bool) {
	for _, doc := range History(movements, clientName) {
		if doc.BatchID == batchID {
			return doc, true
		}
	}
	return models.Document{}, false
}

// customerFor usa el nombre tipeado que quedó en las notas; si no hay, el
// del cliente vinculado y por último el nombre por defecto
func customerFor(moves []models.Movement, clientID *int, clientName ClientNamer) string {
	for _, m := range moves {
		if m.Notes == nil {
			continue
		}
		if name := customerFromNotes(*m.Notes); name != "" {
			return name
		}
	}
	if clientID != nil && clientName != nil {
		if name := clientName(*clientID); name != "" {
			return name
		}
	}
	return defaultCustomer
}

// customerFromNotes extrae el cliente de "Romaneio <id> - Cliente: <nombre> | <obs>"
func customerFromNotes(notes string) string {
	i := strings.Index(notes, customerMarker)
	if i < 0 {
		return ""
	}
	name := notes[i+len(customerMarker):]
	if j := strings.Index(name, notesSeparator); j >= 0 {
		name = name[:j]
	}
	return strings.TrimSpace(name)
}

func itemFromSnapshot(m models.Movement) models.CartItem {
	item := models.CartItem{
		ProductID: m.ProductID,
		Name:      deletedProductName,
		Quantity:  m.Quantity,
	}
	if m.ProductNameSnapshot != nil && *m.ProductNameSnapshot != "" {
		item.Name = *m.ProductNameSnapshot
	}
	if m.ProductBarcodeSnapshot != nil && *m.ProductBarcodeSnapshot != "" {
		barcode := *m.ProductBarcodeSnapshot
		item.Barcode = &barcode
	}
	if m.UnitSnapshot != nil {
		item.Unit = *m.UnitSnapshot
	}
	if m.UnitPriceSnapshot != nil {
		item.UnitPrice = *m.UnitPriceSnapshot
	}
	return item
}

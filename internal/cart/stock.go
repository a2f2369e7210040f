package cart

import "romaneio-service/internal/models"

// StockCheck compara las líneas con los niveles de stock conocidos. Es solo
// un aviso: el backend sigue siendo quien decide. Un producto sin nivel
// conocido cuenta como disponible cero.
func StockCheck(items []models.CartItem, levels []models.StockLevel) []models.StockMismatch {
	available := make(map[int]float64, len(levels))
	for _, l := range levels {
		available[l.ProductID] = l.StockQuantity
	}

	mismatches := []models.StockMismatch{}
	for _, it := range items {
		have := available[it.ProductID]
		if it.Quantity > have {
			mismatches = append(mismatches, models.StockMismatch{
				ProductID:   it.ProductID,
				ProductName: it.Name,
				Available:   have,
				Requested:   it.Quantity,
				Unit:        it.Unit,
			})
		}
	}
	return mismatches
}

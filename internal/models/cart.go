package models

// CartItem línea del romaneio. Nombre, código, unidad y precio son una
// copia tomada al agregar el producto y no se refrescan después.
type CartItem struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Barcode   *string `json:"barcode"`
	Unit      string  `json:"unit"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * i.Quantity
}

// CartTotals totales recalculados a partir de las líneas
type CartTotals struct {
	Lines    int     `json:"lines"`
	Quantity float64 `json:"quantity"`
	Value    float64 `json:"value"`
}

func TotalsOf(items []CartItem) CartTotals {
	t := CartTotals{Lines: len(items)}
	for _, it := range items {
		t.Quantity += it.Quantity
		t.Value += it.Subtotal()
	}
	return t
}

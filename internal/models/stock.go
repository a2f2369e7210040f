package models

// StockLevel representa GET /inventory/stock-levels
type StockLevel struct {
	ProductID     int     `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Barcode       *string `json:"barcode,omitempty"`
	StockQuantity float64 `json:"stock_quantity"`
	MinStock      float64 `json:"min_stock"`
	Unit          string  `json:"unit"`
	IsLowStock    bool    `json:"is_low_stock"`
}

// StockMismatch línea del carrito que pide más de lo disponible
type StockMismatch struct {
	ProductID   int     `json:"product_id"`
	ProductName string  `json:"product_name"`
	Available   float64 `json:"available"`
	Requested   float64 `json:"requested"`
	Unit        string  `json:"unit"`
}

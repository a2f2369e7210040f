package models

import "time"

// Product representa un producto tal como lo devuelve el backend
type Product struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	SKU           *string    `json:"sku,omitempty"`
	Barcode       *string    `json:"barcode,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Price         float64    `json:"price"`
	CostPrice     *float64   `json:"cost_price,omitempty"`
	StockQuantity float64    `json:"stock_quantity"`
	MinStock      float64    `json:"min_stock"`
	Unit          string     `json:"unit"`
	CategoryID    *int       `json:"category_id,omitempty"`
	ImageBase64   *string    `json:"image_base64,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// BarcodeValue devuelve el código de barras o "" si no tiene
func (p *Product) BarcodeValue() string {
	if p == nil || p.Barcode == nil {
		return ""
	}
	return *p.Barcode
}

// ProductPage respuesta paginada de GET /products/
type ProductPage struct {
	Items   []Product `json:"items"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	Pages   int       `json:"pages"`
}

// ProductInput cuerpo de creación/actualización; campos nil no se envían
type ProductInput struct {
	Name          *string  `json:"name,omitempty"`
	SKU           *string  `json:"sku,omitempty"`
	Barcode       *string  `json:"barcode,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	CostPrice     *float64 `json:"cost_price,omitempty"`
	StockQuantity *float64 `json:"stock_quantity,omitempty"`
	MinStock      *float64 `json:"min_stock,omitempty"`
	Unit          *string  `json:"unit,omitempty"`
	CategoryID    *int     `json:"category_id,omitempty"`
	ImageBase64   *string  `json:"image_base64,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
}

// ProductFilter parámetros de GET /products/
type ProductFilter struct {
	Page       int
	PerPage    int
	Search     string
	CategoryID *int
	SortBy     string
	Order      string
}

package models

import "strings"

// ===== REQUEST DTOs =====

// LoginRequest DTO para login de la estación
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AddItemRequest agrega un producto por id (acción manual de la tabla de stock)
type AddItemRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
}

// ScanRequest código capturado por el lector o tipeado en el campo de código
type ScanRequest struct {
	Code string `json:"code" validate:"required,min=1,max=128"`
}

// SetQuantityRequest valor crudo del campo de cantidad, tal como se tipeó
type SetQuantityRequest struct {
	Quantity string `json:"quantity" validate:"max=32"`
}

// IncrementRequest control +/- de la línea
type IncrementRequest struct {
	Delta float64 `json:"delta" validate:"required,ne=0"`
}

// FinalizeRequest confirma el romaneio
type FinalizeRequest struct {
	CustomerName string `json:"customer_name" validate:"max=150"`
	ClientID     *int   `json:"client_id" validate:"omitempty,gt=0"`
	Notes        string `json:"notes" validate:"max=500"`
	Force        bool   `json:"force"`
}

// CreateProductRequest alta de producto desde la estación; tras un código no
// registrado llega con el código de barras ya cargado
type CreateProductRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	SKU           string  `json:"sku" validate:"max=64"`
	Barcode       string  `json:"barcode" validate:"max=64"`
	Description   string  `json:"description" validate:"max=1000"`
	Price         float64 `json:"price" validate:"gte=0"`
	CostPrice     float64 `json:"cost_price" validate:"gte=0"`
	StockQuantity float64 `json:"stock_quantity" validate:"gte=0"`
	MinStock      float64 `json:"min_stock" validate:"gte=0"`
	Unit          string  `json:"unit" validate:"max=10"`
	CategoryID    *int    `json:"category_id" validate:"omitempty,gt=0"`
}

// NewProductDraft formulario de alta para un código leído que no existe
func NewProductDraft(code string) *CreateProductRequest {
	return &CreateProductRequest{Barcode: strings.TrimSpace(code), Unit: "UN"}
}

// Input arma el cuerpo para el backend; los textos vacíos van como null
func (r CreateProductRequest) Input() ProductInput {
	name := strings.TrimSpace(r.Name)
	unit := strings.ToUpper(strings.TrimSpace(r.Unit))
	if unit == "" {
		unit = "UN"
	}
	price, cost := r.Price, r.CostPrice
	stock, minStock := r.StockQuantity, r.MinStock
	return ProductInput{
		Name:          &name,
		SKU:           optional(r.SKU),
		Barcode:       optional(r.Barcode),
		Description:   optional(r.Description),
		Price:         &price,
		CostPrice:     &cost,
		StockQuantity: &stock,
		MinStock:      &minStock,
		Unit:          &unit,
		CategoryID:    r.CategoryID,
	}
}

// CreateClientRequest alta de cliente destino del romaneio
type CreateClientRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=30"`
	Document string `json:"document" validate:"max=30"`
	Email    string `json:"email" validate:"omitempty,email,max=150"`
	Notes    string `json:"notes" validate:"max=500"`
}

func (r CreateClientRequest) Input() ClientInput {
	name := strings.TrimSpace(r.Name)
	return ClientInput{
		Name:     &name,
		Phone:    optional(r.Phone),
		Document: optional(r.Document),
		Email:    optional(r.Email),
		Notes:    optional(r.Notes),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ExportQuery formato de exportación
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=text whatsapp a4 thermal"`
}

// ===== RESPONSE DTOs =====

// CartResponse estado del carrito
type CartResponse struct {
	Items  []CartItem `json:"items"`
	Totals CartTotals `json:"totals"`
	State  string     `json:"state"`
}

// ResolveResponse resultado de la resolución de un código
type ResolveResponse struct {
	Code       string    `json:"code"`
	Outcome    string    `json:"outcome"`
	Product    *Product  `json:"product,omitempty"`
	Candidates []Product `json:"candidates,omitempty"`
	Degraded   bool      `json:"degraded,omitempty"`
	Message    string    `json:"message,omitempty"`

	// Draft prellena el alta de producto cuando el código no existe
	Draft *CreateProductRequest `json:"draft,omitempty"`
}

// StockCheckResponse resultado de la verificación previa de stock
type StockCheckResponse struct {
	OK         bool            `json:"ok"`
	Mismatches []StockMismatch `json:"mismatches"`
}

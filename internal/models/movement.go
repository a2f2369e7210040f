package models

import (
	"time"
)

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Movement representa un movimiento de inventario; los campos *Snapshot
// congelan los datos del producto al momento del romaneio
type Movement struct {
	ID                     int          `json:"id"`
	ProductID              int          `json:"product_id"`
	Quantity               float64      `json:"quantity"`
	MovementType           MovementType `json:"movement_type"`
	Notes                  *string      `json:"notes,omitempty"`
	ClientID               *int         `json:"client_id,omitempty"`
	CreatedBy              *int         `json:"created_by,omitempty"`
	CreatedAt              *time.Time   `json:"created_at,omitempty"`
	ProductNameSnapshot    *string      `json:"product_name_snapshot,omitempty"`
	ProductBarcodeSnapshot *string      `json:"product_barcode_snapshot,omitempty"`
	UnitPriceSnapshot      *float64     `json:"unit_price_snapshot,omitempty"`
	UnitSnapshot           *string      `json:"unit_snapshot,omitempty"`
	RomaneioID             *string      `json:"romaneio_id,omitempty"`
}

// MovementCreate cuerpo de POST /inventory/movements
type MovementCreate struct {
	ProductID              int          `json:"product_id"`
	Quantity               float64      `json:"quantity"`
	MovementType           MovementType `json:"movement_type"`
	Notes                  *string      `json:"notes"`
	ClientID               *int         `json:"client_id,omitempty"`
	ProductNameSnapshot    *string      `json:"product_name_snapshot,omitempty"`
	ProductBarcodeSnapshot *string      `json:"product_barcode_snapshot,omitempty"`
	UnitPriceSnapshot      *float64     `json:"unit_price_snapshot,omitempty"`
	UnitSnapshot           *string      `json:"unit_snapshot,omitempty"`
	RomaneioID             *string      `json:"romaneio_id,omitempty"`
}

// MovementFilter filtros para GET /inventory/movements
type MovementFilter struct {
	ProductID *int
	Skip      int
	Limit     int
}

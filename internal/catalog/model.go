package catalog

import "time"

// MovementType enumerates stock ledger entry kinds.
type MovementType string

const (
	// MovementSale is stock leaving through an order.
	MovementSale MovementType = "SALE"
	// MovementIn is stock received or counted up.
	MovementIn MovementType = "IN"
	// MovementOut is stock written off or counted down.
	MovementOut MovementType = "OUT"
	// MovementReturn is stock given back when an order's quantities shrink.
	MovementReturn MovementType = "RETURN"
)

// Ledger references for movements that are not tied to an order.
const (
	RefInitial  = "INITIAL"
	RefSettings = "SETTINGS"
	RefManual   = "MANUAL"
)

// Product is a name-keyed inventory item.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Stock     int64     `json:"stock"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Movement is one append-only stock ledger entry.
type Movement struct {
	ID        int64        `json:"id"`
	ProductID int64        `json:"productId"`
	Quantity  int64        `json:"quantity"`
	Type      MovementType `json:"type"`
	Ref       string       `json:"ref"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// CreateProductInput carries a new product from the settings page.
type CreateProductInput struct {
	Name  string `json:"name" validate:"required"`
	Stock int64  `json:"stock" validate:"gte=0"`
}

// UpdateProductInput changes name and/or stock. Nil fields are left alone.
type UpdateProductInput struct {
	Name  *string `json:"name"`
	Stock *int64  `json:"stock" validate:"omitempty,gte=0"`
}

// AdjustStockInput is a manual stock correction.
type AdjustStockInput struct {
	Delta int64  `json:"delta" validate:"ne=0"`
	Note  string `json:"note"`
}

package catalog

import (
	"context"
	"strings"

	"github.com/carecrm/carecrm/internal/shared"
)

// StockStore is the row-locked view of products inside one transaction.
// Products returned by the Lock methods stay locked until the transaction ends.
type StockStore interface {
	LockProductByID(ctx context.Context, id int64) (Product, error)
	// LockProductsByName locks every product whose name is listed, in id
	// order, and returns them keyed by name. Unknown names are absent.
	LockProductsByName(ctx context.Context, names []string) (map[string]Product, error)
	SetStock(ctx context.Context, productID, stock int64) error
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

// Apply is the only way stock changes. It refuses to go below zero and
// writes exactly one movement for the delta. p must be locked in store.
func Apply(ctx context.Context, store StockStore, p *Product, delta int64, typ MovementType, ref, note string) (Movement, error) {
	if delta == 0 {
		return Movement{}, shared.Validation("delta", "delta must be a non-zero integer")
	}
	next := p.Stock + delta
	if next < 0 {
		return Movement{}, &shared.InsufficientStockError{ProductName: p.Name, Available: p.Stock, Required: -delta}
	}
	if err := store.SetStock(ctx, p.ID, next); err != nil {
		return Movement{}, err
	}
	mv, err := store.InsertMovement(ctx, Movement{
		ProductID: p.ID,
		Quantity:  delta,
		Type:      typ,
		Ref:       ref,
		Note:      strings.TrimSpace(note),
	})
	if err != nil {
		return Movement{}, err
	}
	p.Stock = next
	return mv, nil
}

// AdjustmentType picks IN or OUT from the sign of delta.
func AdjustmentType(delta int64) MovementType {
	if delta > 0 {
		return MovementIn
	}
	return MovementOut
}

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/carecrm/carecrm/internal/shared"
)

const (
	defaultMovementLimit = 50
	maxMovementLimit     = 500
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error)
	EnsureProducts(ctx context.Context, names []string) (int, error)
}

// MetricsPort counts ledger writes.
type MetricsPort interface {
	StockMoved(movementType string)
}

// Service coordinates catalog operations.
type Service struct {
	repo     RepositoryPort
	audit    shared.AuditRecorder
	metrics  MetricsPort
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, metrics MetricsPort) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, metrics: metrics, validate: shared.NewValidator()}
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a product. Opening stock is booked as an IN movement so the
// ledger sums to the counter from the first row.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := shared.ValidateStruct(s.validate, input); err != nil {
		return Product{}, err
	}
	var product Product
	var moved []MovementType
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		product, err = tx.InsertProduct(ctx, input.Name)
		if err != nil {
			return err
		}
		if input.Stock > 0 {
			if _, err := Apply(ctx, tx, &product, input.Stock, MovementIn, RefInitial, ""); err != nil {
				return err
			}
			moved = append(moved, MovementIn)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.countMovements(moved)
	s.record(ctx, "product.create", product.ID, map[string]any{"name": product.Name, "stock": product.Stock})
	return product, nil
}

// Update renames a product and/or sets its stock. A stock change is booked
// as the IN/OUT difference against the locked current value.
func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return Product{}, shared.Validation("name", "name is required")
		}
		input.Name = &trimmed
	}
	if err := shared.ValidateStruct(s.validate, input); err != nil {
		return Product{}, err
	}
	var product Product
	var moved []MovementType
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		product, err = tx.LockProductByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil && *input.Name != product.Name {
			if err := tx.RenameProduct(ctx, id, *input.Name); err != nil {
				return err
			}
			product.Name = *input.Name
		}
		if input.Stock != nil && *input.Stock != product.Stock {
			delta := *input.Stock - product.Stock
			typ := AdjustmentType(delta)
			if _, err := Apply(ctx, tx, &product, delta, typ, RefSettings, "settings stock edit"); err != nil {
				return err
			}
			moved = append(moved, typ)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	s.countMovements(moved)
	s.record(ctx, "product.update", product.ID, map[string]any{"name": product.Name, "stock": product.Stock})
	return product, nil
}

// AdjustStock applies a manual, non-zero correction.
func (s *Service) AdjustStock(ctx context.Context, id int64, input AdjustStockInput) (Product, error) {
	if input.Delta == 0 {
		return Product{}, shared.Validation("delta", "delta must be a non-zero integer")
	}
	var product Product
	typ := AdjustmentType(input.Delta)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		product, err = tx.LockProductByID(ctx, id)
		if err != nil {
			return err
		}
		_, err = Apply(ctx, tx, &product, input.Delta, typ, RefManual, input.Note)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.countMovements([]MovementType{typ})
	return product, nil
}

// Movements lists a product's ledger, newest first.
func (s *Service) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if _, err := s.repo.Get(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}
	movements, err := s.repo.ListMovements(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list movements: %w", err)
	}
	if movements == nil {
		movements = []Movement{}
	}
	return movements, nil
}

// EnsureProducts creates any missing names with zero stock.
func (s *Service) EnsureProducts(ctx context.Context, names []string) (int, error) {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	if len(unique) == 0 {
		return 0, nil
	}
	return s.repo.EnsureProducts(ctx, unique)
}

func (s *Service) countMovements(types []MovementType) {
	if s.metrics == nil {
		return
	}
	for _, t := range types {
		s.metrics.StockMoved(string(t))
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "product",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}

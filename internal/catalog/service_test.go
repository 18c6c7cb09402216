package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/carecrm/carecrm/internal/shared"
)

type countingMetrics struct {
	mu    sync.Mutex
	moved map[string]int
}

func (m *countingMetrics) StockMoved(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.moved == nil {
		m.moved = map[string]int{}
	}
	m.moved[t]++
}

func TestCreateBooksInitialStock(t *testing.T) {
	repo := newMemoryRepo()
	metrics := &countingMetrics{}
	svc := NewService(repo, nil, metrics)
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductInput{Name: "  Herbal Tea ", Stock: 12})
	require.NoError(t, err)
	require.Equal(t, "Herbal Tea", product.Name)
	require.EqualValues(t, 12, product.Stock)
	require.EqualValues(t, 12, repo.ledgerSum(product.ID))
	require.Equal(t, 1, metrics.moved["IN"])

	movements, err := svc.Movements(ctx, product.ID, 0)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, RefInitial, movements[0].Ref)

	_, err = svc.Create(ctx, CreateProductInput{Name: "Herbal Tea"})
	var dup *shared.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "product name already exists", dup.Message)
}

func TestCreateWithoutStockWritesNoMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	product, err := svc.Create(context.Background(), CreateProductInput{Name: "Capsules"})
	require.NoError(t, err)
	require.Zero(t, product.Stock)

	movements, err := svc.Movements(context.Background(), product.ID, 10)
	require.NoError(t, err)
	require.Empty(t, movements)
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Create(context.Background(), CreateProductInput{Name: "   ", Stock: 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAdjustStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p := repo.seed("A", 3)

	updated, err := svc.AdjustStock(ctx, p.ID, AdjustStockInput{Delta: 4, Note: "restock"})
	require.NoError(t, err)
	require.EqualValues(t, 7, updated.Stock)

	updated, err = svc.AdjustStock(ctx, p.ID, AdjustStockInput{Delta: -2})
	require.NoError(t, err)
	require.EqualValues(t, 5, updated.Stock)
	require.EqualValues(t, 5, repo.ledgerSum(p.ID))

	movements, err := svc.Movements(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Equal(t, MovementOut, movements[0].Type)
	require.EqualValues(t, -2, movements[0].Quantity)
	require.Equal(t, RefManual, movements[0].Ref)
	require.Equal(t, MovementIn, movements[1].Type)
	require.Equal(t, "restock", movements[1].Note)
}

func TestAdjustStockRejectsZeroAndOverdraw(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p := repo.seed("A", 3)

	_, err := svc.AdjustStock(ctx, p.ID, AdjustStockInput{Delta: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.AdjustStock(ctx, p.ID, AdjustStockInput{Delta: -5})
	var stockErr *shared.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "A", stockErr.ProductName)
	require.EqualValues(t, 3, stockErr.Available)
	require.EqualValues(t, 5, stockErr.Required)

	current, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, current.Stock)
	require.EqualValues(t, 3, repo.ledgerSum(p.ID))

	_, err = svc.AdjustStock(ctx, 999, AdjustStockInput{Delta: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateBooksStockDifference(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p := repo.seed("A", 10)

	name := "A+"
	stock := int64(4)
	updated, err := svc.Update(ctx, p.ID, UpdateProductInput{Name: &name, Stock: &stock})
	require.NoError(t, err)
	require.Equal(t, "A+", updated.Name)
	require.EqualValues(t, 4, updated.Stock)

	movements, err := svc.Movements(ctx, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, MovementOut, movements[0].Type)
	require.EqualValues(t, -6, movements[0].Quantity)
	require.Equal(t, RefSettings, movements[0].Ref)
	require.EqualValues(t, 4, repo.ledgerSum(p.ID))

	same := int64(4)
	_, err = svc.Update(ctx, p.ID, UpdateProductInput{Stock: &same})
	require.NoError(t, err)
	movements, err = svc.Movements(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, movements, 2, "unchanged stock must not write a movement")

	negative := int64(-1)
	_, err = svc.Update(ctx, p.ID, UpdateProductInput{Stock: &negative})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateRenameCollision(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	repo.seed("A", 0)
	b := repo.seed("B", 0)

	name := "A"
	_, err := svc.Update(ctx, b.ID, UpdateProductInput{Name: &name})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestConcurrentAdjustmentsNeverOverdraw(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p := repo.seed("A", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustStock(ctx, p.ID, AdjustStockInput{Delta: -1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, shared.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, succeeded)
	current, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Zero(t, current.Stock)
	require.Zero(t, repo.ledgerSum(p.ID))
}

func TestEnsureProductsSkipsExistingAndBlank(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	repo.seed("A", 1)

	created, err := svc.EnsureProducts(context.Background(), []string{"A", "B", " ", "B", "C "})
	require.NoError(t, err)
	require.Equal(t, 2, created)

	products, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Equal(t, "C", products[2].Name)
}

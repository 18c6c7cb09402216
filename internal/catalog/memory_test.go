package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carecrm/carecrm/internal/shared"
)

// memoryRepo serialises transactions with a mutex in place of row locks and
// restores a snapshot when the callback fails.
type memoryRepo struct {
	mu        sync.Mutex
	products  map[int64]Product
	movements []Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) seed(name string, stock int64) Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p := Product{ID: r.nextID, Name: name, Stock: stock, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.products[p.ID] = p
	if stock != 0 {
		r.nextID++
		r.movements = append(r.movements, Movement{ID: r.nextID, ProductID: p.ID, Quantity: stock, Type: MovementIn, Ref: RefInitial})
	}
	return p
}

func (r *memoryRepo) ledgerSum(productID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, m := range r.movements {
		if m.ProductID == productID {
			sum += m.Quantity
		}
	}
	return sum
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	products := make(map[int64]Product, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	movements := append([]Movement(nil), r.movements...)
	nextID := r.nextID
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.products, r.movements, r.nextID = products, movements, nextID
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.NotFound("product", id)
	}
	return p, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Movement
	for i := len(r.movements) - 1; i >= 0 && len(out) < limit; i-- {
		if r.movements[i].ProductID == productID {
			out = append(out, r.movements[i])
		}
	}
	return out, nil
}

func (r *memoryRepo) EnsureProducts(ctx context.Context, names []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	created := 0
	for _, name := range names {
		if _, ok := r.byName(name); ok {
			continue
		}
		r.nextID++
		r.products[r.nextID] = Product{ID: r.nextID, Name: name}
		created++
	}
	return created, nil
}

func (r *memoryRepo) byName(name string) (Product, bool) {
	for _, p := range r.products {
		if p.Name == name {
			return p, true
		}
	}
	return Product{}, false
}

func (tx *memoryTx) LockProductByID(ctx context.Context, id int64) (Product, error) {
	p, ok := tx.repo.products[id]
	if !ok {
		return Product{}, shared.NotFound("product", id)
	}
	return p, nil
}

func (tx *memoryTx) LockProductsByName(ctx context.Context, names []string) (map[string]Product, error) {
	out := make(map[string]Product, len(names))
	for _, name := range names {
		if p, ok := tx.repo.byName(name); ok {
			out[name] = p
		}
	}
	return out, nil
}

func (tx *memoryTx) SetStock(ctx context.Context, productID, stock int64) error {
	p, ok := tx.repo.products[productID]
	if !ok {
		return shared.NotFound("product", productID)
	}
	p.Stock = stock
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	m.CreatedAt = time.Now()
	tx.repo.movements = append(tx.repo.movements, m)
	return m, nil
}

func (tx *memoryTx) InsertProduct(ctx context.Context, name string) (Product, error) {
	if _, ok := tx.repo.byName(name); ok {
		return Product{}, shared.DuplicateKey("products_name_key")
	}
	tx.repo.nextID++
	p := Product{ID: tx.repo.nextID, Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	tx.repo.products[p.ID] = p
	return p, nil
}

func (tx *memoryTx) RenameProduct(ctx context.Context, id int64, name string) error {
	if other, ok := tx.repo.byName(name); ok && other.ID != id {
		return shared.DuplicateKey("products_name_key")
	}
	p := tx.repo.products[id]
	p.Name = name
	tx.repo.products[id] = p
	return nil
}

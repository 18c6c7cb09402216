package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carecrm/carecrm/internal/platform/db"
	"github.com/carecrm/carecrm/internal/shared"
)

const productColumns = `id, name, stock, created_at, updated_at`

// Repository persists products and the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by Service.
type TxRepository interface {
	StockStore
	InsertProduct(ctx context.Context, name string) (Product, error)
	RenameProduct(ctx context.Context, id int64, name string) error
}

type pgStore struct {
	db db.DBTX
}

// NewStockStore returns a StockStore bound to conn. Pass a pgx.Tx so the
// row locks live as long as the caller's transaction.
func NewStockStore(conn db.DBTX) StockStore {
	return &pgStore{db: conn}
}

// WithTx runs fn in a read-committed transaction with a lock timeout.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxConfig(ctx, r.pool, db.StockTx, func(tx pgx.Tx) error {
		return fn(ctx, &pgStore{db: tx})
	})
}

// List returns every product ordered by name.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get loads a product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFound("product", id)
	}
	return p, err
}

// ListMovements returns the newest ledger entries of a product first.
func (r *Repository) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, quantity, type, ref, COALESCE(note, ''), created_at
FROM stock_movements WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		var typ string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Quantity, &typ, &m.Ref, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

// EnsureProducts inserts missing names with zero stock and reports how many were new.
func (r *Repository) EnsureProducts(ctx context.Context, names []string) (int, error) {
	created := 0
	for _, name := range names {
		tag, err := r.pool.Exec(ctx, `INSERT INTO products (name, stock) VALUES ($1, 0) ON CONFLICT (name) DO NOTHING`, name)
		if err != nil {
			return created, fmt.Errorf("catalog: ensure product %q: %w", name, err)
		}
		created += int(tag.RowsAffected())
	}
	return created, nil
}

func (s *pgStore) LockProductByID(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.NotFound("product", id)
	}
	return p, err
}

func (s *pgStore) LockProductsByName(ctx context.Context, names []string) (map[string]Product, error) {
	out := make(map[string]Product, len(names))
	if len(names) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE name = ANY($1) ORDER BY id FOR UPDATE`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.Name] = p
	}
	return out, rows.Err()
}

func (s *pgStore) SetStock(ctx context.Context, productID, stock int64) error {
	tag, err := s.db.Exec(ctx, `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`, productID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("product", productID)
	}
	return nil
}

func (s *pgStore) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	err := s.db.QueryRow(ctx, `INSERT INTO stock_movements (product_id, quantity, type, ref, note)
VALUES ($1, $2, $3, $4, NULLIF($5, '')) RETURNING id, created_at`,
		m.ProductID, m.Quantity, string(m.Type), m.Ref, m.Note).Scan(&m.ID, &m.CreatedAt)
	return m, err
}

func (s *pgStore) InsertProduct(ctx context.Context, name string) (Product, error) {
	row := s.db.QueryRow(ctx, `INSERT INTO products (name, stock) VALUES ($1, 0) RETURNING `+productColumns, name)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, shared.MapDBError(err)
	}
	return p, nil
}

func (s *pgStore) RenameProduct(ctx context.Context, id int64, name string) error {
	_, err := s.db.Exec(ctx, `UPDATE products SET name = $2, updated_at = NOW() WHERE id = $1`, id, strings.TrimSpace(name))
	return shared.MapDBError(err)
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

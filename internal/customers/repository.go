package customers

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

const customerColumns = `c.id, c.name, c.phone, c.address, c.symptoms, c.social_name, c.contact_method, c.created_at, c.updated_at`

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	ListAll(ctx context.Context) ([]Customer, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Upsert(ctx context.Context, in UpsertInput) (*Customer, bool, error)
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+`, (SELECT COUNT(*) FROM orders o WHERE o.customer_id = c.id)
FROM customers c WHERE c.id = $1`, id)
	c, err := scanCustomer(row, true)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("customer", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers c WHERE c.phone = $1`, phone)
	c, err := scanCustomer(row, false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("customer", phone)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1
	if search := strings.TrimSpace(req.Search); search != "" {
		whereClause = fmt.Sprintf("WHERE (c.name ILIKE $%d OR c.phone ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM customers c %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s, (SELECT COUNT(*) FROM orders o WHERE o.customer_id = c.id)
		FROM customers c
		%s
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows, true)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) ListAll(ctx context.Context) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+customerColumns+`, (SELECT COUNT(*) FROM orders o WHERE o.customer_id = c.id)
FROM customers c ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows, true)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}

var updatableColumns = []string{"name", "phone", "address", "symptoms", "social_name", "contact_method"}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE customers SET updated_at = NOW()"
	var args []interface{}
	argPos := 1
	for _, col := range updatableColumns {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return shared.MapDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("customer", id)
	}
	return nil
}

func (r *repository) Upsert(ctx context.Context, in UpsertInput) (*Customer, bool, error) {
	c, created, err := UpsertByPhone(ctx, r.db, in)
	if err != nil {
		return nil, false, err
	}
	return &c, created, nil
}

// UpsertByPhone creates or updates the customer keyed by phone on conn, so it
// joins whatever transaction conn belongs to. A concurrent first insert of the
// same phone is resolved by the unique constraint and turns into an update.
func UpsertByPhone(ctx context.Context, conn db.DBTX, in UpsertInput) (Customer, bool, error) {
	row := conn.QueryRow(ctx, `
		INSERT INTO customers AS c (name, phone, address, symptoms, social_name, contact_method)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (phone) DO UPDATE SET
			name = EXCLUDED.name,
			address = COALESCE(EXCLUDED.address, c.address),
			symptoms = COALESCE(EXCLUDED.symptoms, c.symptoms),
			social_name = COALESCE(EXCLUDED.social_name, c.social_name),
			contact_method = COALESCE(EXCLUDED.contact_method, c.contact_method),
			updated_at = NOW()
		RETURNING `+customerColumns+`, (xmax = 0)`,
		strings.TrimSpace(in.Name), strings.TrimSpace(in.Phone),
		strings.TrimSpace(in.Address), strings.TrimSpace(in.Symptoms),
		strings.TrimSpace(in.SocialName), strings.TrimSpace(in.ContactMethod))
	var c Customer
	var created bool
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Symptoms, &c.SocialName, &c.ContactMethod, &c.CreatedAt, &c.UpdatedAt, &created)
	if err != nil {
		return Customer{}, false, fmt.Errorf("customers: upsert %s: %w", in.Phone, err)
	}
	return c, created, nil
}

func scanCustomer(row pgx.Row, withCount bool) (Customer, error) {
	var c Customer
	dest := []any{&c.ID, &c.Name, &c.Phone, &c.Address, &c.Symptoms, &c.SocialName, &c.ContactMethod, &c.CreatedAt, &c.UpdatedAt}
	if withCount {
		dest = append(dest, &c.OrderCount)
	}
	err := row.Scan(dest...)
	return c, err
}

package settings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carecrm/carecrm/internal/shared"
)

// Repository stores the settings lists.
type Repository interface {
	List(ctx context.Context, kind Kind) ([]Entry, error)
	Create(ctx context.Context, kind Kind, name string) (Entry, error)
	Delete(ctx context.Context, kind Kind, id int64) error
	Ensure(ctx context.Context, kind Kind, names []string) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, kind Kind) ([]Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM `+table+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, kind Kind, name string) (Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Name: name}
	err = r.pool.QueryRow(ctx, `INSERT INTO `+table+` (name) VALUES ($1) RETURNING id, created_at`, name).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return Entry{}, shared.MapDBError(err)
	}
	return e, nil
}

func (r *repository) Delete(ctx context.Context, kind Kind, id int64) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound(string(kind), id)
	}
	return nil
}

// Ensure inserts the names that are missing and reports how many were added.
func (r *repository) Ensure(ctx context.Context, kind Kind, names []string) (int, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `INSERT INTO `+table+` (name) SELECT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`, names)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func tableFor(kind Kind) (string, error) {
	if t := kind.table(); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("settings: unknown kind %q", kind)
}

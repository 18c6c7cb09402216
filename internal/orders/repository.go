package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carecrm/carecrm/internal/catalog"
	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/platform/db"
	"github.com/carecrm/carecrm/internal/shared"
)

// pendingAfterSalesPredicate is the SQL form of IsPendingAfterSales; $1 is the cutoff day.
const pendingAfterSalesPredicate = `o.arrival_date IS NOT NULL AND o.arrival_date <= $1 AND COALESCE(btrim(o.after_sales_notes), '') = ''`

const orderColumns = `o.id, o.order_id, o.date, o.channel, o.amount, o.shipping_fee, o.logistics, o.arrival_date,
	o.after_sales_notes, o.remarks, o.symptoms, o.social_name, o.contact_method, o.customer_id, o.created_at, o.updated_at,
	c.id, c.name, c.phone, c.address, c.symptoms, c.social_name, c.contact_method, c.created_at, c.updated_at`

const orderFrom = `FROM orders o JOIN customers c ON c.id = o.customer_id`

// Repository is the read side plus the transactional entry point.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListPendingAfterSales(ctx context.Context, cutoff shared.Date) ([]Order, error)
	CountPendingAfterSales(ctx context.Context, cutoff shared.Date) (int, error)
	Totals(ctx context.Context) (count int, sales int64, err error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

// TxRepository is everything order placement and import touch inside one transaction.
type TxRepository interface {
	catalog.StockStore
	UpsertCustomer(ctx context.Context, in customers.UpsertInput) (customers.Customer, bool, error)
	LockOrderByOrderID(ctx context.Context, orderID string) (*Order, error)
	InsertOrder(ctx context.Context, o *Order) error
	UpdateOrderScalars(ctx context.Context, o *Order) error
	InsertItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error)
	ReplaceItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepo struct {
	catalog.StockStore
	db db.DBTX
}

// WithTx runs fn with product rows lockable FOR UPDATE under a lock timeout.
// Serialization failures and deadlocks replay fn a bounded number of times.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxConfig(ctx, r.pool, db.StockTx, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{StockStore: catalog.NewStockStore(tx), db: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("order", id)
	}
	if err != nil {
		return nil, err
	}
	list := []Order{o}
	if err := attachItems(ctx, r.pool, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1
	if search := strings.TrimSpace(req.Search); search != "" {
		whereClause = fmt.Sprintf(`WHERE (o.order_id ILIKE $%[1]d OR c.name ILIKE $%[1]d OR c.phone ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id AND i.product_name ILIKE $%[1]d))`, argPos)
		args = append(args, "%"+search+"%")
		argPos++
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) %s %s", orderFrom, whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY o.date DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, orderFrom, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)
	list, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` `+orderFrom+` ORDER BY o.date DESC, o.id DESC`)
}

func (r *repository) ListPendingAfterSales(ctx context.Context, cutoff shared.Date) ([]Order, error) {
	return r.query(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE `+pendingAfterSalesPredicate+`
ORDER BY o.arrival_date ASC, o.id ASC`, cutoff.Time)
}

func (r *repository) CountPendingAfterSales(ctx context.Context, cutoff shared.Date) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o WHERE `+pendingAfterSalesPredicate, cutoff.Time).Scan(&n)
	return n, err
}

func (r *repository) Totals(ctx context.Context) (int, int64, error) {
	var count int
	var sales int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0)::bigint FROM orders`).Scan(&count, &sales)
	return count, sales, err
}

var updatableColumns = []string{
	"date", "channel", "amount", "shipping_fee", "logistics", "arrival_date",
	"after_sales_notes", "remarks", "symptoms", "social_name", "contact_method",
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE orders SET updated_at = NOW()"
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
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return shared.MapDBError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFound("order", id)
	}
	return nil
}

func (r *repository) query(ctx context.Context, query string, args ...interface{}) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var list []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachItems(ctx, r.pool, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (t *txRepo) UpsertCustomer(ctx context.Context, in customers.UpsertInput) (customers.Customer, bool, error) {
	return customers.UpsertByPhone(ctx, t.db, in)
}

func (t *txRepo) LockOrderByOrderID(ctx context.Context, orderID string) (*Order, error) {
	row := t.db.QueryRow(ctx, `SELECT `+orderColumns+` `+orderFrom+` WHERE o.order_id = $1 FOR UPDATE OF o`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.NotFound("order", orderID)
	}
	if err != nil {
		return nil, err
	}
	list := []Order{o}
	if err := attachItems(ctx, t.db, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (t *txRepo) InsertOrder(ctx context.Context, o *Order) error {
	err := t.db.QueryRow(ctx, `
		INSERT INTO orders (order_id, date, channel, amount, shipping_fee, logistics, arrival_date,
			after_sales_notes, remarks, symptoms, social_name, contact_method, customer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		o.OrderID, o.Date.Time, o.Channel, o.Amount, o.ShippingFee, o.Logistics, dateArg(o.ArrivalDate),
		o.AfterSalesNotes, o.Remarks, o.Symptoms, o.SocialName, o.ContactMethod, o.CustomerID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return shared.MapDBError(err)
}

func (t *txRepo) UpdateOrderScalars(ctx context.Context, o *Order) error {
	err := t.db.QueryRow(ctx, `
		UPDATE orders SET date = $2, channel = $3, amount = $4, shipping_fee = $5, logistics = $6,
			arrival_date = $7, after_sales_notes = $8, remarks = $9, symptoms = $10, social_name = $11,
			contact_method = $12, customer_id = $13, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, o.Date.Time, o.Channel, o.Amount, o.ShippingFee, o.Logistics, dateArg(o.ArrivalDate),
		o.AfterSalesNotes, o.Remarks, o.Symptoms, o.SocialName, o.ContactMethod, o.CustomerID,
	).Scan(&o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFound("order", o.ID)
	}
	return err
}

func (t *txRepo) InsertItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error) {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.OrderID = orderPK
		err := t.db.QueryRow(ctx, `INSERT INTO order_items (order_id, product_id, product_name, quantity)
VALUES ($1, $2, $3, $4) RETURNING id`, orderPK, it.ProductID, it.ProductName, it.Quantity).Scan(&it.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (t *txRepo) ReplaceItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error) {
	if _, err := t.db.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderPK); err != nil {
		return nil, err
	}
	return t.InsertItems(ctx, orderPK, items)
}

func attachItems(ctx context.Context, conn db.DBTX, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	pos := make(map[int64]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		pos[list[i].ID] = i
	}
	rows, err := conn.Query(ctx, `SELECT id, order_id, product_id, product_name, quantity
FROM order_items WHERE order_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity); err != nil {
			return err
		}
		i := pos[it.OrderID]
		list[i].Items = append(list[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range list {
		list[i].withSummary()
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var c customers.Customer
	var date time.Time
	var arrival *time.Time
	err := row.Scan(
		&o.ID, &o.OrderID, &date, &o.Channel, &o.Amount, &o.ShippingFee, &o.Logistics, &arrival,
		&o.AfterSalesNotes, &o.Remarks, &o.Symptoms, &o.SocialName, &o.ContactMethod, &o.CustomerID,
		&o.CreatedAt, &o.UpdatedAt,
		&c.ID, &c.Name, &c.Phone, &c.Address, &c.Symptoms, &c.SocialName, &c.ContactMethod, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	o.Date = shared.NewDate(date)
	if arrival != nil {
		d := shared.NewDate(*arrival)
		o.ArrivalDate = &d
	}
	o.Customer = &c
	return o, nil
}

func dateArg(d *shared.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time
}

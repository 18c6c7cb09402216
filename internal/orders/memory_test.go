package orders

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carecrm/carecrm/internal/catalog"
	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/shared"
)

type memoryState struct {
	products  map[int64]catalog.Product
	movements []catalog.Movement
	customers map[int64]customers.Customer
	orders    map[int64]Order
	nextID    int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		products:  make(map[int64]catalog.Product, len(s.products)),
		movements: append([]catalog.Movement(nil), s.movements...),
		customers: make(map[int64]customers.Customer, len(s.customers)),
		orders:    make(map[int64]Order, len(s.orders)),
		nextID:    s.nextID,
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.customers {
		out.customers[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]Item(nil), v.Items...)
		out.orders[k] = v
	}
	return out
}

// memoryRepo holds one mutex across each transaction in place of row locks
// and rolls the whole state back when the callback fails.
type memoryRepo struct {
	mu    sync.Mutex
	state memoryState
	// failAfterItems injects a storage error once items were written.
	failAfterItems error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: memoryState{
		products:  map[int64]catalog.Product{},
		customers: map[int64]customers.Customer{},
		orders:    map[int64]Order{},
	}}
}

func (r *memoryRepo) id() int64 {
	r.state.nextID++
	return r.state.nextID
}

func (r *memoryRepo) seedProduct(name string, stock int64) catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := catalog.Product{ID: r.id(), Name: name, Stock: stock}
	r.state.products[p.ID] = p
	if stock != 0 {
		r.state.movements = append(r.state.movements, catalog.Movement{ID: r.id(), ProductID: p.ID, Quantity: stock, Type: catalog.MovementIn, Ref: catalog.RefInitial})
	}
	return p
}

func (r *memoryRepo) product(name string) catalog.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.state.products {
		if p.Name == name {
			return p
		}
	}
	return catalog.Product{}
}

func (r *memoryRepo) ledger(productID int64) (sum int64, entries []catalog.Movement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.state.movements {
		if m.ProductID == productID {
			sum += m.Quantity
			entries = append(entries, m)
		}
	}
	return sum, entries
}

func (r *memoryRepo) customerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.customers)
}

func (r *memoryRepo) orderByBusinessID(orderID string) (Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.state.orders {
		if o.OrderID == orderID {
			return r.hydrate(o), true
		}
	}
	return Order{}, false
}

func (r *memoryRepo) hydrate(o Order) Order {
	o.Items = append([]Item(nil), o.Items...)
	if c, ok := r.state.customers[o.CustomerID]; ok {
		o.Customer = &c
	}
	o.withSummary()
	return o
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := r.state.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.state = snapshot
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.state.orders[id]
	if !ok {
		return nil, shared.NotFound("order", id)
	}
	o = r.hydrate(o)
	return &o, nil
}

func (r *memoryRepo) sorted(filter func(Order) bool) []Order {
	var out []Order
	for _, o := range r.state.orders {
		if filter == nil || filter(o) {
			out = append(out, r.hydrate(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memoryRepo) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sorted(func(o Order) bool {
		if req.Search == "" {
			return true
		}
		h := r.hydrate(o)
		return strings.Contains(h.OrderID, req.Search) || strings.Contains(h.Customer.Name, req.Search) ||
			strings.Contains(h.Customer.Phone, req.Search) || strings.Contains(h.ProductName, req.Search)
	})
	total := len(list)
	if req.Offset >= total {
		return nil, total, nil
	}
	end := req.Offset + req.Limit
	if end > total {
		end = total
	}
	return list[req.Offset:end], total, nil
}

func (r *memoryRepo) ListAll(ctx context.Context) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(nil), nil
}

func (r *memoryRepo) ListPendingAfterSales(ctx context.Context, cutoff shared.Date) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sorted(func(o Order) bool { return IsPendingAfterSales(o, cutoff) })
	sort.SliceStable(list, func(i, j int) bool { return list[i].ArrivalDate.Before(list[j].ArrivalDate.Time) })
	return list, nil
}

func (r *memoryRepo) CountPendingAfterSales(ctx context.Context, cutoff shared.Date) (int, error) {
	list, err := r.ListPendingAfterSales(ctx, cutoff)
	return len(list), err
}

func (r *memoryRepo) Totals(ctx context.Context) (int, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sales int64
	for _, o := range r.state.orders {
		sales += o.Amount
	}
	return len(r.state.orders), sales, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.state.orders[id]
	if !ok {
		return shared.NotFound("order", id)
	}
	text := func(dst **string, key string) {
		if v, ok := updates[key]; ok {
			if v == nil {
				*dst = nil
				return
			}
			s := v.(string)
			*dst = &s
		}
	}
	if v, ok := updates["date"]; ok {
		o.Date = shared.NewDate(v.(time.Time))
	}
	if v, ok := updates["arrival_date"]; ok {
		if v == nil {
			o.ArrivalDate = nil
		} else {
			d := shared.NewDate(v.(time.Time))
			o.ArrivalDate = &d
		}
	}
	if v, ok := updates["amount"]; ok {
		o.Amount = v.(int64)
	}
	if v, ok := updates["shipping_fee"]; ok {
		o.ShippingFee = v.(int64)
	}
	text(&o.Channel, "channel")
	text(&o.Logistics, "logistics")
	text(&o.AfterSalesNotes, "after_sales_notes")
	text(&o.Remarks, "remarks")
	text(&o.Symptoms, "symptoms")
	text(&o.SocialName, "social_name")
	text(&o.ContactMethod, "contact_method")
	r.state.orders[id] = o
	return nil
}

func (tx *memoryTx) LockProductByID(ctx context.Context, id int64) (catalog.Product, error) {
	p, ok := tx.repo.state.products[id]
	if !ok {
		return catalog.Product{}, shared.NotFound("product", id)
	}
	return p, nil
}

func (tx *memoryTx) LockProductsByName(ctx context.Context, names []string) (map[string]catalog.Product, error) {
	out := map[string]catalog.Product{}
	for _, p := range tx.repo.state.products {
		for _, n := range names {
			if p.Name == n {
				out[n] = p
			}
		}
	}
	return out, nil
}

func (tx *memoryTx) SetStock(ctx context.Context, productID, stock int64) error {
	p := tx.repo.state.products[productID]
	p.Stock = stock
	tx.repo.state.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m catalog.Movement) (catalog.Movement, error) {
	m.ID = tx.repo.id()
	tx.repo.state.movements = append(tx.repo.state.movements, m)
	return m, nil
}

func (tx *memoryTx) UpsertCustomer(ctx context.Context, in customers.UpsertInput) (customers.Customer, bool, error) {
	set := func(dst **string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = &v
		}
	}
	for id, c := range tx.repo.state.customers {
		if c.Phone == in.Phone {
			c.Name = in.Name
			set(&c.Address, in.Address)
			set(&c.Symptoms, in.Symptoms)
			set(&c.SocialName, in.SocialName)
			set(&c.ContactMethod, in.ContactMethod)
			tx.repo.state.customers[id] = c
			return c, false, nil
		}
	}
	c := customers.Customer{ID: tx.repo.id(), Name: in.Name, Phone: in.Phone}
	set(&c.Address, in.Address)
	set(&c.Symptoms, in.Symptoms)
	set(&c.SocialName, in.SocialName)
	set(&c.ContactMethod, in.ContactMethod)
	tx.repo.state.customers[c.ID] = c
	return c, true, nil
}

func (tx *memoryTx) LockOrderByOrderID(ctx context.Context, orderID string) (*Order, error) {
	for _, o := range tx.repo.state.orders {
		if o.OrderID == orderID {
			o = tx.repo.hydrate(o)
			return &o, nil
		}
	}
	return nil, shared.NotFound("order", orderID)
}

func (tx *memoryTx) InsertOrder(ctx context.Context, o *Order) error {
	for _, existing := range tx.repo.state.orders {
		if existing.OrderID == o.OrderID {
			return shared.DuplicateKey("orders_order_id_key")
		}
	}
	o.ID = tx.repo.id()
	stored := *o
	stored.Items = nil
	stored.Customer = nil
	tx.repo.state.orders[o.ID] = stored
	return nil
}

func (tx *memoryTx) UpdateOrderScalars(ctx context.Context, o *Order) error {
	stored, ok := tx.repo.state.orders[o.ID]
	if !ok {
		return shared.NotFound("order", o.ID)
	}
	items := stored.Items
	stored = *o
	stored.Items = items
	stored.Customer = nil
	tx.repo.state.orders[o.ID] = stored
	return nil
}

func (tx *memoryTx) InsertItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error) {
	stored := tx.repo.state.orders[orderPK]
	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.ID = tx.repo.id()
		it.OrderID = orderPK
		out = append(out, it)
	}
	stored.Items = append(stored.Items, out...)
	tx.repo.state.orders[orderPK] = stored
	if tx.repo.failAfterItems != nil {
		return nil, tx.repo.failAfterItems
	}
	return out, nil
}

func (tx *memoryTx) ReplaceItems(ctx context.Context, orderPK int64, items []Item) ([]Item, error) {
	stored := tx.repo.state.orders[orderPK]
	stored.Items = nil
	tx.repo.state.orders[orderPK] = stored
	return tx.InsertItems(ctx, orderPK, items)
}

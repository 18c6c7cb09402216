package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/carecrm/carecrm/internal/catalog"
	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/platform/db"
	"github.com/carecrm/carecrm/internal/shared"
)

// MetricsPort receives business counters.
type MetricsPort interface {
	OrderPlaced()
	OrderRejected(reason string)
	StockMoved(movementType string)
}

// Invalidator is bumped whenever orders change cached dashboard numbers.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// ServiceConfig groups tunables.
type ServiceConfig struct {
	AfterSalesDelayDays int
	Location            *time.Location
}

// Service coordinates order placement, edits and the after-sales workflow.
type Service struct {
	repo     Repository
	rule     AfterSalesRule
	audit    shared.AuditRecorder
	metrics  MetricsPort
	cache    Invalidator
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, cfg ServiceConfig, audit shared.AuditRecorder, metrics MetricsPort, cache Invalidator) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{
		repo:     repo,
		rule:     AfterSalesRule{DelayDays: cfg.AfterSalesDelayDays, Location: cfg.Location},
		audit:    audit,
		metrics:  metrics,
		cache:    cache,
		validate: shared.NewValidator(),
		now:      time.Now,
	}
}

// Rule exposes the after-sales rule in effect.
func (s *Service) Rule() AfterSalesRule {
	return s.rule
}

// PlaceOrder validates items against stock and writes the customer, the order,
// its items, the stock decrements and their SALE movements in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		s.reject(err)
		return nil, err
	}
	items, err := NormalizeItems(req.Items, req.ProductName, req.Quantity)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	now := s.now()
	order := Order{
		OrderID:       strings.TrimSpace(req.OrderID),
		Date:          s.dateOrToday(req.Date, now),
		Channel:       textPtr(req.Channel),
		Amount:        req.Amount,
		ShippingFee:   req.ShippingFee,
		Logistics:     textPtr(req.Logistics),
		ArrivalDate:   datePtr(req.ArrivalDate),
		Remarks:       textPtr(req.Remarks),
		Symptoms:      textPtr(req.Symptoms),
		SocialName:    textPtr(req.SocialName),
		ContactMethod: textPtr(req.ContactMethod),
	}
	if order.OrderID == "" {
		order.OrderID = NewOrderID(now.In(s.rule.Location))
	}
	cust := customers.UpsertInput{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		Symptoms:      req.Symptoms,
		SocialName:    req.SocialName,
		ContactMethod: req.ContactMethod,
	}

	var moved int
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		moved = 0
		c, _, err := tx.UpsertCustomer(ctx, cust)
		if err != nil {
			return err
		}
		products, err := lockForSale(ctx, tx, items)
		if err != nil {
			return err
		}
		order.CustomerID = c.ID
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}
		lines := make([]Item, 0, len(items))
		for _, it := range items {
			p := products[it.ProductName]
			lines = append(lines, Item{ProductID: p.ID, ProductName: p.Name, Quantity: it.Quantity})
		}
		if order.Items, err = tx.InsertItems(ctx, order.ID, lines); err != nil {
			return err
		}
		for _, it := range items {
			p := products[it.ProductName]
			if _, err := catalog.Apply(ctx, tx, &p, -it.Quantity, catalog.MovementSale, order.OrderID, ""); err != nil {
				return err
			}
			moved++
		}
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	s.afterOrderWrite(ctx, catalog.MovementSale, moved)
	if s.metrics != nil {
		s.metrics.OrderPlaced()
	}
	return s.repo.Get(ctx, order.ID)
}

// lockForSale locks every named product and checks stock before anything is written.
func lockForSale(ctx context.Context, tx TxRepository, items []ItemInput) (map[string]catalog.Product, error) {
	products, err := tx.LockProductsByName(ctx, itemNames(items))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		p, ok := products[it.ProductName]
		if !ok {
			return nil, &shared.ProductNotFoundError{ProductName: it.ProductName}
		}
		if p.Stock < it.Quantity {
			return nil, &shared.InsufficientStockError{ProductName: p.Name, Available: p.Stock, Required: it.Quantity}
		}
	}
	return products, nil
}

// UpdateOrder applies a sparse patch. Items and stock are never touched.
func (s *Service) UpdateOrder(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates, err := patchColumns(req)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return existing, nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "order.update", existing.OrderID, auditMeta(updates))
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

func patchColumns(req UpdateOrderRequest) (map[string]interface{}, error) {
	updates := make(map[string]interface{})
	if req.Date.Set {
		if req.Date.Null || req.Date.Value.IsZero() {
			return nil, shared.Validation("date", "date is required")
		}
		updates["date"] = req.Date.Value.Time
	}
	if req.Amount.Set {
		if req.Amount.Null || req.Amount.Value < 0 {
			return nil, shared.Validation("amount", "amount must be at least 0")
		}
		updates["amount"] = req.Amount.Value
	}
	if req.ShippingFee.Set {
		if req.ShippingFee.Null || req.ShippingFee.Value < 0 {
			return nil, shared.Validation("shippingFee", "shippingFee must be at least 0")
		}
		updates["shipping_fee"] = req.ShippingFee.Value
	}
	if req.ArrivalDate.Set {
		if req.ArrivalDate.Null || req.ArrivalDate.Value.IsZero() {
			updates["arrival_date"] = nil
		} else {
			updates["arrival_date"] = req.ArrivalDate.Value.Time
		}
	}
	patchText(updates, "channel", req.Channel)
	patchText(updates, "logistics", req.Logistics)
	patchText(updates, "after_sales_notes", req.AfterSalesNotes)
	patchText(updates, "remarks", req.Remarks)
	patchText(updates, "symptoms", req.Symptoms)
	patchText(updates, "social_name", req.SocialName)
	patchText(updates, "contact_method", req.ContactMethod)
	return updates, nil
}

func patchText(updates map[string]interface{}, column string, v shared.Optional[string]) {
	if !v.Set {
		return
	}
	if v.Null || strings.TrimSpace(v.Value) == "" {
		updates[column] = nil
		return
	}
	updates[column] = strings.TrimSpace(v.Value)
}

// RecordAfterSalesNote marks an order as contacted. Blank notes are rejected.
func (s *Service) RecordAfterSalesNote(ctx context.Context, id int64, notes string) (*Order, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, shared.Validation("afterSalesNotes", "after-sales notes are required")
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, map[string]interface{}{"after_sales_notes": notes}); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "order.after_sales_note", existing.OrderID, map[string]any{"notes": notes})
	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Get loads one order with items and customer.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// List pages through orders, newest first.
func (s *Service) List(ctx context.Context, search string, page shared.PageRequest) (shared.Page[Order], error) {
	rows, total, err := s.repo.List(ctx, ListOrdersRequest{Search: search, Limit: page.Limit, Offset: page.Offset()})
	if err != nil {
		return shared.Page[Order]{}, fmt.Errorf("orders: list: %w", err)
	}
	return shared.NewPage(rows, page, total), nil
}

// ListAll returns every order for export.
func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.repo.ListAll(ctx)
}

// ListPendingAfterSales returns due orders, oldest arrival first.
func (s *Service) ListPendingAfterSales(ctx context.Context) ([]Order, error) {
	list, err := s.repo.ListPendingAfterSales(ctx, s.rule.Cutoff(s.now()))
	if err != nil {
		return nil, fmt.Errorf("orders: pending after-sales: %w", err)
	}
	if list == nil {
		list = []Order{}
	}
	return list, nil
}

// CountPendingAfterSales counts with the same predicate as ListPendingAfterSales.
func (s *Service) CountPendingAfterSales(ctx context.Context) (int, error) {
	return s.repo.CountPendingAfterSales(ctx, s.rule.Cutoff(s.now()))
}

// Cutoff is the latest arrival date that is due for follow-up today.
func (s *Service) Cutoff() shared.Date {
	return s.rule.Cutoff(s.now())
}

// Totals returns the number of orders and the summed amount.
func (s *Service) Totals(ctx context.Context) (int, int64, error) {
	return s.repo.Totals(ctx)
}

// ImportOrder upserts one order by its business id. Stock is reconciled per
// product by the difference between the stored and the incoming quantities,
// so importing the same row again changes nothing.
func (s *Service) ImportOrder(ctx context.Context, in ImportOrderInput) (ImportOutcome, error) {
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return ImportOutcome{}, shared.Validation("orderId", "order id is required")
	}
	if strings.TrimSpace(in.Customer.Phone) == "" {
		return ImportOutcome{}, shared.Validation("phone", "phone is required")
	}
	if strings.TrimSpace(in.Customer.Name) == "" {
		return ImportOutcome{}, shared.Validation("name", "name is required")
	}
	items, err := NormalizeItems(in.Items, "", 0)
	if err != nil {
		return ImportOutcome{}, err
	}

	var outcome ImportOutcome
	var sold, returned int
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		outcome, sold, returned = ImportOutcome{}, 0, 0
		c, _, err := tx.UpsertCustomer(ctx, in.Customer)
		if err != nil {
			return err
		}
		existing, err := tx.LockOrderByOrderID(ctx, orderID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		products, err := lockForImport(ctx, tx, items, existing)
		if err != nil {
			return err
		}

		order := Order{
			OrderID:         orderID,
			Date:            s.dateOrToday(in.Date, s.now()),
			Channel:         textPtr(in.Channel),
			Amount:          in.Amount,
			ShippingFee:     in.ShippingFee,
			Logistics:       textPtr(in.Logistics),
			ArrivalDate:     datePtr(in.ArrivalDate),
			AfterSalesNotes: textPtr(in.AfterSalesNotes),
			Remarks:         textPtr(in.Remarks),
			Symptoms:        textPtr(in.Customer.Symptoms),
			SocialName:      textPtr(in.Customer.SocialName),
			ContactMethod:   textPtr(in.Customer.ContactMethod),
			CustomerID:      c.ID,
		}

		wanted := make(map[int64]int64, len(items))
		lines := make([]Item, 0, len(items))
		for _, it := range items {
			p := products.byName[it.ProductName]
			wanted[p.ID] += it.Quantity
			lines = append(lines, Item{ProductID: p.ID, ProductName: p.Name, Quantity: it.Quantity})
		}
		held := make(map[int64]int64)
		if existing != nil {
			for _, it := range existing.Items {
				held[it.ProductID] += it.Quantity
			}
		}

		for _, id := range products.order {
			p := products.byID[id]
			delta := wanted[id] - held[id]
			switch {
			case delta > 0:
				if _, err := catalog.Apply(ctx, tx, &p, -delta, catalog.MovementSale, orderID, "import"); err != nil {
					return err
				}
				sold++
			case delta < 0:
				if _, err := catalog.Apply(ctx, tx, &p, -delta, catalog.MovementReturn, orderID, "import"); err != nil {
					return err
				}
				returned++
			}
			products.byID[id] = p
		}

		if existing == nil {
			if err := tx.InsertOrder(ctx, &order); err != nil {
				return err
			}
			if _, err := tx.InsertItems(ctx, order.ID, lines); err != nil {
				return err
			}
			outcome.Created = true
		} else {
			order.ID = existing.ID
			if err := tx.UpdateOrderScalars(ctx, &order); err != nil {
				return err
			}
			if !sameItems(existing.Items, lines) {
				if _, err := tx.ReplaceItems(ctx, order.ID, lines); err != nil {
					return err
				}
				outcome.ItemsReplaced = true
			}
		}
		outcome.Movements = sold + returned
		return nil
	})
	if err != nil {
		return ImportOutcome{}, err
	}
	s.afterOrderWrite(ctx, catalog.MovementSale, sold)
	s.afterOrderWrite(ctx, catalog.MovementReturn, returned)
	if outcome.Created && s.metrics != nil {
		s.metrics.OrderPlaced()
	}
	return outcome, nil
}

type lockedProducts struct {
	byName map[string]catalog.Product
	byID   map[int64]catalog.Product
	order  []int64
}

// lockForImport locks the incoming products by name and any product only the
// stored items still reference, then returns them in ascending id order.
func lockForImport(ctx context.Context, tx TxRepository, items []ItemInput, existing *Order) (lockedProducts, error) {
	byName, err := tx.LockProductsByName(ctx, itemNames(items))
	if err != nil {
		return lockedProducts{}, err
	}
	for _, it := range items {
		if _, ok := byName[it.ProductName]; !ok {
			return lockedProducts{}, &shared.ProductNotFoundError{ProductName: it.ProductName}
		}
	}
	byID := make(map[int64]catalog.Product, len(byName))
	for _, p := range byName {
		byID[p.ID] = p
	}
	if existing != nil {
		var extra []int64
		for _, it := range existing.Items {
			if _, ok := byID[it.ProductID]; !ok {
				extra = append(extra, it.ProductID)
			}
		}
		sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
		for _, id := range extra {
			if _, ok := byID[id]; ok {
				continue
			}
			p, err := tx.LockProductByID(ctx, id)
			if err != nil {
				return lockedProducts{}, err
			}
			byID[id] = p
		}
	}
	order := make([]int64, 0, len(byID))
	for id := range byID {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return lockedProducts{byName: byName, byID: byID, order: order}, nil
}

func sameItems(stored []Item, incoming []Item) bool {
	if len(stored) != len(incoming) {
		return false
	}
	for i := range stored {
		if stored[i].ProductID != incoming[i].ProductID ||
			stored[i].ProductName != incoming[i].ProductName ||
			stored[i].Quantity != incoming[i].Quantity {
			return false
		}
	}
	return true
}

// NewOrderID generates a business id for orders submitted without one.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("AUTO-%s-%s", now.Format("20060102"), strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *Service) dateOrToday(d *shared.Date, now time.Time) shared.Date {
	if d != nil && !d.IsZero() {
		return *d
	}
	return shared.Today(now, s.rule.Location)
}

func (s *Service) afterOrderWrite(ctx context.Context, typ catalog.MovementType, moved int) {
	if s.metrics != nil {
		for i := 0; i < moved; i++ {
			s.metrics.StockMoved(string(typ))
		}
	}
	s.bump(ctx)
}

func (s *Service) bump(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

func (s *Service) reject(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.OrderRejected(rejectionReason(err))
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, shared.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, db.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func (s *Service) recordAudit(ctx context.Context, action, orderID string, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "order",
		EntityID: orderID,
		Meta:     meta,
	})
}

func auditMeta(updates map[string]interface{}) map[string]any {
	meta := make(map[string]any, len(updates))
	for k, v := range updates {
		if t, ok := v.(time.Time); ok {
			meta[k] = t.Format(shared.DateLayout)
			continue
		}
		meta[k] = v
	}
	return meta
}

func textPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func datePtr(d *shared.Date) *shared.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	out := *d
	return &out
}

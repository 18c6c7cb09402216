// Package exchange moves orders and customers in and out of spreadsheets.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/orders"
	"github.com/carecrm/carecrm/internal/settings"
	"github.com/carecrm/carecrm/internal/shared"
	"github.com/carecrm/carecrm/internal/spreadsheet"
)

// OrderStore is what the exchange needs from the orders service.
type OrderStore interface {
	ImportOrder(ctx context.Context, in orders.ImportOrderInput) (orders.ImportOutcome, error)
	ListAll(ctx context.Context) ([]orders.Order, error)
}

// CustomerStore is what the exchange needs from the customers service.
type CustomerStore interface {
	Import(ctx context.Context, in customers.UpsertInput) (bool, error)
	ListAll(ctx context.Context) ([]customers.Customer, error)
}

// ProductEnsurer creates missing products with zero stock.
type ProductEnsurer interface {
	EnsureProducts(ctx context.Context, names []string) (int, error)
}

// NameEnsurer creates missing settings entries.
type NameEnsurer interface {
	Ensure(ctx context.Context, kind settings.Kind, names ...string) (int, error)
}

// SkippedRow reports a row that was not imported.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult is returned by both imports.
type ImportResult struct {
	Count   int          `json:"count"`
	Skipped []SkippedRow `json:"skipped"`
}

func (r *ImportResult) skip(line int, err error) {
	reason := err.Error()
	var re rowError
	if !errors.As(err, &re) && !shared.IsUserError(err) {
		reason = "row could not be saved"
	}
	r.Skipped = append(r.Skipped, SkippedRow{Row: line, Reason: reason})
}

// Service implements spreadsheet import and export.
type Service struct {
	orders    OrderStore
	customers CustomerStore
	products  ProductEnsurer
	names     NameEnsurer
	loc       *time.Location
}

// NewService builds Service. loc is used to render creation dates.
func NewService(orderStore OrderStore, customerStore CustomerStore, products ProductEnsurer, names NameEnsurer, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{orders: orderStore, customers: customerStore, products: products, names: names, loc: loc}
}

// ImportOrders upserts every order row in file order. Rows that fail are
// reported in Skipped; each imported row commits on its own.
func (s *Service) ImportOrders(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := spreadsheet.ReadRows(r)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Skipped: []SkippedRow{}}

	type decoded struct {
		line int
		in   orders.ImportOrderInput
	}
	valid := make([]decoded, 0, len(rows))
	var productNames, channels []string
	for _, row := range rows {
		in, err := decodeOrderRow(row)
		if err != nil {
			result.skip(row.Line, err)
			continue
		}
		valid = append(valid, decoded{line: row.Line, in: in})
		for _, it := range in.Items {
			productNames = append(productNames, it.ProductName)
		}
		channels = append(channels, in.Channel)
	}

	if _, err := s.products.EnsureProducts(ctx, productNames); err != nil {
		return ImportResult{}, fmt.Errorf("exchange: ensure products: %w", err)
	}
	if _, err := s.names.Ensure(ctx, settings.KindChannel, channels...); err != nil {
		return ImportResult{}, fmt.Errorf("exchange: ensure channels: %w", err)
	}

	for _, d := range valid {
		if _, err := s.orders.ImportOrder(ctx, d.in); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.skip(d.line, err)
			continue
		}
		result.Count++
	}
	return result, nil
}

// ImportCustomers upserts customers by phone.
func (s *Service) ImportCustomers(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := spreadsheet.ReadRows(r)
	if err != nil {
		return ImportResult{}, err
	}
	result := ImportResult{Skipped: []SkippedRow{}}
	for _, row := range rows {
		in, err := decodeCustomerRow(row)
		if err != nil {
			result.skip(row.Line, err)
			continue
		}
		if in.ContactMethod != "" {
			if _, err := s.names.Ensure(ctx, settings.KindContactMethod, in.ContactMethod); err != nil {
				return result, fmt.Errorf("exchange: ensure contact method: %w", err)
			}
		}
		if _, err := s.customers.Import(ctx, in); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.skip(row.Line, err)
			continue
		}
		result.Count++
	}
	return result, nil
}

// ExportOrders writes every order, newest first.
func (s *Service) ExportOrders(ctx context.Context, w io.Writer) error {
	list, err := s.orders.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("exchange: list orders: %w", err)
	}
	rows := make([][]any, 0, len(list))
	for _, o := range list {
		var name, phone string
		var address *string
		if o.Customer != nil {
			name, phone, address = o.Customer.Name, o.Customer.Phone, o.Customer.Address
		}
		items := make([]spreadsheet.Item, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, spreadsheet.Item{Name: it.ProductName, Quantity: it.Quantity})
		}
		arrival := ""
		if o.ArrivalDate != nil {
			arrival = o.ArrivalDate.String()
		}
		rows = append(rows, []any{
			o.OrderID, o.Date.String(), name, phone, text(address), text(o.Channel),
			spreadsheet.FormatItems(items), o.Amount, o.ShippingFee, text(o.Logistics),
			arrival, text(o.AfterSalesNotes), text(o.Remarks),
		})
	}
	return spreadsheet.WriteSheet(w, "Orders", orderHeaders, rows)
}

// ExportCustomers writes every customer with their order count.
func (s *Service) ExportCustomers(ctx context.Context, w io.Writer) error {
	list, err := s.customers.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("exchange: list customers: %w", err)
	}
	rows := make([][]any, 0, len(list))
	for _, c := range list {
		rows = append(rows, []any{
			c.Name, c.Phone, text(c.Address), text(c.Symptoms), text(c.SocialName), text(c.ContactMethod),
			c.OrderCount, c.CreatedAt.In(s.loc).Format("2006-01-02"),
		})
	}
	return spreadsheet.WriteSheet(w, "Customers", customerHeaders, rows)
}

// IsFileError reports whether err is about the uploaded file itself.
func IsFileError(err error) bool {
	return errors.Is(err, spreadsheet.ErrUnreadable) || errors.Is(err, spreadsheet.ErrNoRows)
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/orders"
	"github.com/carecrm/carecrm/internal/shared"
	"github.com/carecrm/carecrm/internal/spreadsheet"
)

// cell formats excelize renders date cells with, after the ISO forms.
var sheetDateLayouts = []string{"01-02-06", "1-2-06", "1/2/06", "01/02/2006", "1/2/2006"}

// rowError explains why a row was skipped.
type rowError string

func (e rowError) Error() string { return string(e) }

func decodeOrderRow(row spreadsheet.Row) (orders.ImportOrderInput, error) {
	in := orders.ImportOrderInput{
		OrderID: row.Get(colOrderID),
		Customer: customers.UpsertInput{
			Name:    row.Get(colName),
			Phone:   normalizePhone(row.Get(colPhone)),
			Address: row.Get(colAddress),
		},
		Channel:         row.Get(colChannel),
		Logistics:       row.Get(colLogistics),
		AfterSalesNotes: row.Get(colAfterSales, colLegacyAfterSales),
		Remarks:         row.Get(colRemarks),
	}
	switch {
	case in.OrderID == "":
		return in, rowError("missing order id")
	case in.Customer.Phone == "":
		return in, rowError("missing phone")
	case in.Customer.Name == "":
		return in, rowError("missing name")
	}

	items := spreadsheet.ParseItems(row.Get(colItems))
	if len(items) == 0 {
		if name := row.Get(colLegacyProduct); name != "" {
			qty, _ := spreadsheet.ParseAmount(row.Get(colLegacyQuantity))
			if qty <= 0 {
				qty = 1
			}
			items = []spreadsheet.Item{{Name: name, Quantity: qty}}
		}
	}
	if len(items) == 0 {
		return in, rowError("no items")
	}
	for _, it := range items {
		in.Items = append(in.Items, orders.ItemInput{ProductName: it.Name, Quantity: it.Quantity})
	}

	var err error
	if in.Date, err = dateCell(row.Get(colDate)); err != nil {
		return in, rowError(colDate + ": " + err.Error())
	}
	if in.ArrivalDate, err = dateCell(row.Get(colArrivalDate)); err != nil {
		return in, rowError(colArrivalDate + ": " + err.Error())
	}
	if in.Amount, err = spreadsheet.ParseAmount(row.Get(colAmount, colLegacyAmount)); err != nil || in.Amount < 0 {
		return in, rowError("invalid amount")
	}
	if in.ShippingFee, err = spreadsheet.ParseAmount(row.Get(colShippingFee)); err != nil || in.ShippingFee < 0 {
		return in, rowError("invalid shipping fee")
	}
	return in, nil
}

func decodeCustomerRow(row spreadsheet.Row) (customers.UpsertInput, error) {
	in := customers.UpsertInput{
		Name:          row.Get(colName),
		Phone:         normalizePhone(row.Get(colPhone)),
		Address:       row.Get(colAddress),
		Symptoms:      row.Get(colSymptoms),
		SocialName:    row.Get(colSocialName),
		ContactMethod: row.Get(colContactMethod),
	}
	if in.Name == "" || in.Phone == "" {
		return in, rowError("missing name or phone")
	}
	return in, nil
}

// dateCell reads ISO dates, the forms excelize renders date cells with, and
// raw serial numbers. Blank cells are nil.
func dateCell(s string) (*shared.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := shared.ParseDate(s); err == nil {
		return &d, nil
	}
	for _, layout := range sheetDateLayouts {
		if d, err := shared.ParseDateLayout(layout, s); err == nil {
			return &d, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			d := shared.NewDate(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

// normalizePhone restores the leading zero spreadsheets drop from numeric
// cells holding Taiwanese mobile numbers.
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 9 && strings.HasPrefix(s, "9") && isDigits(s) {
		return "0" + s
	}
	return s
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

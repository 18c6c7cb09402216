package orders

import (
	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/shared"
)

// ItemInput names a product and the quantity wanted.
type ItemInput struct {
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
}

// PlaceOrderRequest is the body of POST /orders. ProductName and Quantity are
// the legacy single-item form, used only when Items is absent.
type PlaceOrderRequest struct {
	OrderID       string       `json:"orderId"`
	Date          *shared.Date `json:"date"`
	Name          string       `json:"name" validate:"required"`
	Phone         string       `json:"phone" validate:"required"`
	Address       string       `json:"address"`
	Symptoms      string       `json:"symptoms"`
	SocialName    string       `json:"socialName"`
	ContactMethod string       `json:"contactMethod"`
	Channel       string       `json:"channel"`
	Items         []ItemInput  `json:"items"`
	ProductName   string       `json:"productName"`
	Quantity      int64        `json:"quantity"`
	Amount        int64        `json:"amount" validate:"gte=0"`
	ShippingFee   int64        `json:"shippingFee" validate:"gte=0"`
	Logistics     string       `json:"logistics"`
	ArrivalDate   *shared.Date `json:"arrivalDate"`
	Remarks       string       `json:"remarks"`
}

// UpdateOrderRequest is a sparse patch. Keys that are absent are left alone;
// an explicit null clears nullable fields.
type UpdateOrderRequest struct {
	Date            shared.Optional[shared.Date] `json:"date"`
	Channel         shared.Optional[string]      `json:"channel"`
	Amount          shared.Optional[int64]       `json:"amount"`
	ShippingFee     shared.Optional[int64]       `json:"shippingFee"`
	Logistics       shared.Optional[string]      `json:"logistics"`
	ArrivalDate     shared.Optional[shared.Date] `json:"arrivalDate"`
	AfterSalesNotes shared.Optional[string]      `json:"afterSalesNotes"`
	Remarks         shared.Optional[string]      `json:"remarks"`
	Symptoms        shared.Optional[string]      `json:"symptoms"`
	SocialName      shared.Optional[string]      `json:"socialName"`
	ContactMethod   shared.Optional[string]      `json:"contactMethod"`
}

// AfterSalesNoteRequest is the body of POST /orders/{id}/after-sales.
type AfterSalesNoteRequest struct {
	Notes string `json:"notes"`
}

// ImportOrderInput is one spreadsheet row, already decoded.
type ImportOrderInput struct {
	OrderID         string
	Date            *shared.Date
	Customer        customers.UpsertInput
	Channel         string
	Items           []ItemInput
	Amount          int64
	ShippingFee     int64
	Logistics       string
	ArrivalDate     *shared.Date
	AfterSalesNotes string
	Remarks         string
}

// ImportOutcome reports what an imported row did.
type ImportOutcome struct {
	Created       bool
	ItemsReplaced bool
	Movements     int
}

// ListOrdersRequest filters the order listing.
type ListOrdersRequest struct {
	Search string
	Limit  int
	Offset int
}

package orders

import (
	"strings"
	"time"

	"github.com/carecrm/carecrm/internal/customers"
	"github.com/carecrm/carecrm/internal/shared"
)

// Order is a customer purchase with one or more items.
type Order struct {
	ID              int64               `json:"id"`
	OrderID         string              `json:"orderId"`
	Date            shared.Date         `json:"date"`
	Channel         *string             `json:"channel"`
	Amount          int64               `json:"amount"`
	ShippingFee     int64               `json:"shippingFee"`
	Logistics       *string             `json:"logistics"`
	ArrivalDate     *shared.Date        `json:"arrivalDate"`
	AfterSalesNotes *string             `json:"afterSalesNotes"`
	Remarks         *string             `json:"remarks"`
	Symptoms        *string             `json:"symptoms"`
	SocialName      *string             `json:"socialName"`
	ContactMethod   *string             `json:"contactMethod"`
	CustomerID      int64               `json:"customerId"`
	Customer        *customers.Customer `json:"customer,omitempty"`
	Items           []Item              `json:"items"`
	ProductName     string              `json:"productName"`
	Quantity        int64               `json:"quantity"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// Item is one product line. ProductName is a snapshot taken when the line was written.
type Item struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"orderId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int64  `json:"quantity"`
}

// withSummary fills the display-only productName/quantity projection from items.
func (o *Order) withSummary() {
	names := make([]string, 0, len(o.Items))
	var qty int64
	for _, it := range o.Items {
		names = append(names, it.ProductName)
		qty += it.Quantity
	}
	o.ProductName = strings.Join(names, ", ")
	o.Quantity = qty
	if o.Items == nil {
		o.Items = []Item{}
	}
}

package orders

import (
	"strings"
	"time"

	"github.com/carecrm/carecrm/internal/shared"
)

// DefaultAfterSalesDelayDays is how long after arrival a follow-up becomes due.
const DefaultAfterSalesDelayDays = 5

// AfterSalesRule decides when an order is due for an after-sales contact.
type AfterSalesRule struct {
	DelayDays int
	Location  *time.Location
}

// Cutoff returns the latest arrival day that is due at now.
func (r AfterSalesRule) Cutoff(now time.Time) shared.Date {
	return AfterSalesCutoff(now, r.DelayDays, r.Location)
}

// IsPending applies the rule to one order.
func (r AfterSalesRule) IsPending(o Order, now time.Time) bool {
	return IsPendingAfterSales(o, r.Cutoff(now))
}

// AfterSalesCutoff is the civil day in loc, delayDays before now.
func AfterSalesCutoff(now time.Time, delayDays int, loc *time.Location) shared.Date {
	return shared.Today(now, loc).AddDays(-delayDays)
}

// IsPendingAfterSales reports whether o has arrived on or before cutoff and
// has no after-sales notes yet. Keep in step with pendingAfterSalesPredicate.
func IsPendingAfterSales(o Order, cutoff shared.Date) bool {
	if o.ArrivalDate == nil || o.ArrivalDate.IsZero() {
		return false
	}
	if o.ArrivalDate.After(cutoff) {
		return false
	}
	return o.AfterSalesNotes == nil || strings.TrimSpace(*o.AfterSalesNotes) == ""
}

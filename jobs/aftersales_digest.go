package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/carecrm/carecrm/internal/orders"
)

const digestSampleSize = 20

// PendingLister returns orders due for follow-up.
type PendingLister interface {
	ListPendingAfterSales(ctx context.Context) ([]orders.Order, error)
}

// JobMetrics records job outcomes.
type JobMetrics interface {
	JobProcessed(task string, err error)
}

// Digest is what one digest run found.
type Digest struct {
	Count         int
	OldestArrival string
	OrderIDs      []string
}

// AfterSalesDigestJob logs the orders waiting for an after-sales call.
type AfterSalesDigestJob struct {
	Orders  PendingLister
	Logger  *slog.Logger
	Metrics JobMetrics
}

// NewAfterSalesDigestJob wires dependencies for the digest handler.
func NewAfterSalesDigestJob(lister PendingLister, logger *slog.Logger, metrics JobMetrics) *AfterSalesDigestJob {
	return &AfterSalesDigestJob{Orders: lister, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAfterSalesDigest tasks.
func (j *AfterSalesDigestJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Orders == nil {
		return errors.New("after-sales digest: handler not configured")
	}
	var payload AfterSalesDigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.JobProcessed(TaskAfterSalesDigest, err)
		}
	}()

	start := time.Now()
	digest, err := j.Build(ctx)
	if err != nil {
		j.logger().Error("after-sales digest", slog.Any("error", err))
		return err
	}
	j.logger().Info("after-sales digest",
		slog.String("requested_by", payload.RequestedBy),
		slog.Int("pending", digest.Count),
		slog.String("oldest_arrival", digest.OldestArrival),
		slog.Any("order_ids", digest.OrderIDs),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Build collects the digest. Orders come oldest arrival first.
func (j *AfterSalesDigestJob) Build(ctx context.Context) (Digest, error) {
	pending, err := j.Orders.ListPendingAfterSales(ctx)
	if err != nil {
		return Digest{}, err
	}
	d := Digest{Count: len(pending), OrderIDs: []string{}}
	if len(pending) > 0 && pending[0].ArrivalDate != nil {
		d.OldestArrival = pending[0].ArrivalDate.String()
	}
	for i, o := range pending {
		if i == digestSampleSize {
			break
		}
		d.OrderIDs = append(d.OrderIDs, o.OrderID)
	}
	return d, nil
}

func (j *AfterSalesDigestJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

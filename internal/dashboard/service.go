// Package dashboard aggregates the headline numbers shown on the home page.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/carecrm/carecrm/internal/shared"
)

// Stats is the dashboard payload.
type Stats struct {
	TotalCustomers         int   `json:"totalCustomers"`
	TotalOrders            int   `json:"totalOrders"`
	TotalSales             int64 `json:"totalSales"`
	PendingAfterSalesCount int   `json:"pendingAfterSalesCount"`
}

// CustomerCounter counts customers.
type CustomerCounter interface {
	Count(ctx context.Context) (int, error)
}

// OrderStats is the slice of the orders service the dashboard reads.
type OrderStats interface {
	Totals(ctx context.Context) (int, int64, error)
	CountPendingAfterSales(ctx context.Context) (int, error)
	Cutoff() shared.Date
}

// Cache stores computed stats. Implemented by platform/cache.Versioned.
type Cache interface {
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// Service computes Stats.
type Service struct {
	customers CustomerCounter
	orders    OrderStats
	cache     Cache
	group     singleflight.Group
}

// NewService builds Service. cache may be nil.
func NewService(customers CustomerCounter, orders OrderStats, cache Cache) *Service {
	return &Service{customers: customers, orders: orders, cache: cache}
}

// Stats returns cached stats when available. The key carries the after-sales
// cutoff day so the pending count rolls over at midnight.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.cache == nil {
		return s.compute(ctx)
	}
	key, err := s.cache.BuildKey(ctx, "stats", s.orders.Cutoff().String())
	if err != nil {
		return s.compute(ctx)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var stats Stats
		err := s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
			return s.compute(ctx)
		})
		return stats, err
	})
	if err != nil {
		return Stats{}, err
	}
	return v.(Stats), nil
}

func (s *Service) compute(ctx context.Context) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.customers.Count(ctx)
		if err != nil {
			return fmt.Errorf("count customers: %w", err)
		}
		stats.TotalCustomers = n
		return nil
	})
	g.Go(func() error {
		n, sales, err := s.orders.Totals(ctx)
		if err != nil {
			return fmt.Errorf("order totals: %w", err)
		}
		stats.TotalOrders, stats.TotalSales = n, sales
		return nil
	})
	g.Go(func() error {
		n, err := s.orders.CountPendingAfterSales(ctx)
		if err != nil {
			return fmt.Errorf("count pending after-sales: %w", err)
		}
		stats.PendingAfterSalesCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("dashboard: %w", err)
	}
	return stats, nil
}

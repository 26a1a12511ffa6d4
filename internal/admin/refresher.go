package admin

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joao-fontenele/drinkshop/internal/analytics"
)

var refreshedPeriods = []analytics.Period{
	analytics.PeriodToday,
	analytics.PeriodWeek,
	analytics.PeriodMonth,
	analytics.PeriodYear,
}

type snapshot struct {
	stats analytics.DashboardStats
	at    time.Time
}

// Refresher recomputes the dashboard of every period on a fixed interval and
// keeps the latest result.
type Refresher struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	snapshots map[analytics.Period]snapshot
}

func NewRefresher(source Source, interval time.Duration, location *time.Location, logger *slog.Logger) *Refresher {
	return &Refresher{
		source:    source,
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().In(location) },
		snapshots: make(map[analytics.Period]snapshot),
	}
}

// Run refreshes immediately and then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.Refresh(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Refresh recomputes all periods once. A failed period keeps its previous
// snapshot.
func (r *Refresher) Refresh(ctx context.Context) {
	now := r.now()
	for _, period := range refreshedPeriods {
		stats, err := ComputeDashboard(ctx, r.source, period, now)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("failed to refresh dashboard", "error", err, "period", period)
			continue
		}

		r.mu.Lock()
		r.snapshots[period] = snapshot{stats: stats, at: now}
		r.mu.Unlock()

		r.logger.Info("dashboard refreshed",
			"period", period,
			"total_orders", stats.TotalOrders,
			"total_revenue", stats.TotalRevenue,
			"active_orders", stats.ActiveOrders,
			"average_rating", stats.AverageRating,
		)
	}
}

// Fresh returns the snapshot for period when it is younger than one interval.
func (r *Refresher) Fresh(period analytics.Period, now time.Time) (analytics.DashboardStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.snapshots[period]
	if !ok || now.Sub(s.at) >= r.interval {
		return analytics.DashboardStats{}, false
	}
	return s.stats, true
}

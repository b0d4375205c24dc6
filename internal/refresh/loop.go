package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
)

// Refresher is implemented by fetcher.Cached.
type Refresher interface {
	Refresh(ctx context.Context) (*models.Dataset, error)
}

// Loop keeps the jobs cache warm by refreshing it on a fixed interval.
type Loop struct {
	target   Refresher
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

// New creates a Loop. Each refresh gets at most timeout; a non-positive timeout
// defaults to two minutes.
func New(target Refresher, interval, timeout time.Duration, log *slog.Logger) *Loop {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Loop{target: target, interval: interval, timeout: timeout, log: logger.OrDiscard(log)}
}

// Run refreshes immediately and then on every tick until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Info("cache warm loop running", slog.Duration("interval", l.interval))

	// Run immediately on start, but don't fail if the store is temporarily unavailable
	l.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("cache warm loop stopped")
			return
		case <-ticker.C:
			l.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh and reports whether it succeeded.
func (l *Loop) RunOnce(ctx context.Context) bool {
	subCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ds, err := l.target.Refresh(subCtx)
	if err != nil {
		l.log.Warn("cache refresh failed (will retry on next interval)", slog.Any("err", err))
		return false
	}

	l.log.Debug("cache refreshed", slog.String("snapshot", ds.SnapshotID), slog.Int("jobs", ds.Len()))
	return true
}

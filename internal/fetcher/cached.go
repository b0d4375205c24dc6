package fetcher

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/uk-job-dashboard/internal/cache"
	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
)

// DefaultFetchTimeout bounds one shared fetch.
const DefaultFetchTimeout = 2 * time.Minute

// DatasetFetcher is implemented by Fetcher.
type DatasetFetcher interface {
	FetchAll(ctx context.Context) (*models.Dataset, error)
}

// Cached serves the most recent Dataset while it is fresh and refetches otherwise.
// Concurrent refreshes share one scan. Failed fetches are never cached.
type Cached struct {
	fetcher DatasetFetcher
	slot    *cache.Slot[*models.Dataset]
	group   singleflight.Group
	timeout time.Duration
	log     *slog.Logger
}

// CachedOption customises a Cached.
type CachedOption func(*Cached)

// WithFetchTimeout bounds the shared fetch independently of any caller.
// Non-positive values keep the default.
func WithFetchTimeout(d time.Duration) CachedOption {
	return func(c *Cached) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCached wraps fetcher with slot.
func NewCached(fetcher DatasetFetcher, slot *cache.Slot[*models.Dataset], log *slog.Logger, opts ...CachedOption) *Cached {
	c := &Cached{fetcher: fetcher, slot: slot, timeout: DefaultFetchTimeout, log: logger.OrDiscard(log)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached Dataset when fresh, otherwise performs a fetch.
func (c *Cached) Get(ctx context.Context) (*models.Dataset, error) {
	if ds, _, ok := c.slot.Get(); ok {
		return ds, nil
	}
	return c.Refresh(ctx)
}

// Refresh fetches unconditionally and stores the result. The shared fetch is
// detached from every caller: a caller whose ctx ends gets ctx.Err() while the
// fetch keeps running for the others.
func (c *Cached) Refresh(ctx context.Context) (*models.Dataset, error) {
	gen := c.slot.Generation()
	ch := c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		ds, err := c.fetcher.FetchAll(fetchCtx)
		if err != nil {
			return nil, err
		}
		// A result that predates an Invalidate goes to the callers but not into the slot.
		if !c.slot.SetIf(ds, gen) {
			c.log.Debug("cache invalidated during fetch, result not stored", slog.String("snapshot", ds.SnapshotID))
		}
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug("joined in-flight fetch")
		}
		return res.Val.(*models.Dataset), nil
	}
}

// Invalidate drops the cached Dataset so the next Get refetches.
func (c *Cached) Invalidate() {
	c.slot.Invalidate()
}

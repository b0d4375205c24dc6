// Package fetcher reads the whole jobs table into a Dataset and keeps the latest
// Dataset in a single-slot cache.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
)

// DefaultMaxPages bounds a scan when no explicit limit is configured.
const DefaultMaxPages = 1000

// Fetcher performs full-table scans.
type Fetcher struct {
	scanner  store.Scanner
	maxPages int
	limiter  *rate.Limiter
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithMaxPages sets the page bound. Non-positive values keep the default.
func WithMaxPages(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxPages = n
		}
	}
}

// WithRateLimit paces page requests. Non-positive values disable pacing.
func WithRateLimit(pagesPerSecond float64) Option {
	return func(f *Fetcher) {
		if pagesPerSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(pagesPerSecond), 1)
		}
	}
}

// WithClock replaces the time source used for Dataset.FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// New creates a Fetcher over scanner.
func New(scanner store.Scanner, log *slog.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		scanner:  scanner,
		maxPages: DefaultMaxPages,
		log:      logger.OrDiscard(log),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll scans every page of the table and returns the records in page order.
// On any failure the partial result is discarded. Connectivity and auth failures
// are returned as *store.UnavailableError, everything else as *store.ScanError.
func (f *Fetcher) FetchAll(ctx context.Context) (*models.Dataset, error) {
	started := f.now()
	name := f.scanner.Name()

	var (
		cursor store.Cursor
		jobs   []models.Job
		pages  int
	)

	for {
		if pages >= f.maxPages {
			f.log.Warn("scan page limit reached", slog.String("store", name), slog.Int("max_pages", f.maxPages))
			f.release(cursor)
			return nil, &store.ScanError{Store: name, Page: pages, Err: store.ErrTooManyPages}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				f.release(cursor)
				return nil, &store.ScanError{Store: name, Page: pages, Err: err}
			}
		}

		page, err := f.scanner.ScanPage(ctx, cursor)
		if err != nil {
			f.log.Warn("scan page failed",
				slog.String("store", name),
				slog.Int("page", pages),
				slog.Any("err", err),
			)
			f.release(cursor)
			var unavailable *store.UnavailableError
			if errors.As(err, &unavailable) {
				return nil, err
			}
			return nil, &store.ScanError{Store: name, Page: pages, Err: err}
		}
		pages++

		jobs = append(jobs, page.Jobs...)
		if page.Next == nil {
			break
		}
		cursor = page.Next
	}

	if jobs == nil {
		jobs = []models.Job{}
	}

	ds := &models.Dataset{
		SnapshotID: f.newID(),
		FetchedAt:  f.now(),
		Pages:      pages,
		Columns:    Columns(jobs),
		Jobs:       jobs,
	}

	f.log.Info("fetched jobs table",
		slog.String("store", name),
		slog.String("snapshot", ds.SnapshotID),
		slog.Int("jobs", len(jobs)),
		slog.Int("pages", pages),
		slog.Duration("took", ds.FetchedAt.Sub(started)),
	)
	return ds, nil
}

// release frees an abandoned cursor when the scanner supports it.
func (f *Fetcher) release(cursor store.Cursor) {
	if cursor == nil {
		return
	}
	if r, ok := f.scanner.(store.Releaser); ok {
		r.Release(cursor)
	}
}

// Columns returns the known job attributes followed by every extra attribute
// in first-seen order.
func Columns(jobs []models.Job) []string {
	cols := append([]string(nil), models.KnownFields...)
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		seen[c] = struct{}{}
	}

	for _, job := range jobs {
		if len(job.Extra) == 0 {
			continue
		}
		keys := make([]string, 0, len(job.Extra))
		for k := range job.Extra {
			if _, ok := seen[k]; !ok {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}

// Package store defines the read-only scan contract the dashboard uses to pull
// the jobs table, and the errors a scan can end with.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/DeafMist/uk-job-dashboard/internal/models"
)

// Cursor is an opaque continuation marker. A nil Cursor starts a scan when passed
// to ScanPage and marks the last page when returned in Page.Next.
type Cursor any

// Page is one response of a paginated scan.
type Page struct {
	Jobs []models.Job
	Next Cursor
}

// Scanner reads a single table page by page. Implementations never write.
type Scanner interface {
	ScanPage(ctx context.Context, cursor Cursor) (Page, error)
	Ping(ctx context.Context) error
	Name() string
}

// Releaser is implemented by scanners that hold server-side state for an open
// cursor. Release is called best-effort when a scan is abandoned before its
// last page.
type Releaser interface {
	Release(cursor Cursor)
}

var (
	// ErrUnavailable matches every UnavailableError.
	ErrUnavailable = errors.New("store unavailable")
	// ErrScan matches every ScanError.
	ErrScan = errors.New("store scan failed")
	// ErrTooManyPages is wrapped by a ScanError when a scan does not finish within the page bound.
	ErrTooManyPages = errors.New("scan exceeded page limit")
)

// UnavailableError reports that the store could not be reached or rejected our credentials.
type UnavailableError struct {
	Store string
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store %s unavailable: %v", e.Store, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// ScanError reports a failed page request. Page is the zero-based index of the request.
type ScanError struct {
	Store string
	Page  int
	Err   error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s page %d: %v", e.Store, e.Page, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

func (e *ScanError) Is(target error) bool { return target == ErrScan }

// Unavailable wraps err as an UnavailableError for the named store.
func Unavailable(name string, err error) error {
	return &UnavailableError{Store: name, Err: err}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/uk-job-dashboard/internal/config"
	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
	"github.com/DeafMist/uk-job-dashboard/internal/view"
)

type stubSource struct {
	ds    *models.Dataset
	err   error
	calls int
}

func (s *stubSource) Get(context.Context) (*models.Dataset, error) {
	s.calls++
	return s.ds, s.err
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error { return s.err }

func testDataset() *models.Dataset {
	return &models.Dataset{
		SnapshotID: "snap-1",
		FetchedAt:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Jobs: []models.Job{
			{ID: "1", Title: "Backend Engineer", JobCategory: "Tech", KeySkills: []string{"Go"}, Link: "https://jobs.example/1", Source: "reed"},
			{ID: "2", Title: "Sales Lead", JobCategory: "Sales", Source: "indeed"},
		},
	}
}

func newTestServer(t *testing.T, src datasetSource, ping error) http.Handler {
	t.Helper()
	cfg := &config.Dashboard{Title: "UK Job Engine Dashboard", Columns: config.DefaultColumns}
	srv, err := newServer(logger.Discard(), cfg, src, stubPinger{err: ping})
	require.NoError(t, err)
	return srv.routes()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleJobsFilters(t *testing.T) {
	h := newTestServer(t, &stubSource{ds: testDataset()}, nil)

	tests := []struct {
		name    string
		target  string
		matched int
		title   string
	}{
		{name: "search", target: "/jobs?q=ENGINEER", matched: 1, title: "Backend Engineer"},
		{name: "category", target: "/jobs?category=Sales", matched: 1, title: "Sales Lead"},
		{name: "search alias", target: "/jobs?search=lead&category=All", matched: 1, title: "Sales Lead"},
		{name: "no filters", target: "/jobs", matched: 2, title: "Backend Engineer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var res view.Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			require.Equal(t, 2, res.Total)
			require.Equal(t, tt.matched, res.Matched)
			require.Len(t, res.Jobs, tt.matched)
			require.Equal(t, tt.title, res.Jobs[0]["title"])
			require.Equal(t, "snap-1", res.SnapshotID)
			require.Equal(t, []string{"All", "Sales", "Tech"}, res.Categories)
			require.Equal(t, config.DefaultColumns, res.Columns)
		})
	}
}

func TestHandleJobsEmptyTable(t *testing.T) {
	h := newTestServer(t, &stubSource{ds: &models.Dataset{Jobs: []models.Job{}}}, nil)

	rec := get(t, h, "/jobs?q=engineer")
	require.Equal(t, http.StatusOK, rec.Code)

	var res view.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, 0, res.Total)
	require.Equal(t, 0, res.Matched)
	require.Empty(t, res.Jobs)
}

func TestHandleJobsStoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{name: "unavailable", err: store.Unavailable("stub", errors.New("dial")), status: http.StatusServiceUnavailable, kind: "store_unavailable"},
		{name: "scan", err: &store.ScanError{Store: "stub", Page: 3, Err: store.ErrTooManyPages}, status: http.StatusBadGateway, kind: "store_scan"},
		{name: "other", err: errors.New("boom"), status: http.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, status: http.StatusGatewayTimeout, kind: "timeout"},
		{name: "scan deadline", err: &store.ScanError{Store: "stub", Page: 1, Err: context.DeadlineExceeded}, status: http.StatusGatewayTimeout, kind: "timeout"},
		{name: "wrapped deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), status: http.StatusGatewayTimeout, kind: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &stubSource{err: tt.err}, nil)
			rec := get(t, h, "/jobs")
			require.Equal(t, tt.status, rec.Code)

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.kind, body.Kind)
			require.NotEmpty(t, body.Error)
		})
	}
}

func TestHandleCategories(t *testing.T) {
	h := newTestServer(t, &stubSource{ds: testDataset()}, nil)

	rec := get(t, h, "/categories")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"categories":["All","Sales","Tech"]}`, rec.Body.String())
}

func TestHandleIndex(t *testing.T) {
	h := newTestServer(t, &stubSource{ds: testDataset()}, nil)

	rec := get(t, h, "/?q=engineer")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Found a total of 2 jobs in the database.")
	require.Contains(t, body, "Showing 1 of 2 jobs.")
	require.Contains(t, body, "Backend Engineer")
	require.NotContains(t, body, "<td>Sales Lead</td>")
	require.Contains(t, body, `<a href="https://jobs.example/1"`)
	require.Contains(t, body, "<th>Job Category</th>")
	require.Contains(t, body, `<option value="All" selected>`)
}

func TestHandleIndexErrorState(t *testing.T) {
	h := newTestServer(t, &stubSource{err: store.Unavailable("stub", errors.New("dial"))}, nil)

	rec := get(t, h, "/")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Could not load jobs")
	require.NotContains(t, body, "<table>")
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, newTestServer(t, &stubSource{}, nil), "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, newTestServer(t, &stubSource{}, store.Unavailable("stub", errors.New("denied"))), "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "store_unavailable")
}

func TestColumnHeader(t *testing.T) {
	require.Equal(t, "Job Category", columnHeader("job_category"))
	require.Equal(t, "Title", columnHeader("title"))
	require.Equal(t, "État Date", columnHeader("état_date"))
	require.Equal(t, "Ünternehmen", columnHeader("ünternehmen"))
	require.Equal(t, "", columnHeader("__"))
}

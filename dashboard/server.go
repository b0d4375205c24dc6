package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/uk-job-dashboard/internal/config"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
	"github.com/DeafMist/uk-job-dashboard/internal/view"
)

// fetchTimeout bounds one render cycle including a possible full-table scan.
const fetchTimeout = time.Minute

//go:embed templates/*.tmpl
var templateFS embed.FS

type datasetSource interface {
	Get(ctx context.Context) (*models.Dataset, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type server struct {
	log   *slog.Logger
	cfg   *config.Dashboard
	jobs  datasetSource
	store pinger
	page  *template.Template
}

func newServer(log *slog.Logger, cfg *config.Dashboard, jobs datasetSource, st pinger) (*server, error) {
	page, err := template.New("index.html.tmpl").Funcs(template.FuncMap{
		"cell":   view.Cell,
		"isLink": func(col string) bool { return col == models.FieldLink },
		"header": columnHeader,
	}).ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, err
	}
	return &server{log: log, cfg: cfg, jobs: jobs, store: st, page: page}, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: errorKind(err)})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleJobs(w http.ResponseWriter, r *http.Request) {
	res, err := s.render(r)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Kind: errorKind(err)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	ds, err := s.jobs.Get(ctx)
	if err != nil {
		s.logFailure(r, err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Kind: errorKind(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": view.Categories(ds.Jobs)})
}

type pageData struct {
	Title  string
	Result view.Result
	Error  string
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: s.cfg.Title}
	status := http.StatusOK

	res, err := s.render(r)
	if err != nil {
		status = statusFor(err)
		data.Error = err.Error()
		data.Result = view.Result{Criteria: criteriaFrom(r), Categories: []string{view.AllCategories}}
	} else {
		data.Result = res
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		s.log.Error("render page", slog.Any("err", err))
	}
}

// render runs one render cycle for the request.
func (s *server) render(r *http.Request) (view.Result, error) {
	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	ds, err := s.jobs.Get(ctx)
	if err != nil {
		s.logFailure(r, err)
		return view.Result{}, err
	}
	return view.Render(ds, criteriaFrom(r), s.cfg.Columns), nil
}

func (s *server) logFailure(r *http.Request, err error) {
	s.log.Warn("fetch jobs failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("kind", errorKind(err)),
		slog.Any("err", err),
	)
}

func criteriaFrom(r *http.Request) view.Criteria {
	q := r.URL.Query()
	search := q.Get("q")
	if search == "" {
		search = q.Get("search")
	}
	category := strings.TrimSpace(q.Get("category"))
	if category == "" {
		category = view.AllCategories
	}
	return view.Criteria{Search: search, Category: category}
}

// statusFor checks deadlines first: the store errors wrap the context error of
// the page request that timed out.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrScan):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, store.ErrUnavailable):
		return "store_unavailable"
	case errors.Is(err, store.ErrScan):
		return "store_scan"
	default:
		return ""
	}
}

func columnHeader(col string) string {
	words := strings.Fields(strings.ReplaceAll(col, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

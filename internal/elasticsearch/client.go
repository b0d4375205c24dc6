package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
)

const (
	defaultPageSize = 500
	scrollKeepAlive = time.Minute
)

// Client scans a jobs index with the scroll API.
type Client struct {
	es       *elasticsearch.Client
	index    string
	pageSize int
	log      *slog.Logger
}

// New instantiates the Elasticsearch client. A non-positive pageSize uses the default.
func New(addr, index string, pageSize int, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{es: es, index: index, pageSize: pageSize, log: logger.OrDiscard(log)}, nil
}

// Name identifies the index in logs and errors.
func (c *Client) Name() string {
	return "elasticsearch:" + c.index
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return store.Unavailable(c.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return store.Unavailable(c.Name(), fmt.Errorf("ping failed: %s", res.Status()))
	}

	return nil
}

// Health checks cluster health.
func (c *Client) Health(ctx context.Context) error {
	res, err := c.es.Cluster.Health(c.es.Cluster.Health.WithContext(ctx))
	if err != nil {
		return store.Unavailable(c.Name(), err)
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(res.Body)
		return store.Unavailable(c.Name(), fmt.Errorf("cluster health bad: %s", strings.TrimSpace(string(data))))
	}
	return nil
}

type scrollResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ScanPage opens a scroll when cursor is nil and continues it otherwise. The cursor
// is the scroll id as a string.
func (c *Client) ScanPage(ctx context.Context, cursor store.Cursor) (store.Page, error) {
	var (
		res *esapi.Response
		err error
	)

	switch cur := cursor.(type) {
	case nil:
		body, merr := json.Marshal(map[string]any{
			"query": map[string]any{"match_all": map[string]any{}},
		})
		if merr != nil {
			return store.Page{}, fmt.Errorf("marshal scan body: %w", merr)
		}
		res, err = c.es.Search(
			c.es.Search.WithContext(ctx),
			c.es.Search.WithIndex(c.index),
			c.es.Search.WithBody(bytes.NewReader(body)),
			c.es.Search.WithSize(c.pageSize),
			c.es.Search.WithSort("_doc"),
			c.es.Search.WithScroll(scrollKeepAlive),
		)
	case string:
		res, err = c.es.Scroll(
			c.es.Scroll.WithContext(ctx),
			c.es.Scroll.WithScrollID(cur),
			c.es.Scroll.WithScroll(scrollKeepAlive),
		)
	default:
		return store.Page{}, fmt.Errorf("unexpected cursor type %T", cursor)
	}
	if err != nil {
		if ctx.Err() != nil {
			return store.Page{}, err
		}
		return store.Page{}, store.Unavailable(c.Name(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(res.Body)
		failure := fmt.Errorf("scroll failed: %s %s", res.Status(), strings.TrimSpace(string(data)))
		switch res.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return store.Page{}, store.Unavailable(c.Name(), failure)
		}
		return store.Page{}, failure
	}

	var parsed scrollResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return store.Page{}, fmt.Errorf("decode scroll response: %w", err)
	}

	jobs := make([]models.Job, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		job := store.JobFromItem(hit.Source, "")
		job.ID = hit.ID
		jobs = append(jobs, job)
	}

	page := store.Page{Jobs: jobs}
	if len(jobs) >= c.pageSize && parsed.ScrollID != "" {
		page.Next = parsed.ScrollID
	} else {
		c.clearScroll(parsed.ScrollID)
	}

	c.log.Debug("scanned elasticsearch page",
		slog.String("index", c.index),
		slog.Int("items", len(jobs)),
		slog.Bool("more", page.Next != nil),
	)
	return page, nil
}

// Release clears the scroll behind an abandoned cursor.
func (c *Client) Release(cursor store.Cursor) {
	if scrollID, ok := cursor.(string); ok {
		c.clearScroll(scrollID)
	}
}

func (c *Client) clearScroll(scrollID string) {
	if scrollID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := c.es.ClearScroll(
		c.es.ClearScroll.WithContext(ctx),
		c.es.ClearScroll.WithScrollID(scrollID),
	)
	if err != nil {
		c.log.Warn("clear scroll", slog.Any("err", err))
		return
	}
	res.Body.Close()
}

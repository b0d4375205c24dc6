// Package invalidate listens for job-ingest notifications on Kafka and drops the
// cached jobs dataset so the next render cycle reads fresh data.
package invalidate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/uk-job-dashboard/internal/config"
	"github.com/DeafMist/uk-job-dashboard/internal/logger"
)

// Invalidator is implemented by fetcher.Cached.
type Invalidator interface {
	Invalidate()
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// notification is the optional JSON body published by the ingest side.
type notification struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

// Consumer drops the cache on every notification for the watched table.
type Consumer struct {
	reader MessageReader
	target Invalidator
	table  string
	log    *slog.Logger
}

// NewReader builds a group reader for cfg.
func NewReader(cfg config.Kafka) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		MinBytes:       1,
		MaxBytes:       1e6,
		CommitInterval: 0, // manual commit only
	})
}

// New creates a Consumer. table filters notifications naming another table;
// an empty table accepts everything.
func New(reader MessageReader, target Invalidator, table string, log *slog.Logger) *Consumer {
	return &Consumer{reader: reader, target: target, table: table, log: logger.OrDiscard(log)}
}

// Run consumes until ctx is cancelled. Fetch errors are logged and retried with
// a short backoff.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	backoff := time.Second
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.log.Info("context canceled, stopping invalidation consumer")
				return nil
			}
			c.log.Error("fetch message", slog.Any("err", err), slog.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		c.Handle(msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit message", slog.Any("err", err))
		}
	}
}

// Handle processes a single message and reports whether the cache was invalidated.
// Bodies that are not JSON still invalidate: any activity on the topic means the
// table may have changed.
func (c *Consumer) Handle(msg kafka.Message) bool {
	var n notification
	if len(msg.Value) > 0 {
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			c.log.Debug("non-json notification", slog.Any("err", err))
			n = notification{}
		}
	}

	table := strings.TrimSpace(n.Table)
	if c.table != "" && table != "" && table != c.table {
		c.log.Debug("ignoring notification for other table",
			slog.String("table", table),
			slog.Int64("offset", msg.Offset),
		)
		return false
	}

	c.target.Invalidate()
	c.log.Info("jobs cache invalidated",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
		slog.Int("ingested", n.Count),
	)
	return true
}

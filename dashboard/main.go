package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/uk-job-dashboard/internal/cache"
	"github.com/DeafMist/uk-job-dashboard/internal/config"
	"github.com/DeafMist/uk-job-dashboard/internal/dynamo"
	"github.com/DeafMist/uk-job-dashboard/internal/elasticsearch"
	"github.com/DeafMist/uk-job-dashboard/internal/fetcher"
	"github.com/DeafMist/uk-job-dashboard/internal/invalidate"
	"github.com/DeafMist/uk-job-dashboard/internal/logger"
	"github.com/DeafMist/uk-job-dashboard/internal/models"
	"github.com/DeafMist/uk-job-dashboard/internal/refresh"
	"github.com/DeafMist/uk-job-dashboard/internal/store"
)

func main() {
	log := logger.New("dashboard")
	cfg, err := config.LoadDashboard()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	scanner, table, err := newScanner(ctx, cfg, log)
	if err != nil {
		log.Error("init store", slog.Any("err", err))
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := scanner.Ping(pingCtx); err != nil {
		// Render cycles retry on their own; start anyway and surface the error per request.
		log.Warn("store not reachable at startup", slog.String("store", scanner.Name()), slog.Any("err", err))
	}
	cancel()

	f := fetcher.New(scanner, log,
		fetcher.WithMaxPages(cfg.Scan.MaxPages),
		fetcher.WithRateLimit(cfg.Scan.PagesPerSecond),
	)
	jobs := fetcher.NewCached(f, cache.NewSlot[*models.Dataset](cfg.CacheTTL), log, fetcher.WithFetchTimeout(fetchTimeout))

	if cfg.Kafka.Enabled() {
		consumer := invalidate.New(invalidate.NewReader(cfg.Kafka), jobs, table, log)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("invalidation consumer stopped", slog.Any("err", err))
			}
		}()
		log.Info("cache invalidation enabled",
			slog.String("topic", cfg.Kafka.KafkaTopic),
			slog.String("group", cfg.Kafka.KafkaConsumer),
		)
	}

	if cfg.WarmInterval > 0 {
		go refresh.New(jobs, cfg.WarmInterval, 0, log).Run(ctx)
	}

	srv, err := newServer(log, cfg, jobs, scanner)
	if err != nil {
		log.Error("init server", slog.Any("err", err))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * fetchTimeout,
	}

	go func() {
		log.Info("dashboard starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("store", scanner.Name()),
			slog.Duration("cache_ttl", cfg.CacheTTL),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

// newScanner builds the configured backend and returns the table name that
// ingest notifications refer to.
func newScanner(ctx context.Context, cfg *config.Dashboard, log *slog.Logger) (store.Scanner, string, error) {
	switch cfg.Backend {
	case config.BackendDynamoDB:
		awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, "", err
		}
		client := dynamo.NewFromConfig(awsCfg, cfg.DynamoDB, log, dynamo.WithPageSize(cfg.Scan.PageSize))
		return client, cfg.DynamoDB.Table, nil
	case config.BackendElasticsearch:
		client, err := elasticsearch.New(cfg.Elastic.ElasticsearchAddr, cfg.Elastic.ElasticsearchIndex, cfg.Scan.PageSize, log)
		if err != nil {
			return nil, "", err
		}
		return client, cfg.Elastic.ElasticsearchIndex, nil
	default:
		return nil, "", fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/jobs", s.handleJobs)
	r.Get("/categories", s.handleCategories)
	return r
}

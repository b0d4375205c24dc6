package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends understood by the dashboard.
const (
	BackendDynamoDB      = "dynamodb"
	BackendElasticsearch = "elasticsearch"
)

// DefaultColumns is the subset of job attributes shown in the grid.
var DefaultColumns = []string{"title", "job_category", "key_skills", "link", "source"}

// DynamoDB holds the table and client settings for the DynamoDB backend.
type DynamoDB struct {
	Table        string
	KeyAttribute string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
}

// Elasticsearch holds settings for the Elasticsearch backend.
type Elasticsearch struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Scan bounds the full-table read.
type Scan struct {
	PageSize       int
	MaxPages       int
	PagesPerSecond float64
}

// Kafka configures the optional cache invalidation consumer.
type Kafka struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaConsumer string
}

// Enabled reports whether any broker is configured.
func (k Kafka) Enabled() bool {
	return len(k.KafkaBrokers) > 0
}

// Dashboard describes the HTTP dashboard process.
type Dashboard struct {
	BindAddr     string
	Title        string
	Columns      []string
	Backend      string
	DynamoDB     DynamoDB
	Elastic      Elasticsearch
	Scan         Scan
	CacheTTL     time.Duration
	WarmInterval time.Duration
	Kafka        Kafka
}

// LoadDashboard builds a Dashboard config from environment variables.
func LoadDashboard() (*Dashboard, error) {
	c := &Dashboard{
		BindAddr: getEnv("DASHBOARD_BIND_ADDR", "0.0.0.0:8501"),
		Title:    getEnv("DASHBOARD_TITLE", "UK Job Engine Dashboard"),
		Columns:  splitAndTrim(getEnv("DASHBOARD_COLUMNS", strings.Join(DefaultColumns, ","))),
		Backend:  strings.ToLower(getEnv("STORE_BACKEND", BackendDynamoDB)),
		DynamoDB: DynamoDB{
			Table:        getEnv("DYNAMODB_TABLE", "UK_Jobs"),
			KeyAttribute: getEnv("DYNAMODB_KEY_ATTRIBUTE", "job_id"),
			Region:       getEnv("AWS_REGION", ""),
			Endpoint:     getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKey:    getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
			SessionToken: getEnv("AWS_SESSION_TOKEN", ""),
		},
		Elastic: Elasticsearch{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "jobs"),
		},
		Scan: Scan{
			PageSize:       getInt("SCAN_PAGE_SIZE", 0),
			MaxPages:       getInt("SCAN_MAX_PAGES", 1000),
			PagesPerSecond: getFloat("SCAN_PAGES_PER_SECOND", 0),
		},
		CacheTTL:     getDuration("CACHE_TTL", "5m"),
		WarmInterval: getDuration("CACHE_WARM_INTERVAL", "0s"),
		Kafka: Kafka{
			KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "")),
			KafkaTopic:    getEnv("KAFKA_TOPIC", "jobs_ingested"),
			KafkaConsumer: getEnv("KAFKA_CONSUMER_GROUP", "job-dashboard"),
		},
	}

	switch c.Backend {
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return nil, fmt.Errorf("DYNAMODB_TABLE must be set")
		}
	case BackendElasticsearch:
		if c.Elastic.ElasticsearchIndex == "" {
			return nil, fmt.Errorf("ELASTICSEARCH_INDEX must be set")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendDynamoDB, BackendElasticsearch, c.Backend)
	}

	if (c.DynamoDB.AccessKey == "") != (c.DynamoDB.SecretKey == "") {
		return nil, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	if len(c.Columns) == 0 {
		return nil, fmt.Errorf("DASHBOARD_COLUMNS must contain at least one column")
	}
	if c.Scan.PageSize < 0 {
		return nil, fmt.Errorf("SCAN_PAGE_SIZE cannot be negative")
	}
	if c.Scan.MaxPages <= 0 {
		return nil, fmt.Errorf("SCAN_MAX_PAGES must be positive")
	}
	if c.Scan.PagesPerSecond < 0 {
		return nil, fmt.Errorf("SCAN_PAGES_PER_SECOND cannot be negative")
	}
	if c.CacheTTL <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.WarmInterval < 0 {
		return nil, fmt.Errorf("CACHE_WARM_INTERVAL cannot be negative")
	}
	if c.Kafka.Enabled() && c.Kafka.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is set")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

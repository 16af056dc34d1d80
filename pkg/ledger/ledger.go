// Package ledger records which delivery records have already been written to the
// metrics sink, so that a record redelivered by the streaming platform is
// acknowledged without writing the same data point twice.
package ledger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Mark is stored against a record id once its sample has been written.
type Mark struct {
	DeliveredAt time.Time `json:"deliveredAt" firestore:"deliveredAt"`
	MetricName  string    `json:"metricName" firestore:"metricName"`
}

// Ledger is the contract for a delivered-record store.
type Ledger interface {
	// Seen reports whether the record id has already been marked as delivered.
	Seen(ctx context.Context, recordID string) (bool, error)
	// MarkDelivered stores a mark for the record id.
	MarkDelivered(ctx context.Context, recordID string, mark Mark) error
	io.Closer
}

// Backend names accepted by LEDGER_BACKEND.
const (
	BackendNone      = "none"
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
)

// Config selects and configures a ledger backend.
type Config struct {
	Backend string
	TTL     time.Duration

	Redis RedisConfig

	ProjectID       string
	Collection      string
	CredentialsFile string
}

// LoadConfigFromEnv loads ledger configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		Backend:         os.Getenv("LEDGER_BACKEND"),
		TTL:             24 * time.Hour,
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		Collection:      os.Getenv("LEDGER_COLLECTION"),
		CredentialsFile: os.Getenv("GCP_FIRESTORE_CREDENTIALS_FILE"),
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendNone
	}
	if cfg.Collection == "" {
		cfg.Collection = "delivered-records"
	}
	if ttl := os.Getenv("LEDGER_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid LEDGER_TTL %q: %w", ttl, err)
		}
		cfg.TTL = d
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", db, err)
		}
		cfg.Redis.DB = n
	}
	cfg.Redis.TTL = cfg.TTL

	switch cfg.Backend {
	case BackendNone, BackendMemory:
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("REDIS_ADDR environment variable not set")
		}
	case BackendFirestore:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("GCP_PROJECT_ID environment variable not set")
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisLedger is a distributed Ledger backed by Redis. Marks expire after the
// configured TTL.
type RedisLedger struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration
	keyPrefix   string
}

// NewRedisLedger creates and connects a RedisLedger. It pings the server before returning.
func NewRedisLedger(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisLedger, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis for ledger: %w", err)
	}
	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis for delivery ledger.")

	return &RedisLedger{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisLedger").Logger(),
		ttl:         cfg.TTL,
		keyPrefix:   "delivered:",
	}, nil
}

// Seen checks for the record's key.
func (l *RedisLedger) Seen(ctx context.Context, recordID string) (bool, error) {
	n, err := l.redisClient.Exists(ctx, l.keyPrefix+recordID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed for record %s: %w", recordID, err)
	}
	return n > 0, nil
}

// MarkDelivered marshals the mark to JSON and stores it with the TTL.
func (l *RedisLedger) MarkDelivered(ctx context.Context, recordID string, mark Mark) error {
	if mark.DeliveredAt.IsZero() {
		mark.DeliveredAt = time.Now().UTC()
	}
	jsonData, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("failed to marshal mark for record %s: %w", recordID, err)
	}
	if err := l.redisClient.Set(ctx, l.keyPrefix+recordID, jsonData, l.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set mark in redis for record %s: %w", recordID, err)
	}
	l.logger.Debug().Str("record_id", recordID).Msg("Record marked as delivered.")
	return nil
}

// Close closes the Redis client connection.
func (l *RedisLedger) Close() error {
	if l.redisClient != nil {
		return l.redisClient.Close()
	}
	return nil
}

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-metricsrelay/pkg/ledger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "")
		t.Setenv("LEDGER_TTL", "")
		t.Setenv("REDIS_DB", "")
		cfg, err := ledger.LoadConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, ledger.BackendNone, cfg.Backend)
		assert.Equal(t, 24*time.Hour, cfg.TTL)
		assert.Equal(t, "delivered-records", cfg.Collection)
	})

	t.Run("redis requires address", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "redis")
		t.Setenv("REDIS_ADDR", "")
		_, err := ledger.LoadConfigFromEnv()
		require.Error(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "redis")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("REDIS_DB", "2")
		t.Setenv("LEDGER_TTL", "10m")
		cfg, err := ledger.LoadConfigFromEnv()
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	})

	t.Run("firestore requires project", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "firestore")
		t.Setenv("GCP_PROJECT_ID", "")
		_, err := ledger.LoadConfigFromEnv()
		require.Error(t, err)
	})

	t.Run("invalid ttl", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "memory")
		t.Setenv("LEDGER_TTL", "soon")
		_, err := ledger.LoadConfigFromEnv()
		require.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "etcd")
		t.Setenv("LEDGER_TTL", "")
		_, err := ledger.LoadConfigFromEnv()
		require.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	l, err := ledger.New(ctx, &ledger.Config{Backend: ledger.BackendNone}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, l)

	l, err = ledger.New(ctx, &ledger.Config{Backend: ledger.BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ledger.InMemoryLedger{}, l)
}

func TestNewFirestoreLedger_Validation(t *testing.T) {
	_, err := ledger.NewFirestoreLedger(nil, "delivered-records")
	require.Error(t, err)
}

package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// New builds the ledger selected by cfg. It returns a nil Ledger for BackendNone.
func New(ctx context.Context, cfg *Config, logger zerolog.Logger) (Ledger, error) {
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		return NewInMemoryLedger(cfg.TTL), nil
	case BackendRedis:
		rl, err := NewRedisLedger(ctx, &cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return rl, nil
	case BackendFirestore:
		client, err := NewFirestoreClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		fl, err := NewFirestoreLedger(client, cfg.Collection)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &clientClosingLedger{Ledger: fl, closeFn: client.Close}, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// clientClosingLedger closes a client that New created on the caller's behalf.
type clientClosingLedger struct {
	Ledger
	closeFn func() error
}

func (c *clientClosingLedger) Close() error {
	_ = c.Ledger.Close()
	return c.closeFn()
}

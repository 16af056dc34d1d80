package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewInMemoryLedger(0)

	seen, err := l.Seen(ctx, "rec-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, l.MarkDelivered(ctx, "rec-1", Mark{MetricName: "Clicked"}))

	seen, err = l.Seen(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = l.Seen(ctx, "rec-2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestInMemoryLedger_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2019, 8, 30, 0, 0, 0, 0, time.UTC)
	l := NewInMemoryLedger(time.Minute)
	l.now = func() time.Time { return now }

	require.NoError(t, l.MarkDelivered(ctx, "rec-1", Mark{}))

	now = now.Add(30 * time.Second)
	seen, err := l.Seen(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, seen, "mark should still be live inside the ttl")

	now = now.Add(time.Minute)
	seen, err = l.Seen(ctx, "rec-1")
	require.NoError(t, err)
	assert.False(t, seen, "mark should have expired")
}

func TestInMemoryLedger_ExpiryKeepsConcurrentMark(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2019, 8, 30, 0, 0, 0, 0, time.UTC)
	l := NewInMemoryLedger(time.Minute)
	require.NoError(t, l.MarkDelivered(ctx, "rec-1", Mark{DeliveredAt: start}))

	later := start.Add(time.Hour)
	remarked := false
	// The clock is read between the expiry check and the delete, which is
	// where a concurrent delivery of the same record can land.
	l.now = func() time.Time {
		if !remarked {
			remarked = true
			require.NoError(t, l.MarkDelivered(ctx, "rec-1", Mark{DeliveredAt: later}))
		}
		return later
	}

	seen, err := l.Seen(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, remarked)
	assert.True(t, seen, "a fresh mark written during the expiry check must survive")

	seen, err = l.Seen(ctx, "rec-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

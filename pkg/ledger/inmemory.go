package ledger

import (
	"context"
	"sync"
	"time"
)

// InMemoryLedger is a thread-safe, process-local Ledger. It only deduplicates
// redeliveries that land on the same warm process.
type InMemoryLedger struct {
	mu   sync.RWMutex
	data map[string]Mark
	ttl  time.Duration
	now  func() time.Time
}

// NewInMemoryLedger creates an in-memory ledger. A ttl of zero keeps marks forever.
func NewInMemoryLedger(ttl time.Duration) *InMemoryLedger {
	return &InMemoryLedger{
		data: make(map[string]Mark),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Seen reports whether an unexpired mark exists for the record id. An expired
// mark is removed only if it is still the stored one once the write lock is held.
func (l *InMemoryLedger) Seen(_ context.Context, recordID string) (bool, error) {
	l.mu.RLock()
	mark, ok := l.data[recordID]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if l.ttl <= 0 {
		return true, nil
	}
	now := l.now()
	if !l.expired(mark, now) {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.data[recordID]
	if !ok {
		return false, nil
	}
	if l.expired(current, now) {
		delete(l.data, recordID)
		return false, nil
	}
	return true, nil
}

func (l *InMemoryLedger) expired(mark Mark, now time.Time) bool {
	return now.Sub(mark.DeliveredAt) > l.ttl
}

// MarkDelivered stores the mark.
func (l *InMemoryLedger) MarkDelivered(_ context.Context, recordID string, mark Mark) error {
	if mark.DeliveredAt.IsZero() {
		mark.DeliveredAt = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[recordID] = mark
	return nil
}

// Close is a no-op for the in-memory implementation.
func (l *InMemoryLedger) Close() error {
	return nil
}

package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationLedger is the durable set of retired token ids, consulted on
// every verification. Entries carry the instant after which the token could
// never verify again regardless of ledger membership, so rows past expiry are
// safe to prune.
type RevocationLedger interface {
	// Revoke records a retired token id. It is idempotent; the boolean
	// reports whether this call was the first to retire the id. Callers that
	// need first-writer-wins semantics (refresh rotation) check it; callers
	// that only need the end state (logout) ignore it.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)

	// IsRevoked reports ledger membership. A Revoke observed by this store
	// must be visible to every subsequent IsRevoked on the same backend.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)

	// PruneExpired deletes entries whose expiry has passed and returns how
	// many were removed. Pruning is lazy: correctness never depends on it.
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

// MemoryLedger is a process-local RevocationLedger. The single mutex gives
// the read-after-write guarantee the refresh race depends on.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryLedger returns an empty in-process ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]time.Time)}
}

func (l *MemoryLedger) Revoke(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.entries[tokenID]; exists {
		return false, nil
	}
	l.entries[tokenID] = expiresAt
	return true, nil
}

func (l *MemoryLedger) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, exists := l.entries[tokenID]
	return exists, nil
}

func (l *MemoryLedger) PruneExpired(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int
	for id, exp := range l.entries {
		if exp.Before(now) {
			delete(l.entries, id)
			removed++
		}
	}
	return removed, nil
}

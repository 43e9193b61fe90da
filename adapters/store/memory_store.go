package store

import (
	"context"
	"sync"
	"time"

	"github.com/d1c-app/d1c-gateway/ports"
)

var _ ports.NonceStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of the NonceStore interface,
// suitable for single-instance deployments and tests.
type MemoryStore struct {
	consumed map[string]time.Time
	mu       sync.Mutex
}

// NewMemoryStore creates a new in-memory nonce store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consumed: make(map[string]time.Time),
	}
}

// Consume marks a nonce as used. The first caller gets true; subsequent
// callers get false until the record's ttl elapses.
func (s *MemoryStore) Consume(ctx context.Context, nonce string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, exists := s.consumed[nonce]; exists && now.Before(expiry) {
		return false, nil
	}

	s.consumed[nonce] = now.Add(ttl)

	// Opportunistic sweep of expired records to keep the map bounded.
	for n, expiry := range s.consumed {
		if now.After(expiry) {
			delete(s.consumed, n)
		}
	}

	return true, nil
}

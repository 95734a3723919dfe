// Package dedup remembers processed delivery keys so redelivered events can
// be dropped at the pipeline boundary.
package dedup

import (
	"context"
	"sync"
	"time"
)

// InMemory tracks seen delivery keys with expiry. Suited to a single-process
// deployment and to tests; multi-instance deployments use the Redis store.
type InMemory struct {
	mu   sync.Mutex
	seen map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (s *InMemory) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, ok := s.seen[key]; ok && now.Before(expiry) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)

	// Opportunistic cleanup keeps the map from growing without bound.
	for k, expiry := range s.seen {
		if now.After(expiry) {
			delete(s.seen, k)
		}
	}
	return true, nil
}

func (s *InMemory) ClearProcessed(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
	return nil
}

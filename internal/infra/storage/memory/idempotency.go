package memory

import (
	"context"
	"sync"
	"time"

	"bookly/internal/app/middleware"
)

type storedResult struct {
	rec       middleware.IdempotencyRecord
	expiresAt time.Time
}

// IdempotencyStore keeps command results in process memory. Expired results are
// invisible to Get and swept on the next Save.
type IdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	results map[string]storedResult
}

// NewIdempotencyStore keeps records for ttl; zero keeps them forever.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, results: make(map[string]storedResult)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[key]
	if !ok || s.expired(res, s.now()) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return res.rec, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, res := range s.results {
		if s.expired(res, now) {
			delete(s.results, key)
		}
	}
	stored := storedResult{rec: rec}
	if s.ttl > 0 {
		stored.expiresAt = now.Add(s.ttl)
	}
	s.results[rec.Key] = stored
	return nil
}

// Len reports how many results are held, expired ones included until swept.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *IdempotencyStore) expired(res storedResult, now time.Time) bool {
	return !res.expiresAt.IsZero() && !now.Before(res.expiresAt)
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)

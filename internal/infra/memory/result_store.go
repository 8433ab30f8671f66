package memory

import (
	"context"
	"sync"
	"time"

	"proctor-quiz-service/internal/domain"
)

// ResultStore keeps finished results in process memory for a bounded time.
type ResultStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	results map[string]storedResult
}

type storedResult struct {
	result    domain.QuizResult
	expiresAt time.Time
}

func NewResultStore(ttl time.Duration) *ResultStore {
	return &ResultStore{
		ttl:     ttl,
		clock:   time.Now,
		results: make(map[string]storedResult),
	}
}

func (s *ResultStore) Save(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	for id, entry := range s.results {
		if s.expired(entry, now) {
			delete(s.results, id)
		}
	}
	s.results[result.SessionID] = storedResult{result: result, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *ResultStore) Get(_ context.Context, sessionID string) (domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.results[sessionID]
	if !ok || s.expired(entry, s.clock()) {
		return domain.QuizResult{}, domain.ErrResultNotFound
	}
	return entry.result, nil
}

func (s *ResultStore) expired(entry storedResult, now time.Time) bool {
	return s.ttl > 0 && !entry.expiresAt.After(now)
}

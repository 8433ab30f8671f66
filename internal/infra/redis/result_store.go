package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"proctor-quiz-service/internal/domain"
)

// ResultStore keeps finished results in Redis with a TTL so they can be
// reviewed after the session without becoming durable records.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) Save(ctx context.Context, result domain.QuizResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(result.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (s *ResultStore) Get(ctx context.Context, sessionID string) (domain.QuizResult, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if isMiss(err) {
			return domain.QuizResult{}, domain.ErrResultNotFound
		}
		return domain.QuizResult{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.QuizResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.QuizResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) key(sessionID string) string {
	return "quiz:result:" + sessionID
}

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"proctor-quiz-service/internal/domain"
)

func TestResultStoreSavesWithTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewResultStore(newClient(mr), time.Hour)
	ctx := context.Background()
	result := domain.QuizResult{
		SessionID:      "s1",
		Score:          3,
		TotalQuestions: 5,
		Answers:        []domain.Answer{1, domain.NoAnswer, 1, 2, 0},
	}

	if err := store.Save(ctx, result); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("quiz:result:s1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 3 || got.Answers[1] != domain.NoAnswer {
		t.Fatalf("unexpected result %+v", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected expired result, got %v", err)
	}
}

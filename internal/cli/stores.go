package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"proctor-quiz-service/internal/app"
	"proctor-quiz-service/internal/config"
	"proctor-quiz-service/internal/infra/memory"
	pgloader "proctor-quiz-service/internal/infra/postgres"
	redisstore "proctor-quiz-service/internal/infra/redis"
)

// stores holds the question bank and result storage chosen from config:
// Postgres when configured (built-in sample bank otherwise), cached in Redis
// when configured (in process otherwise).
type stores struct {
	quizzes app.QuizRepository
	results app.ResultStore
	pg      *pgloader.QuizLoader
	pool    *pgxpool.Pool
	redis   *redis.Client
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	s := &stores{}

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.pool = pool
		s.pg = pgloader.NewQuizLoader(pool)
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(memory.SampleQuizzes())
	if s.pg != nil {
		loader = s.pg
	}

	quizTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	resultTTL := config.Duration(cfg.Results.TTL, 24*time.Hour)
	if s.redis != nil {
		s.quizzes = redisstore.NewQuizRepository(s.redis, loader, quizTTL)
		s.results = redisstore.NewResultStore(s.redis, resultTTL)
	} else {
		s.quizzes = memory.NewQuizRepository(loader, quizTTL)
		s.results = memory.NewResultStore(resultTTL)
	}
	return s, nil
}

// quizIDs lists the available question banks.
func (s *stores) quizIDs(ctx context.Context) ([]string, error) {
	if s.pg != nil {
		return s.pg.ListQuizIDs(ctx)
	}
	ids := make([]string, 0, 1)
	for id := range memory.SampleQuizzes() {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func defaultQuizID(cfg config.Config) string {
	if cfg.Quiz.ID != "" {
		return cfg.Quiz.ID
	}
	return memory.SampleQuizID
}

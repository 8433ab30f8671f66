package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"proctor-quiz-service/internal/app"
	"proctor-quiz-service/internal/domain"
	"proctor-quiz-service/internal/eventloop"
	"proctor-quiz-service/internal/infra/memory"
	pgloader "proctor-quiz-service/internal/infra/postgres"
	pgmigrations "proctor-quiz-service/internal/infra/postgres/migrations"
	infraredis "proctor-quiz-service/internal/infra/redis"
)

type offlineLink struct{}

func (offlineLink) Connect()        {}
func (offlineLink) StartStreaming() {}
func (offlineLink) StopStreaming()  {}
func (offlineLink) Disconnect()     {}

type noCamera struct{}

func (noCamera) Activate() bool { return false }
func (noCamera) Deactivate()    {}
func (noCamera) Capable() bool  { return false }

func TestProctoredSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	quiz := memory.SampleQuizzes()[memory.SampleQuizID]
	seedQuiz(t, ctx, pgURL, quiz)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)
	ids, err := loader.ListQuizIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != quiz.ID {
		t.Fatalf("expected seeded quiz listed, got %v err=%v", ids, err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	results := infraredis.NewResultStore(redisClient, time.Hour)

	clock := eventloop.NewManual(time.Unix(1700000000, 0))
	proctor := app.NewProctor(app.ProctorConfig{
		Scheduler:     clock,
		Link:          offlineLink{},
		Capture:       noCamera{},
		Quizzes:       infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute),
		Results:       results,
		DefaultQuizID: quiz.ID,
	})

	if err := proctor.Start(ctx, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if cached, err := redisClient.Exists(ctx, "quiz:"+quiz.ID).Result(); err != nil || cached != 1 {
		t.Fatalf("expected quiz cached in redis, got %d err=%v", cached, err)
	}

	sessionID := proctor.Snapshot().SessionID
	for i, q := range quiz.Questions {
		choice := q.CorrectAnswer
		if i == len(quiz.Questions)-1 {
			choice = (q.CorrectAnswer + 1) % len(q.Options)
		}
		if err := proctor.Submit(ctx, choice); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if phase := proctor.Snapshot().State.Phase; phase != domain.PhaseFinished {
		t.Fatalf("expected finished session, got %s", phase)
	}
	if err := proctor.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	stored, err := results.Get(ctx, sessionID)
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	want := len(quiz.Questions) - 1
	if stored.Score != want || stored.TotalQuestions != len(quiz.Questions) {
		t.Fatalf("expected score %d/%d, got %d/%d", want, len(quiz.Questions), stored.Score, stored.TotalQuestions)
	}
	if stored.Summary.Percentage != 80 {
		t.Fatalf("expected 80%%, got %d", stored.Summary.Percentage)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "proctor", "POSTGRES_PASSWORD": "proctorpass", "POSTGRES_DB": "proctor"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://proctor:proctorpass@%s:%s/proctor?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

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

	"quizlive-service/internal/app"
	"quizlive-service/internal/domain"
	"quizlive-service/internal/infra/postgres"
	pgmigrations "quizlive-service/internal/infra/postgres/migrations"
	infraredis "quizlive-service/internal/infra/redis"
)

type noopBroadcaster struct{}

func (noopBroadcaster) EmitToRoom(string, string, any)       {}
func (noopBroadcaster) EmitToConnection(string, string, any) {}

func TestCompleteQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, pgURL)
	defer db.Close()
	migrateAll(t, ctx, db)
	seedQuiz(t, ctx, db, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := postgres.NewQuizLoader(pool)
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	roomStore := infraredis.NewRoomStore(redisClient, 5*time.Minute)
	gateway := postgres.NewGateway(db)
	idsync := infraredis.NewIdentitySync(redisClient, "")

	registry := app.NewRoomRegistry(roomStore, quizRepo)
	processor := app.NewAnswerProcessor(quizRepo)
	engine := app.NewGamificationEngine(gateway, gateway, idsync)
	engine.SetDispatch(func(f func()) { f() })
	coordinator := app.NewCoordinator(registry, processor, engine, gateway, noopBroadcaster{})

	joined, err := coordinator.JoinRoom(ctx, "conn-1", domain.JoinRoomPayload{
		QuizID:      "quiz-1",
		UserID:      "u1",
		DisplayName: "Alice",
	})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	err = coordinator.SubmitAnswer(ctx, "conn-1", "u1", domain.AnswerSubmission{
		RoomID:           joined.Room.RoomID,
		QuizID:           "quiz-1",
		QuestionIndex:    0,
		SelectedOption:   1,
		TimeSpentSeconds: 10,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	err = coordinator.CompleteQuiz(ctx, "conn-1", "u1", domain.CompleteQuizPayload{
		RoomID: joined.Room.RoomID,
		QuizID: "quiz-1",
		Answers: []domain.SubmittedAnswer{
			{SelectedOption: 1, TimeSpentSeconds: 10},
			{SelectedOption: 0, TimeSpentSeconds: 15},
		},
		TimeSpentSeconds: 25,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Score record landed in postgres.
	records, err := gateway.FindScoreRecords(ctx, "u1")
	if err != nil {
		t.Fatalf("find scores: %v", err)
	}
	if len(records) != 1 || records[0].Score != 100 || records[0].CorrectAnswers != 2 {
		t.Fatalf("records = %+v", records)
	}

	// Settled profile landed in postgres.
	profile, err := gateway.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if profile == nil || profile.TotalQuizzes != 1 || profile.TotalXP == 0 {
		t.Fatalf("profile = %+v", profile)
	}
	if len(profile.Badges) == 0 {
		t.Fatalf("expected earned badges on profile")
	}

	// Identity sync wrote the summary hash.
	xp, err := redisClient.HGet(ctx, "identity:profile:u1", "totalXP").Result()
	if err != nil {
		t.Fatalf("read identity hash: %v", err)
	}
	if xp != fmt.Sprintf("%d", profile.TotalXP) {
		t.Fatalf("synced XP = %s, profile XP = %d", xp, profile.TotalXP)
	}

	// A second settlement accumulates on the persisted profile.
	if _, err := engine.SettleAttempt(ctx, "u1", "Alice", app.Attempt{
		QuizID: "quiz-1", Subject: "math", Score: 50, Accuracy: 50, TimeSpentSeconds: 40,
	}); err != nil {
		t.Fatalf("second settlement: %v", err)
	}
	profile, err = gateway.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if profile.TotalQuizzes != 2 || profile.AverageAccuracy != 75 {
		t.Fatalf("accumulated profile = %+v", profile)
	}
}

func TestQuizCacheWarmsFromPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, pgURL)
	defer db.Close()
	migrateAll(t, ctx, db)
	seedQuiz(t, ctx, db, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)

	quiz, err := quizRepo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Arithmetic Basics" || len(quiz.Questions) != 2 {
		t.Fatalf("quiz = %+v", quiz)
	}

	answers, err := redisClient.HGetAll(ctx, "quiz:quiz-1:answers").Result()
	if err != nil || len(answers) != 2 {
		t.Fatalf("cached answers = %v (%v)", answers, err)
	}

	if _, err := quizRepo.GetQuiz(ctx, "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func openBun(t *testing.T, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateAll(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, db *bun.DB, quiz domain.Quiz) {
	t.Helper()
	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		Title:   "Arithmetic Basics",
		Subject: "math",
		Questions: []domain.Question{
			{Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectIndex: 1},
			{Prompt: "What is 6 x 7?", Options: []string{"42", "36", "49"}, CorrectIndex: 0},
		},
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

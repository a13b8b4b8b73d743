package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-portal-service/internal/app"
	"quiz-portal-service/internal/config"
	"quiz-portal-service/internal/domain"
	"quiz-portal-service/internal/infra/memory"
	pgstore "quiz-portal-service/internal/infra/postgres"
	rediscache "quiz-portal-service/internal/infra/redis"
	"quiz-portal-service/internal/observability"
	transport "quiz-portal-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// storage bundles the repositories picked from config.
type storage struct {
	catalog     app.CatalogRepository
	submissions app.SubmissionRepository
	loader      memory.QuizLoader
	close       func()
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(observability.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := observability.ShutdownTracer(shutdownCtx, tp); err != nil {
				logger.Warn("tracer shutdown", zap.Error(err))
			}
		}()
	}

	policy, err := app.ParseTextPolicy(cfg.Grading.TextPolicy)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	feed := app.NewSubmissionFeed()

	var (
		quizRepo  app.QuizRepository
		publisher app.SubmissionPublisher
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		quizRepo = rediscache.NewQuizRepository(redisClient, store.loader, config.TTLDuration(cfg.Redis.TTL, quizTTL), logger)
		relay := rediscache.NewSubmissionRelay(redisClient, feed, logger)
		if err := relay.Start(ctx); err != nil {
			return err
		}
		publisher = relay
		logger.Info("using redis quiz cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		quizRepo = memory.NewQuizRepository(store.loader, quizTTL)
	}

	catalog := app.NewCatalogService(store.catalog, quizRepo, logger)
	submissions := app.NewSubmissionService(app.SubmissionDeps{
		Quizzes:     quizRepo,
		Catalog:     store.catalog,
		Submissions: store.submissions,
		Grader:      app.NewGrader(policy),
		Feed:        feed,
		Publisher:   publisher,
		Metrics:     observability.SubmissionRecorder{},
		Logger:      logger,
	})

	if cfg.Postgres.URL == "" {
		if err := seedSampleQuiz(ctx, catalog); err != nil {
			return err
		}
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if cfg.Admin.JWTSecret == "" {
		logger.Warn("admin.jwt_secret is empty, admin routes are unauthenticated")
	}
	router := transport.NewRouter(catalog, submissions, transport.RouterConfig{
		BasePath:        cfg.Server.BasePath,
		CORSOrigins:     cfg.Server.CORSOrigins,
		AdminJWTSecret:  cfg.Admin.JWTSecret,
		SubmitPerMinute: cfg.RateLimit.SubmitPerMinute,
		Tracing:         cfg.Tracing.Enabled,
		Logger:          logger,
	})

	// WriteTimeout stays zero so live feed connections are not cut off.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting quiz service", zap.String("addr", server.Addr), zap.String("base_path", cfg.Server.BasePath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStorage picks Postgres when a URL is configured and the in-memory store
// otherwise. The catalog goes through bun, the hot read and submission paths
// through pgx.
func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage, error) {
	if cfg.Postgres.URL == "" {
		logger.Info("postgres not configured, using in-memory storage")
		store := memory.NewStore()
		return storage{catalog: store, submissions: store, loader: store, close: func() {}}, nil
	}

	db, err := openBunDB(cfg)
	if err != nil {
		return storage{}, err
	}
	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return storage{}, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return storage{}, err
	}
	return storage{
		catalog:     pgstore.NewCatalogStore(db),
		submissions: pgstore.NewSubmissionStore(pool),
		loader:      pgstore.NewQuizLoader(pool),
		close: func() {
			pool.Close()
			_ = db.Close()
		},
	}, nil
}

// seedSampleQuiz gives an in-memory instance something to serve.
func seedSampleQuiz(ctx context.Context, catalog *app.CatalogService) error {
	description := "A short warm-up covering each question type."
	quiz, err := catalog.CreateQuiz(ctx, app.QuizInput{Title: "Sample Quiz", Description: &description})
	if err != nil {
		return err
	}
	points := 2
	questions := []app.QuestionInput{
		{
			Text:   "What is 2 + 2?",
			Type:   domain.QuestionTypeMCQ,
			Points: &points,
			Options: []app.OptionInput{
				{Text: "3"},
				{Text: "4", IsCorrect: true},
				{Text: "5"},
			},
		},
		{
			Text:              "Go is statically typed.",
			Type:              domain.QuestionTypeTrueFalse,
			CorrectAnswerText: strPtr("True"),
		},
		{
			Text:              "Which keyword starts a goroutine?",
			Type:              domain.QuestionTypeText,
			CorrectAnswerText: strPtr("go"),
		},
	}
	for _, q := range questions {
		if _, err := catalog.AddQuestion(ctx, quiz.ID, q); err != nil {
			return err
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }

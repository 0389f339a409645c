package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"learn-quiz-service/internal/app"
	"learn-quiz-service/internal/auth"
	"learn-quiz-service/internal/config"
	"learn-quiz-service/internal/infra/memory"
	"learn-quiz-service/internal/infra/postgres"
	"learn-quiz-service/internal/infra/rabbit"
	infraredis "learn-quiz-service/internal/infra/redis"
	"learn-quiz-service/internal/token"
	transport "learn-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type backend struct {
	service *app.QuizService
	hub     *app.ActivityHub
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// buildBackend picks Postgres, then Redis, then memory for each store.
func buildBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	if cfg.Token.Secret == "" {
		return nil, errors.New("token secret not configured (token.secret or TOKEN_SECRET)")
	}
	b := &backend{hub: app.NewActivityHub()}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			b.Close()
			return nil, err
		}
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes()...)
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizRepo app.QuizRepository
		attempts app.AttemptStore
		ledger   app.ActivityLedger
	)
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}
	switch {
	case pool != nil:
		attempts = postgres.NewAttemptStore(pool)
		ledger = postgres.NewActivityLedger(pool)
	case redisClient != nil:
		attempts = infraredis.NewAttemptStore(redisClient, cfg.Attempts.HistoryLimit)
		ledger = infraredis.NewActivityLedger(redisClient, config.TTLDuration(cfg.Redis.Retention, 90*24*time.Hour))
	default:
		log.Printf("no postgres or redis configured; attempts are kept in memory")
		attempts = memory.NewAttemptStore(cfg.Attempts.HistoryLimit)
		ledger = memory.NewActivityLedger()
	}

	publishers := app.Publishers{b.hub}
	if cfg.Rabbit.URL != "" {
		pub, err := rabbit.Dial(cfg.Rabbit.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		b.closers = append(b.closers, func() { _ = pub.Close() })
		publishers = append(publishers, pub)
	}

	b.service = app.NewQuizService(quizRepo, attempts, ledger, token.NewSigner([]byte(cfg.Token.Secret)),
		app.WithGrace(config.TTLDuration(cfg.Token.Grace, 30*time.Second)),
		app.WithPracticeWindow(config.TTLDuration(cfg.Token.PracticeWindow, 24*time.Hour)),
		app.WithPublisher(publishers),
	)
	return b, nil
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		return errors.New("auth secret not configured (auth.secret or AUTH_SECRET)")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := buildBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	authSvc := auth.NewService(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TTL, 8*time.Hour))
	router := transport.NewRouter(b.service, b.hub, authSvc, transport.RouterConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		HistoryLimit:   cfg.Attempts.HistoryLimit,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

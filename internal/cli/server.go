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
	"golang.org/x/sync/errgroup"

	"quranverse-quiz-service/internal/app"
	"quranverse-quiz-service/internal/config"
	"quranverse-quiz-service/internal/content"
	"quranverse-quiz-service/internal/infra/memory"
	pgstore "quranverse-quiz-service/internal/infra/postgres"
	redisstore "quranverse-quiz-service/internal/infra/redis"
	"quranverse-quiz-service/internal/infra/sqlite"
	transport "quranverse-quiz-service/internal/transport/http"
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

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Without Postgres, generated quizzes are only replayable while cached.
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(nil)
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 24*time.Hour)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}
	provider := content.NewProvider(generator, cfg.Quiz.DailyTopics)

	progression, closeProgression, err := newProgressionStore(cfg, redisClient, pool)
	if err != nil {
		return err
	}
	defer closeProgression()
	dispatcher := app.NewDispatcher(progression, cfg.Progression.Buffer)

	service := app.NewQuizService(store, quizRepo, provider, progression, dispatcher, app.Options{
		DefaultTimeLimit: cfg.Quiz.DefaultTimeLimit,
		TickInterval:     tickInterval(cfg),
	})
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/progression", transport.NewProgressionHandler(service))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// The dispatcher outlives the server so updates from the last sessions land.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer stopDispatch()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(stop)

		select {
		case <-stop:
			log.Println("shutting down server...")
		case <-gctx.Done():
			log.Println("context canceled, shutting down server...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		// Hijacked websockets outlive Shutdown; close their sessions before
		// the dispatcher drains.
		service.Shutdown(shutdownCtx)
		return err
	})
	return g.Wait()
}

// tickInterval is the countdown period; a missing or non-positive value
// falls back to one second so timed quizzes always expire.
func tickInterval(cfg config.Config) time.Duration {
	interval := config.TTLDuration(cfg.Quiz.TickInterval, time.Second)
	if interval <= 0 {
		log.Printf("quiz tick_interval %q is not positive, using 1s", cfg.Quiz.TickInterval)
		return time.Second
	}
	return interval
}

// newGenerator uses the LLM when a key is configured and the built-in
// catalogue otherwise.
func newGenerator(cfg config.Config) (content.Generator, error) {
	if cfg.LLM.APIKey == "" {
		log.Printf("no llm api key configured, serving the built-in catalogue")
		return content.NewCatalogue(), nil
	}
	return content.NewLLMGenerator(content.LLMConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
}

// newProgressionStore picks the configured backend. Without an explicit
// choice the most durable configured one wins: postgres, redis, sqlite, memory.
func newProgressionStore(cfg config.Config, redisClient *redis.Client, pool *pgxpool.Pool) (app.ProgressionStore, func(), error) {
	noop := func() {}
	kind := cfg.Progression.Store
	if kind == "" {
		switch {
		case pool != nil:
			kind = "postgres"
		case redisClient != nil:
			kind = "redis"
		case cfg.SQLite.Path != "":
			kind = "sqlite"
		default:
			kind = "memory"
		}
	}

	switch kind {
	case "memory":
		return memory.NewProgressionStore(), noop, nil
	case "redis":
		if redisClient == nil {
			return nil, noop, fmt.Errorf("progression store redis: redis addr not configured")
		}
		return redisstore.NewProgressionStore(redisClient), noop, nil
	case "postgres":
		if pool == nil {
			return nil, noop, fmt.Errorf("progression store postgres: postgres url not configured")
		}
		return pgstore.NewProgressionStore(pool), noop, nil
	case "sqlite":
		path := cfg.SQLite.Path
		if path == "" {
			path = "data/progression.db"
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Printf("close sqlite: %v", err)
			}
		}, nil
	}
	return nil, noop, fmt.Errorf("unknown progression store %q", kind)
}

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pair-quiz-service/internal/app"
	"pair-quiz-service/internal/auth"
	"pair-quiz-service/internal/config"
	"pair-quiz-service/internal/domain"
	amqpevents "pair-quiz-service/internal/infra/amqp"
	"pair-quiz-service/internal/infra/memory"
	"pair-quiz-service/internal/infra/postgres"
	redisinfra "pair-quiz-service/internal/infra/redis"
	"pair-quiz-service/internal/metrics"
	transport "pair-quiz-service/internal/transport/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
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

// questionSource is what the question banks load from.
type questionSource interface {
	PublishedQuestions(ctx context.Context) ([]domain.Question, error)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret not configured")
	}

	var (
		games   app.GameRepository
		users   app.UserDirectory
		source  questionSource
		cleanup []func()
	)
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		db := openBun(cfg.Postgres.URL)
		cleanup = append(cleanup, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, pool.Close)

		games = postgres.NewGameRepository(db, cfg.Postgres.MaxTxRetries)
		users = postgres.NewUserDirectory(pool)
		source = postgres.NewQuestionSource(pool)
		log.Info("using postgres storage")
	} else {
		seed, err := loadSeedIfSet(cfg.Quiz.SeedFile)
		if err != nil {
			return err
		}
		games = memory.NewGameStore()
		users = memory.NewUserDirectory(seed.Users...)
		source = memory.NewStaticQuestionSource(seed.Questions)
		log.WithField("questions", len(seed.Questions)).Warn("postgres not configured, using in-memory storage")
	}

	questionsTTL := config.TTLDuration(cfg.Quiz.QuestionsTTL, 10*time.Minute)
	var (
		bank     app.QuestionBank
		notifier app.Notifier
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanup = append(cleanup, func() { _ = redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		bank = redisinfra.NewQuestionBank(redisClient, source, questionsTTL)
		notifier = redisinfra.NewNotifier(redisClient)
	} else {
		bank = memory.NewQuestionBank(source, questionsTTL)
		notifier = memory.NewNotifier()
	}

	var events app.EventPublisher
	if cfg.Events.AMQPURL != "" {
		exchange := cfg.Events.Exchange
		if exchange == "" {
			exchange = "pair-quiz.events"
		}
		publisher, err := amqpevents.Dial(cfg.Events.AMQPURL, exchange)
		if err != nil {
			return err
		}
		cleanup = append(cleanup, func() { _ = publisher.Close() })
		events = publisher
	} else {
		log.Info("event publishing disabled")
	}

	recorder := metrics.NewRecorder()
	service := app.NewGameService(games, bank, users, app.Options{
		Matcher: domain.AnswerMatcher{
			Trim:       cfg.Quiz.TrimAnswers,
			IgnoreCase: cfg.Quiz.IgnoreCase,
		},
		FinishGrace: config.TTLDuration(cfg.Quiz.FinishGrace, 0),
		Notifier:    notifier,
		Events:      events,
		Metrics:     recorder,
		Logger:      log,
	})
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", recorder.Handler()).Methods(http.MethodGet)
	transport.NewHandler(service, log, recorder).Register(router, tokens)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting pair quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadSeedIfSet(path string) (config.Seed, error) {
	if path == "" {
		return config.Seed{}, nil
	}
	return config.LoadSeed(path)
}

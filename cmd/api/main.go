package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prepcode-api/internal/config"
	"github.com/noah-isme/prepcode-api/internal/database"
	"github.com/noah-isme/prepcode-api/internal/handler"
	"github.com/noah-isme/prepcode-api/internal/judge"
	"github.com/noah-isme/prepcode-api/internal/middleware"
	"github.com/noah-isme/prepcode-api/internal/observability"
	"github.com/noah-isme/prepcode-api/internal/repository"
	"github.com/noah-isme/prepcode-api/internal/router"
	"github.com/noah-isme/prepcode-api/internal/service"
	"github.com/noah-isme/prepcode-api/pkg/judge0"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "prepcode-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.AppEnv == "development" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, problem cache and verdict channel disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, verdict events limited to redis")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	executor, err := judge0.NewClient(judge0.Config{
		BaseURL:    cfg.Judge0URL,
		AuthHeader: cfg.Judge0AuthHeader,
		AuthToken:  cfg.Judge0AuthToken,
		Timeout:    cfg.Judge0Timeout,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create execution service client")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	languages := judge.NewRegistry()

	problemRepo := repository.NewProblemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	sessionRepo := repository.NewMockSessionRepository(db)

	problemService := service.NewProblemService(problemRepo, redisClient, service.ProblemConfig{
		CacheTTL:             cfg.ProblemCacheTTL,
		DefaultTimeLimitMs:   cfg.DefaultTimeLimitMs,
		DefaultMemoryLimitKB: cfg.DefaultMemoryLimitKB,
	}, logger)
	publisher := service.NewVerdictPublisher(redisClient, cfg.EventChannelBase, natsConn, logger)
	submissionService := service.NewSubmissionService(
		submissionRepo,
		problemRepo,
		sessionRepo,
		service.GradingPipeline{
			Languages: languages,
			Submitter: judge.NewSubmitter(executor, logger),
			Poller: judge.NewPoller(executor, judge.PollerConfig{
				InitialInterval: cfg.PollInitialInterval,
				MaxInterval:     cfg.PollMaxInterval,
				MaxAttempts:     cfg.PollMaxAttempts,
				MaxWait:         cfg.PollMaxWait,
			}, logger),
		},
		publisher,
		problemService,
		validate,
		logger,
		service.SubmissionConfig{
			MaxSourceBytes:       cfg.MaxSourceBytes,
			DefaultTimeLimitMs:   cfg.DefaultTimeLimitMs,
			DefaultMemoryLimitKB: cfg.DefaultMemoryLimitKB,
		},
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.MaxSourceBytes * 4,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		LanguageHandler:   handler.NewLanguageHandler(languages),
		ProblemHandler:    handler.NewProblemHandler(problemService, submissionService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

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

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/database"
	"github.com/noah-isme/gema-lms-api/internal/handler"
	"github.com/noah-isme/gema-lms-api/internal/middleware"
	"github.com/noah-isme/gema-lms-api/internal/repository"
	"github.com/noah-isme/gema-lms-api/internal/router"
	"github.com/noah-isme/gema-lms-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg)

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := database.ConnectRedis(rootCtx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient == nil {
		logger.Warn().Msg("redis url not set, progress cache and notification fan-out disabled")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}

	countedKinds, err := service.ParseCountedKinds(cfg.ProgressCountedKinds)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid progress counted kinds")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	progressRepo := repository.NewProgressRepository(db)
	contentRepo := repository.NewContentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	transactor := repository.NewTransactor(db)

	aggregator := service.NewProgressAggregator(progressRepo, contentRepo, quizRepo, countedKinds, logger)
	progressCache := service.NewProgressCache(redisClient, cfg.ProgressCacheTTL, logger)
	recompute := service.NewRecomputeOrchestrator(courseRepo, aggregator, progressCache, cfg.RecomputeConcurrency, logger)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	dispatcher := service.NewNotificationDispatcher(notificationService, cfg.NotificationBufferSize, logger)
	dispatcher.Start(rootCtx)

	progressService := service.NewProgressService(progressRepo, contentRepo, assignmentRepo, quizRepo, aggregator, progressCache, validate, logger)
	enrollmentService := service.NewEnrollmentService(transactor, courseRepo, studentRepo, progressRepo, progressCache, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, progressRepo, recompute, validate, logger)
	submissionService := service.NewSubmissionService(transactor, submissionRepo, assignmentRepo, courseRepo, progressService, dispatcher, validate, logger)
	quizService := service.NewQuizService(quizRepo, courseRepo, contentRepo, progressRepo, aggregator, progressCache, recompute, dispatcher, validate, logger)
	resourceService := service.NewResourceService(contentRepo, progressRepo, recompute, validate, logger)

	consumer := service.NewProgressEventConsumer(natsConn, cfg.ChannelBase, progressService, logger)
	if err := consumer.Start(rootCtx); err != nil {
		logger.Fatal().Err(err).Str("subject", consumer.Subject()).Msg("failed to subscribe to progress events")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ProgressHandler:     handler.NewProgressHandler(progressService, recompute, validate, logger),
		EnrollmentHandler:   handler.NewEnrollmentHandler(enrollmentService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		QuizHandler:         handler.NewQuizHandler(quizService, logger),
		ResourceHandler:     handler.NewResourceHandler(resourceService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-rootCtx.Done()
	shutdown(logger, app, recompute, dispatcher, natsConn, redisClient)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
	}

	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

// shutdown stops intake first, then drains background work before closing the broker clients.
func shutdown(logger zerolog.Logger, app *fiber.App, recompute service.RecomputeOrchestrator, dispatcher *service.NotificationDispatcher, natsConn *nats.Conn, redisClient *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	recompute.Wait()
	dispatcher.Close()

	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}

	logger.Info().Msg("server stopped")
}

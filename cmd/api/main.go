package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/awards-portal-api/internal/config"
	"github.com/noah-isme/awards-portal-api/internal/database"
	"github.com/noah-isme/awards-portal-api/internal/handler"
	"github.com/noah-isme/awards-portal-api/internal/middleware"
	"github.com/noah-isme/awards-portal-api/internal/observability"
	"github.com/noah-isme/awards-portal-api/internal/repository"
	"github.com/noah-isme/awards-portal-api/internal/router"
	"github.com/noah-isme/awards-portal-api/internal/service"
	cloud "github.com/noah-isme/awards-portal-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "awards-portal-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient == nil {
		logger.Warn().Msg("redis url not set, caching disabled")
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn == nil {
		logger.Warn().Msg("nats url not set, events are only logged")
	} else {
		defer natsConn.Drain()
	}

	storage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	awardRepo := repository.NewAwardRepository(db)
	fieldRepo := repository.NewFieldRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	schemaStore := service.NewSchemaStore(fieldRepo, redisClient, cfg.SchemaCacheTTL, logger)
	notificationService := service.NewNotificationService(notificationRepo, service.NotificationFanout{
		NATS:         natsConn,
		NATSSubject:  cfg.EventSubjectPrefix + ".notifications.fanout",
		Redis:        redisClient,
		RedisChannel: cfg.EventSubjectPrefix + ":notifications",
	}, logger)
	notificationService.Start(ctx)
	events := service.NewNotifyingPublisher(
		service.NewEventPublisher(natsConn, cfg.EventSubjectPrefix, logger),
		notificationService,
		logger,
	)
	activityService := service.NewActivityService(activityRepo, logger)

	awardService := service.NewAwardService(awardRepo, fieldRepo, schemaStore, validate, activityService, logger)
	applicationService := service.NewApplicationService(awardRepo, applicationRepo, schemaStore, events, validate, logger)
	reviewService := service.NewReviewService(service.ReviewServiceDeps{
		Awards:       awardRepo,
		Applications: applicationRepo,
		Reviews:      reviewRepo,
		Schemas:      schemaStore,
		Events:       events,
		Activity:     activityService,
		Cache:        redisClient,
		StatsTTL:     cfg.StatsCacheTTL,
		Validator:    validate,
	}, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, schemaStore, cfg.UploadMaxSizeMB, logger)

	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		"storage":  storage.Ping,
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	jwtMiddleware := middleware.JWTProtected(middleware.JWTConfig{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   cfg.JWTLeeway,
	})
	router.Register(app, cfg, router.Dependencies{
		AwardHandler:        handler.NewAwardHandler(awardService, logger),
		ApplicationHandler:  handler.NewApplicationHandler(applicationService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		ActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		HealthProbes:        probes,
		JWTMiddleware:       jwtMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Msg("server started")
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

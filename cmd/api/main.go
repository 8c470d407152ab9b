package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beamdash/backend/internal/config"
	"github.com/beamdash/backend/internal/handlers"
	"github.com/beamdash/backend/internal/models"
	"github.com/beamdash/backend/internal/observability"
	"github.com/beamdash/backend/internal/pkg/media"
	"github.com/beamdash/backend/internal/services"
	"github.com/beamdash/backend/internal/storage"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.New()

	logger, err := observability.InitLogger(!cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var tp *trace.TracerProvider
	if cfg.TracingEnabled {
		if tp, err = observability.InitTracerProvider(logger); err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		}
	}

	db, err := models.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := models.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient := models.InitRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize object store", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	processor := media.NewProcessor(
		media.NewCWebPEncoder(cfg.CWebPPath, cfg.WebPQuality),
		media.NewFFmpegExtractor(cfg.FFmpegPath),
		media.WithThumbnailSize(cfg.ThumbnailSize),
		media.WithPosterSize(cfg.PosterSize),
		media.WithRasterizer(media.NewMagickConverter(cfg.MagickPath, 0)),
	)

	// Initialize services
	auditService := services.NewAuditService(db, logger)
	authService := services.NewAuthService(db, redisClient, cfg, logger)
	adminService := services.NewAdminService(db, auditService, logger)
	mediaService := services.NewMediaService(db, store, auditService, logger)
	uploadService := services.NewUploadService(mediaService, store, processor, metrics, logger)
	todoService := services.NewTodoService(db, metrics, logger)
	reminderService := services.NewReminderService(db)
	userService := services.NewUserService(db, mediaService, auditService)

	if err := authService.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword); err != nil {
		logger.Error("failed to ensure super admin", zap.Error(err))
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if err := authService.CleanupExpiredTokens(cleanupCtx); err != nil {
					logger.Warn("refresh token cleanup failed", zap.Error(err))
				}
			}
		}
	}()

	deps := handlers.Deps{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Redis:     redisClient,
		Auth:      authService,
		Admin:     adminService,
		Audit:     auditService,
		Media:     mediaService,
		Upload:    uploadService,
		Todos:     todoService,
		Reminders: reminderService,
		Users:     userService,
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if local, ok := store.(*storage.LocalStore); ok {
		deps.FilesRoot = local.Root()
	}
	router := handlers.NewRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  120 * time.Second, // large video uploads
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	observability.ShutdownTracerProvider(shutdownCtx, tp, logger)

	logger.Info("server exited")
}

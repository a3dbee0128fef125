package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"project-workflow-api/internal/client"
	"project-workflow-api/internal/clock"
	"project-workflow-api/internal/config"
	"project-workflow-api/internal/database"
	"project-workflow-api/internal/job"
	"project-workflow-api/internal/metrics"
	"project-workflow-api/internal/repository"
	"project-workflow-api/internal/router"
	"project-workflow-api/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("Starting Workflow Service",
		zap.String("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("base_path", cfg.Server.BasePath),
		zap.String("timezone", cfg.Scheduler.Location().String()),
	)

	m := metrics.NewWithLogger(logger)

	// Workflow state lives in the database; without it there is nothing to schedule
	db, err := database.New(database.Config{
		DSN:             cfg.Database.GetDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	if err := database.SafeAutoMigrateWithRetry(db, logger, 3); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := database.RegisterMetricsCallbacks(db, m); err != nil {
		logger.Warn("Failed to register database metrics callbacks", zap.Error(err))
	}
	stopDBStats := database.StartDBStatsCollector(db, m, 15*time.Second)

	// Redis is optional: without it every replica sweeps and CAS updates settle the race
	var locker job.Locker
	if cfg.Redis.Enabled() {
		redisClient, err := database.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, sweeps run without a distributed lock", zap.Error(err))
		} else {
			defer redisClient.Close()
			locker = database.NewRedisLocker(redisClient)
		}
	}

	var objectStore client.ObjectStore
	if cfg.S3.Bucket != "" && cfg.S3.Region != "" {
		s3Client, err := client.NewS3Client(&cfg.S3)
		if err != nil {
			logger.Warn("Failed to initialize S3 client, attachment cleanup disabled", zap.Error(err))
		} else {
			objectStore = s3Client
			logger.Info("S3 client initialized",
				zap.String("bucket", cfg.S3.Bucket),
				zap.String("region", cfg.S3.Region),
			)
		}
	}

	notifier := client.NewNoOpNotificationClient()
	if cfg.Notification.BaseURL != "" {
		notifier = client.NewNotificationClient(
			cfg.Notification.BaseURL,
			cfg.Notification.InternalAPIKey,
			cfg.Notification.Timeout,
			logger,
			m,
		)
	}

	clk := clock.NewSystem(cfg.Scheduler.Location())

	tx := repository.NewTransactor(db)
	boardRepo := repository.NewBoardRepository(db)
	sprintRepo := repository.NewSprintRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	sprintService := service.NewSprintService(tx, sprintRepo, taskRepo, boardRepo, userRepo, clk, notifier, m, logger)

	scheduler := job.NewScheduler(cfg.Scheduler.Location(), logger)
	sweeper := job.NewSprintSweeper(sprintService, locker, cfg.Scheduler.SweepTimeout, cfg.Scheduler.LockTTL, m, logger)
	if err := scheduler.Register("sprint-sweep", cfg.Scheduler.SweepSchedule, sweeper); err != nil {
		logger.Fatal("Failed to schedule sprint sweep", zap.Error(err))
	}
	if objectStore != nil {
		cleanup := job.NewCleanupJob(attachmentRepo, objectStore, clk, time.Minute, logger)
		if err := scheduler.Register("attachment-cleanup", cfg.Scheduler.CleanupSchedule, cleanup); err != nil {
			logger.Warn("Failed to schedule attachment cleanup", zap.Error(err))
		}
	}
	scheduler.Start()

	collector := metrics.NewBusinessMetricsCollector(db, m, logger)
	collector.Start()

	r := router.Setup(router.Config{
		DB:       db,
		Logger:   logger,
		BasePath: cfg.Server.BasePath,
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Workflow Service started successfully", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	scheduler.Stop(ctx)
	collector.Stop()
	close(stopDBStats)

	if err := database.Close(db); err != nil {
		logger.Warn("Failed to close database", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jn-uniformes/taller-api/api/swagger"
	"github.com/jn-uniformes/taller-api/internal/handler"
	"github.com/jn-uniformes/taller-api/internal/middleware"
	"github.com/jn-uniformes/taller-api/internal/repository"
	"github.com/jn-uniformes/taller-api/internal/service"
	"github.com/jn-uniformes/taller-api/pkg/cache"
	"github.com/jn-uniformes/taller-api/pkg/config"
	"github.com/jn-uniformes/taller-api/pkg/database"
	"github.com/jn-uniformes/taller-api/pkg/jobs"
	"github.com/jn-uniformes/taller-api/pkg/logger"
	corsmiddleware "github.com/jn-uniformes/taller-api/pkg/middleware/cors"
	ratelimitmiddleware "github.com/jn-uniformes/taller-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/jn-uniformes/taller-api/pkg/middleware/requestid"
	"github.com/jn-uniformes/taller-api/pkg/storage"
)

// @title Taller JN Uniformes API
// @version 1.0.0
// @description Reposition workflow service for the garment shop floor
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The workflow degrades gracefully without Redis: no cooldown
		// fast path, no cached unread counts.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Warnw("invalid business timezone, using UTC", "timezone", cfg.Timezone)
		location = time.UTC
	}

	documentStorage, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare document storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	repositionRepo := repository.NewRepositionRepository(db)
	transferRepo := repository.NewTransferRepository(db, cfg.Transfers.Cooldown)
	timerRepo := repository.NewTimerRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	cooldownGuard := repository.NewCooldownGuard(redisClient, cfg.Transfers.Cooldown)

	metricsSvc := service.NewMetricsService()

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, redisClient, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration,
		service.WithAuthLogger(logr))
	repositionSvc := service.NewRepositionService(repositionRepo, historyRepo, notificationSvc,
		service.WithRepositionLogger(logr),
		service.WithRepositionMetrics(metricsSvc))
	transferSvc := service.NewTransferService(transferRepo, repositionRepo, timerRepo, notificationSvc,
		service.WithTransferLogger(logr),
		service.WithTransferGuard(cooldownGuard),
		service.WithTransferMetrics(metricsSvc))
	timerSvc := service.NewTimerService(timerRepo, repositionRepo,
		service.WithTimerLogger(logr),
		service.WithTimerLocation(location),
		service.WithTimerMetrics(metricsSvc))
	trackingSvc := service.NewTrackingService(repositionRepo, transferRepo, timerRepo, historyRepo, logr)
	documentSvc := service.NewDocumentService(documentRepo, repositionRepo, documentStorage, signer,
		cfg.Documents.MaxFileSizeBytes,
		service.WithDocumentLogger(logr))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	if cfg.RateLimit.Enabled {
		r.Use(ratelimitmiddleware.New(cfg.RateLimit.Rate))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Repositions:   handler.NewRepositionHandler(repositionSvc, trackingSvc),
		Transfers:     handler.NewTransferHandler(transferSvc),
		Timers:        handler.NewTimerHandler(timerSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Documents:     handler.NewDocumentHandler(documentSvc),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/collectors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ripe-api/api/swagger"
	"github.com/noah-isme/ripe-api/internal/handler"
	"github.com/noah-isme/ripe-api/internal/middleware"
	"github.com/noah-isme/ripe-api/internal/repository"
	"github.com/noah-isme/ripe-api/internal/service"
	"github.com/noah-isme/ripe-api/pkg/cache"
	"github.com/noah-isme/ripe-api/pkg/config"
	"github.com/noah-isme/ripe-api/pkg/database"
	"github.com/noah-isme/ripe-api/pkg/jobs"
	"github.com/noah-isme/ripe-api/pkg/logger"
	"github.com/noah-isme/ripe-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/ripe-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ripe-api/pkg/middleware/requestid"
	"github.com/noah-isme/ripe-api/pkg/storage"
)

// @title RIPE API
// @version 1.0.0
// @description Research submission tracking: RIPE code allocation, preview, register exports and notifications.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Hour
)

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, option cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	metrics.Registry().MustRegister(collectors.NewDBStatsCollector(db.DB, cfg.Database.Name))
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Preview.CacheTTL, logr, cfg.Preview.CacheEnabled && redisClient != nil)
	if err := cacheSvc.Invalidate(ctx, cache.Key("options", "*")); err != nil {
		logr.Warn("failed to flush option cache", zap.Error(err))
	}

	validate := validator.New()

	submissions := repository.NewSubmissionRepository(db)
	sequences := repository.NewSequenceRepository(db)
	orgs := repository.NewOrganizationRepository(db)
	statusLogs := repository.NewStatusLogRepository(db)
	notifications := repository.NewNotificationRepository(db)

	var assignmentMail interface {
		Dispatch(service.RipeAssignedMail) error
	}
	if cfg.Mail.Enabled {
		sender, err := mailer.NewSMTPSender(cfg.Mail)
		if err != nil {
			logr.Warn("smtp not configured, e-mail notifications disabled", zap.Error(err))
		} else {
			dispatcher := service.NewNotificationDispatcher(sender, metrics, logr, jobs.QueueConfig{
				Workers:    cfg.Notifications.QueueWorkers,
				MaxRetries: cfg.Notifications.QueueRetries,
				RetryDelay: cfg.Notifications.RetryInterval,
			})
			dispatcher.Start(ctx)
			defer dispatcher.Stop()
			assignmentMail = dispatcher
		}
	}

	allocator := service.NewSequenceAllocator(sequences, logr)
	ripeSvc := service.NewRipeService(db, submissions, allocator, orgs, statusLogs, notifications, metrics, assignmentMail, validate, logr,
		service.RipeServiceConfig{LinkTemplate: cfg.Notifications.LinkTemplate})
	previewSvc := service.NewPreviewService(submissions, allocator, orgs, cacheSvc, metrics, validate, logr,
		service.PreviewServiceConfig{OptionsTTL: cfg.Preview.CacheTTL})
	notificationSvc := service.NewNotificationService(notifications, validate, logr)

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	registerSvc := service.NewRegisterService(submissions, store,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		metrics, validate, logr, service.RegisterServiceConfig{
			DownloadPath: path.Join(cfg.APIPrefix, "ripe/register/download"),
			Retention:    cfg.Exports.RetentionTTL,
		})
	go runCleanup(ctx, registerSvc, logr)

	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	opsHandler := handler.NewMetricsHandler(metrics, db, nil, logr)
	if redisClient != nil {
		opsHandler = handler.NewMetricsHandler(metrics, db, cacheRepo, logr)
	}
	handler.RegisterRoutes(r, handler.Handlers{
		Ripe:          handler.NewRipeHandler(ripeSvc, previewSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Register:      handler.NewRegisterHandler(registerSvc),
		Ops:           opsHandler,
	}, handler.RouteOptions{
		Prefix:      cfg.APIPrefix,
		Auth:        middleware.JWT(authSvc),
		AuditLogger: logr.Named("audit"),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func runCleanup(ctx context.Context, svc *service.RegisterService, logr *zap.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Cleanup(); err != nil {
				logr.Warn("register export cleanup failed", zap.Error(err))
			}
		}
	}
}

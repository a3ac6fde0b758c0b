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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/sma-advisory-api/api/swagger"
	"github.com/noah-isme/sma-advisory-api/internal/handler"
	"github.com/noah-isme/sma-advisory-api/internal/middleware"
	"github.com/noah-isme/sma-advisory-api/internal/repository"
	"github.com/noah-isme/sma-advisory-api/internal/service"
	"github.com/noah-isme/sma-advisory-api/pkg/cache"
	"github.com/noah-isme/sma-advisory-api/pkg/config"
	"github.com/noah-isme/sma-advisory-api/pkg/database"
	"github.com/noah-isme/sma-advisory-api/pkg/export"
	"github.com/noah-isme/sma-advisory-api/pkg/logger"
	"github.com/noah-isme/sma-advisory-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/sma-advisory-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-advisory-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-advisory-api/pkg/storage"
)

// @title SMA Advisory API
// @version 1.0.0
// @description Advisory scheduling and booking backend
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Availability.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, true)
		}
	}

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	venueRepo := repository.NewVenueRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	advisoryRepo := repository.NewAdvisoryRepository(db)
	requestRepo := repository.NewAdvisoryRequestRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	mail := mailer.NewSMTP(cfg.Mail)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, mail, service.NotificationConfig{
		Enabled:    cfg.Notifications.Enabled,
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-advisory-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, userRepo, validate, logr)
	venueSvc := service.NewVenueService(venueRepo, validate, logr)
	timeSlotSvc := service.NewTimeSlotService(timeSlotRepo, cacheSvc, validate, logr)
	availabilitySvc := service.NewAvailabilityService(timeSlotRepo, advisoryRepo, subjectRepo, cacheSvc, cfg.Availability.MaxRangeDays, cfg.Availability.CacheTTL, logr)
	requestSvc := service.NewAdvisoryRequestService(requestRepo, subjectRepo, notificationSvc, validate, logr)
	advisorySvc := service.NewAdvisoryService(advisoryRepo, subjectRepo, venueRepo, timeSlotRepo, requestRepo, validate, logr)
	invitationSvc := service.NewInvitationService(invitationRepo, advisoryRepo, advisorySvc, notificationSvc, cfg.Invitations.DefaultTTL, validate, logr)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, advisoryRepo, export.NewCSVExporter(), export.NewPDFExporter(), reportStore, reportSigner, validate, logr)
	dashboardSvc := service.NewDashboardService(requestRepo, advisoryRepo, timeSlotRepo, invitationRepo, userRepo, metricsSvc, cacheSvc, cfg.Dashboard.CacheTTL, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

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

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.RouterConfig{
		AuthService:   authSvc,
		AuditRepo:     userRepo,
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Subjects:      handler.NewSubjectHandler(subjectSvc),
		Venues:        handler.NewVenueHandler(venueSvc),
		TimeSlots:     handler.NewTimeSlotHandler(timeSlotSvc),
		Availability:  handler.NewAvailabilityHandler(availabilitySvc),
		Requests:      handler.NewAdvisoryRequestHandler(requestSvc),
		Advisories:    handler.NewAdvisoryHandler(advisorySvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Invitations:   handler.NewInvitationHandler(invitationSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

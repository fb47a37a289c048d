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

	_ "github.com/ririnrahma1306/campusboard/api/swagger"
	"github.com/ririnrahma1306/campusboard/internal/handler"
	"github.com/ririnrahma1306/campusboard/internal/middleware"
	"github.com/ririnrahma1306/campusboard/internal/models"
	"github.com/ririnrahma1306/campusboard/internal/repository"
	"github.com/ririnrahma1306/campusboard/internal/service"
	"github.com/ririnrahma1306/campusboard/pkg/cache"
	"github.com/ririnrahma1306/campusboard/pkg/config"
	"github.com/ririnrahma1306/campusboard/pkg/database"
	"github.com/ririnrahma1306/campusboard/pkg/export"
	"github.com/ririnrahma1306/campusboard/pkg/jobs"
	"github.com/ririnrahma1306/campusboard/pkg/logger"
	corsmiddleware "github.com/ririnrahma1306/campusboard/pkg/middleware/cors"
	reqidmiddleware "github.com/ririnrahma1306/campusboard/pkg/middleware/requestid"
	"github.com/ririnrahma1306/campusboard/pkg/storage"
)

// @title CampusBoard API
// @version 1.0.0
// @description Campus announcement board with moderated publishing, events and personal calendars
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	validate := validator.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	eventRepo := repository.NewEventRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr).WithMetrics(metricsSvc)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetCodeExpiry:    cfg.Reset.CodeTTL,
		Issuer:             cfg.JWT.Issuer,
	})
	announcementSvc := service.NewAnnouncementService(announcementRepo, eventRepo, cacheRepo, userRepo, uploads, validate, logr, service.AnnouncementServiceConfig{
		CacheTTL:      cfg.Board.CacheTTL,
		PageSize:      cfg.Board.PageSize,
		MaxImageBytes: cfg.Uploads.MaxFileSizeBytes,
	})
	eventSvc := service.NewEventService(eventRepo, calendarRepo, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, announcementRepo, userRepo, userRepo, validate, logr)
	calendarSvc := service.NewCalendarService(calendarRepo, eventRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, calendarRepo, uploads, validate, logr, service.UserServiceConfig{
		MaxPhotoBytes: cfg.Uploads.MaxFileSizeBytes,
	})
	notificationSvc := service.NewNotificationService(calendarSvc, announcementSvc, commentSvc, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	announcementHandler := handler.NewAnnouncementHandler(announcementSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	userHandler := handler.NewUserHandler(userSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	mediaHandler := handler.NewMediaHandler(uploads)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/verify-reset-code", authHandler.VerifyResetCode)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	// The board and detail views work for anonymous visitors too.
	api.GET("/announcements", middleware.OptionalJWT(authSvc), announcementHandler.Board)
	api.GET("/announcements/:id", middleware.OptionalJWT(authSvc), announcementHandler.Get)
	api.GET("/announcements/:id/comments", commentHandler.List)
	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/media/*path", mediaHandler.Serve)

	authed := api.Group("", middleware.JWT(authSvc))
	{
		authed.GET("/users/me", userHandler.Me)
		authed.PUT("/users/me", userHandler.UpdateMe)
		authed.POST("/users/me/photo", userHandler.UploadPhoto)
		authed.DELETE("/users/me", userHandler.DeleteMe)
		authed.GET("/users/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), userHandler.Get)

		authed.POST("/announcements", announcementHandler.Create)
		authed.GET("/announcements/mine", announcementHandler.ListMine)

		authed.POST("/announcements/:id/comments", commentHandler.Create)
		authed.PUT("/comments/:id", commentHandler.Update)
		authed.POST("/comments/:id/report", commentHandler.Report)
		authed.DELETE("/comments/:id", commentHandler.Delete)

		authed.POST("/calendar", calendarHandler.Save)
		authed.GET("/calendar", calendarHandler.List)
		authed.DELETE("/calendar/:eventId", calendarHandler.Remove)
		authed.GET("/calendar/grid", calendarHandler.MonthGrid)

		authed.GET("/notifications", notificationHandler.Feed)
	}

	admin := api.Group("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/admin/announcements/pending", announcementHandler.ListPending)
		admin.POST("/admin/announcements/:id/approve", announcementHandler.Approve)
		admin.POST("/admin/announcements/:id/reject", announcementHandler.Reject)
		admin.DELETE("/admin/announcements/:id", announcementHandler.Delete)

		admin.POST("/admin/events", middleware.Audit(userRepo, models.AuditActionEventCreate, "events"), eventHandler.Create)
		admin.DELETE("/admin/events/:id", middleware.Audit(userRepo, models.AuditActionEventDelete, "events"), eventHandler.Delete)

		admin.GET("/admin/comments/reported", commentHandler.ListReported)
		admin.POST("/admin/comments/:id/dismiss", commentHandler.Dismiss)

		admin.GET("/users", userHandler.List)
		admin.PATCH("/users/:id/role", userHandler.ChangeRole)
		admin.POST("/users/:id/deactivate", userHandler.Deactivate)

		admin.GET("/admin/metrics", metricsHandler.Snapshot)
	}

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc := service.NewExportService(announcementRepo, eventRepo, exportStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, export.NewCSVExporter(), export.NewPDFExporter())

		exportJobRepo := repository.NewExportJobRepository(db)
		worker := service.NewExportWorker(exportJobRepo, exportSvc, cfg.Exports.WorkerRetries, logr)
		exportQueue = jobs.NewQueue("exports", worker.Handle, jobs.Options{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			Logger:     logr,
		})
		exportQueue.Start(ctx)

		exportJobSvc := service.NewExportJobService(exportJobRepo, exportQueue, exportSvc, logr, service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		exportJobSvc.RecoverPendingJobs(ctx)
		exportJobSvc.StartCleanup(ctx)

		exportHandler := handler.NewExportHandler(exportJobSvc)
		admin.POST("/admin/exports", exportHandler.CreateJob)
		admin.GET("/admin/exports/:id", exportHandler.Status)
		// Download links are signed; the token is the credential.
		api.GET("/exports/download/:token", exportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}

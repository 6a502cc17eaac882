package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-insight/student-records-api/api/swagger"
	"github.com/campus-insight/student-records-api/internal/handler"
	"github.com/campus-insight/student-records-api/internal/middleware"
	"github.com/campus-insight/student-records-api/internal/notify"
	"github.com/campus-insight/student-records-api/internal/repository"
	"github.com/campus-insight/student-records-api/internal/service"
	"github.com/campus-insight/student-records-api/pkg/cache"
	"github.com/campus-insight/student-records-api/pkg/config"
	"github.com/campus-insight/student-records-api/pkg/database"
	"github.com/campus-insight/student-records-api/pkg/logger"
	corsmiddleware "github.com/campus-insight/student-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-insight/student-records-api/pkg/middleware/requestid"
)

// @title Student Records API
// @version 0.1.0
// @description Student records dashboard backend with an approval workflow
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewNotifier(redisClient, cfg.Notifier, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(profileRepo, auditRepo, notifier, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	accessSvc := service.NewAccessService(cfg.Bootstrap, authSvc, auditRepo, logr)
	approvalSvc := service.NewApprovalService(approvalRepo, studentRepo, auditRepo, notifier, logr)
	studentSvc := service.NewStudentService(studentRepo, auditRepo, notifier, validate, logr)
	importerSvc := service.NewImporterService(db, studentRepo, auditRepo, notifier, cfg.Imports, logr)

	authHandler := handler.NewAuthHandler(authSvc, accessSvc, cfg.Bootstrap)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, metricsSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	importHandler := handler.NewImportHandler(importerSvc, metricsSvc)
	eventsHandler := handler.NewEventsHandler(notifier)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/admin/login", authHandler.AdminLogin)
	auth.POST("/admin/logout", authHandler.AdminLogout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	auth.GET("/profile", middleware.JWT(authSvc), authHandler.Profile)
	auth.PUT("/profile", middleware.JWT(authSvc), authHandler.CompleteProfile)

	students := api.Group("/students", middleware.OptionalJWT(authSvc))
	students.GET("", studentHandler.List)
	students.GET("/:id", studentHandler.Get)

	approvals := api.Group("/approval-requests", middleware.JWT(authSvc))
	approvals.POST("", approvalHandler.Create)
	approvals.GET("", approvalHandler.List)
	approvals.GET("/:id", approvalHandler.Get)

	api.GET("/events", middleware.JWT(authSvc), eventsHandler.Stream)

	admin := api.Group("/admin", middleware.OptionalJWT(authSvc), middleware.AdminGate(accessSvc, cfg.Bootstrap.CookieName))
	admin.POST("/approval-requests/:id/review", approvalHandler.Review)
	admin.POST("/students", studentHandler.Create)
	admin.PUT("/students/:id", studentHandler.Update)
	admin.DELETE("/students/:id", studentHandler.Delete)
	admin.POST("/students/import", importHandler.Upload)
	admin.POST("/users", authHandler.CreateUser)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/uai-repositorio/saf-api/api/swagger"
	"github.com/uai-repositorio/saf-api/internal/handler"
	"github.com/uai-repositorio/saf-api/internal/middleware"
	"github.com/uai-repositorio/saf-api/internal/models"
	"github.com/uai-repositorio/saf-api/internal/repository"
	"github.com/uai-repositorio/saf-api/internal/saf"
	"github.com/uai-repositorio/saf-api/internal/service"
	"github.com/uai-repositorio/saf-api/pkg/cache"
	"github.com/uai-repositorio/saf-api/pkg/config"
	"github.com/uai-repositorio/saf-api/pkg/database"
	"github.com/uai-repositorio/saf-api/pkg/jobs"
	"github.com/uai-repositorio/saf-api/pkg/logger"
	corsmiddleware "github.com/uai-repositorio/saf-api/pkg/middleware/cors"
	reqidmiddleware "github.com/uai-repositorio/saf-api/pkg/middleware/requestid"
	"github.com/uai-repositorio/saf-api/pkg/storage"
)

// @title UAI SAF API
// @version 1.0.0
// @description Thesis approval workflow and DSpace Simple Archive Format export pipeline
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, progress polling falls back to the database", "error", err)
		redisClient = nil
	}

	media, err := storage.NewLocalStorage(cfg.Media.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init media storage", "error", err)
	}
	exports, err := storage.NewLocalStorage(cfg.Saf.OutputRoot)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}

	recordRepo := repository.NewRecordRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	fileRepo := repository.NewFileRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	careerRepo := repository.NewCareerRepository(db)
	licenseRepo := repository.NewLicenseRepository(db)

	rules := service.RegistryRules{
		DNILength:       cfg.Registry.DNILength,
		RequireTurnitin: cfg.Registry.RequireTurnitin,
	}
	fileExists := func(storedPath string) bool {
		_, err := os.Stat(media.Path(storedPath))
		return err == nil
	}

	metricsSvc := service.NewMetricsService()
	groupSvc := service.NewGroupService(groupRepo, recordRepo, auditRepo, logr)
	recordSvc := service.NewRecordService(recordRepo, auditRepo, careerRepo, fileRepo, groupRepo, groupSvc, fileExists, rules, logr)
	fileSvc := service.NewFileService(fileRepo, recordRepo, media, cfg.Media.MaxFileSizeBytes, logr)

	converter := &saf.Converter{SofficePath: cfg.Converter.SofficePath, Timeout: cfg.Converter.Timeout}
	signer := storage.NewSignedURLSigner(cfg.Saf.SignedURLSecret, cfg.Saf.SignedURLTTL)
	batchSvc := service.NewBatchService(service.BatchServiceDeps{
		Batches:   batchRepo,
		Records:   recordRepo,
		Groups:    groupRepo,
		Careers:   careerRepo,
		Files:     fileRepo,
		License:   licenseRepo,
		Status:    groupSvc,
		Builder:   saf.NewItemBuilder(converter),
		Signer:    signer,
		Cache:     redisClient,
		Metrics:   metricsSvc,
		Logger:    logr,
		MediaPath: media.Path,
		Saf:       cfg.Saf,
		DSpace:    cfg.DSpace,
	})
	linkSvc := service.NewLinkService(batchRepo, recordRepo, auditRepo, groupSvc, cfg.DSpace.BaseURL, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := jobs.NewQueue("saf-generation", batchSvc.ProcessJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Saf.WorkerRetries,
		Logger:     logr,
	})
	batchSvc.BindQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()
	batchSvc.RecoverInterrupted(ctx)

	if cfg.Saf.OutputRetention > 0 {
		go sweepExports(ctx, exports, cfg.Saf.OutputRetention, logr)
	}

	recordHandler := handler.NewRecordHandler(recordSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)
	fileHandler := handler.NewFileHandler(fileSvc)
	batchHandler := handler.NewBatchHandler(batchSvc, linkSvc)
	careerHandler := handler.NewCareerHandler(careerRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	admin := string(models.RoleAdmin)
	loader := string(models.RoleLoader)
	advisor := string(models.RoleAdvisor)
	auditor := string(models.RoleAuditor)

	api.GET("/careers", careerHandler.ListActive)

	groups := api.Group("/groups")
	{
		groups.GET("", groupHandler.List)
		groups.POST("", middleware.RBAC(admin, loader), groupHandler.Create)
		groups.GET("/:id", groupHandler.Get)
		groups.DELETE("/:id", middleware.RBAC(admin), groupHandler.Delete)
		groups.POST("/:id/submit", middleware.RBAC(admin, loader), groupHandler.Submit)
	}

	records := api.Group("/records")
	{
		records.GET("", recordHandler.List)
		records.POST("", middleware.RBAC(admin, loader), recordHandler.Create)
		records.GET("/:id", recordHandler.Get)
		records.PUT("/:id", middleware.RBAC(admin, loader, advisor), recordHandler.Update)
		records.GET("/:id/validate", recordHandler.Validate)
		records.POST("/:id/ready", middleware.RBAC(admin, loader, advisor), recordHandler.MarkReady)
		records.POST("/:id/observe", middleware.RBAC(admin, auditor), recordHandler.Observe)
		records.POST("/:id/approve", middleware.RBAC(admin, auditor), recordHandler.Approve)
		records.GET("/:id/history", recordHandler.History)
		records.GET("/:id/files", fileHandler.List)
		records.POST("/:id/files", middleware.RBAC(admin, loader, advisor), fileHandler.Upload)
	}
	api.DELETE("/files/:fileId", middleware.RBAC(admin, loader, advisor), fileHandler.Delete)

	batches := api.Group("/saf/batches")
	{
		batches.GET("", middleware.RBAC(admin, auditor), batchHandler.List)
		batches.POST("", middleware.RBAC(admin, auditor), batchHandler.Create)
		batches.GET("/:id", middleware.RBAC(admin, auditor), batchHandler.Status)
		batches.POST("/:id/generate", middleware.RBAC(admin, auditor), batchHandler.Generate)
		batches.POST("/:id/scripts", middleware.RBAC(admin, auditor), batchHandler.RefreshScripts)
		batches.GET("/:id/download", middleware.RBAC(admin, auditor), batchHandler.DownloadURL)
		batches.POST("/:id/links", middleware.RBAC(admin, auditor), batchHandler.ApplyLinks)
	}
	// Token-authenticated download, outside the JWT group.
	r.GET(cfg.APIPrefix+"/saf/batches/download/:token", batchHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// sweepExports prunes generated batch output past its retention age, once at
// startup and then every six hours.
func sweepExports(ctx context.Context, exports *storage.LocalStorage, retention time.Duration, logr *zap.Logger) {
	sweep := func() {
		deleted, err := exports.CleanupOlderThan(retention)
		if err != nil {
			logr.Sugar().Warnw("export cleanup failed", "error", err)
			return
		}
		if len(deleted) > 0 {
			logr.Sugar().Infow("export cleanup removed stale output", "files", len(deleted))
		}
	}
	sweep()
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}

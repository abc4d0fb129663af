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

	"github.com/harmonia-mx/campus-api/internal/handler"
	"github.com/harmonia-mx/campus-api/internal/middleware"
	"github.com/harmonia-mx/campus-api/internal/repository"
	"github.com/harmonia-mx/campus-api/internal/service"
	"github.com/harmonia-mx/campus-api/pkg/cache"
	"github.com/harmonia-mx/campus-api/pkg/config"
	"github.com/harmonia-mx/campus-api/pkg/database"
	"github.com/harmonia-mx/campus-api/pkg/logger"
	corsmiddleware "github.com/harmonia-mx/campus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/harmonia-mx/campus-api/pkg/middleware/requestid"
	"github.com/harmonia-mx/campus-api/pkg/storage"
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close()
		}
	}

	files, err := storage.NewLocalStorage(cfg.Sheets.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init sheet storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Sheets.SignedURLSecret, cfg.Sheets.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	campusRepo := repository.NewCampusRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	classRepo := repository.NewClassRepository(db)
	instrumentRepo := repository.NewInstrumentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	sheetRepo := repository.NewSheetRepository(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditRecorder(userRepo, cfg.Audit, metricsSvc, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, campusRepo, auditSvc, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	campusSvc := service.NewCampusService(campusRepo, cacheRepo, metricsSvc, validate, logr, cfg.Cache.CampusTTL)
	studentSvc := service.NewStudentService(studentRepo, tutorRepo, classRepo, validate, logr, cfg.Registry.CURPScope)
	tutorSvc := service.NewTutorService(tutorRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, teacherRepo, validate, logr)
	instrumentSvc := service.NewInstrumentService(instrumentRepo, studentRepo, auditSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	transferSvc := service.NewTransferService(transferRepo, studentRepo, instrumentRepo, classRepo, tutorRepo, cacheRepo, auditSvc, metricsSvc, validate, logr, cfg.Cache.TransferTTL)
	sheetSvc := service.NewSheetService(sheetRepo, files, signer, validate, logr, cfg.Sheets)
	userSvc := service.NewUserService(userRepo, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc, cfg.Cookie, cfg.JWT),
		Campuses:    handler.NewCampusHandler(campusSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Tutors:      handler.NewTutorHandler(tutorSvc),
		Classes:     handler.NewClassHandler(classSvc),
		Instruments: handler.NewInstrumentHandler(instrumentSvc),
		Teachers:    handler.NewTeacherHandler(teacherSvc),
		Transfers:   handler.NewTransferHandler(transferSvc, metricsSvc),
		Sheets:      handler.NewSheetHandler(sheetSvc),
		Users:       handler.NewUserHandler(userSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc),
	}, authSvc, cfg.Cookie, cfg.APIPrefix)

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
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}

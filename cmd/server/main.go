package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/hama-community/welfare/internal/config"
	"github.com/hama-community/welfare/internal/database"
	"github.com/hama-community/welfare/internal/handler"
	"github.com/hama-community/welfare/internal/middleware"
	"github.com/hama-community/welfare/internal/queue"
	"github.com/hama-community/welfare/internal/repository"
	"github.com/hama-community/welfare/internal/router"
	"github.com/hama-community/welfare/internal/service"
	"github.com/hama-community/welfare/internal/utils"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat, "welfare-api")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig(), logger.Named("redis"))
	if rdb != nil {
		defer rdb.Close()
	}
	statsCache := middleware.NewRedisCache(config.LoadCacheConfig(config.ScopeStats, 30*time.Second), rdb, logger.Named("cache"))
	refCfg := config.LoadCacheConfig(config.ScopeReference, 5*time.Minute)
	refCache := middleware.NewRedisCache(refCfg, rdb, logger.Named("cache"))
	refInvalidate := middleware.InvalidateCache(refCfg, rdb, logger.Named("cache"))
	authLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(config.ScopeAuth, 10), rdb, logger.Named("ratelimit"))
	writeLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(config.ScopeTakaful, 30), rdb, logger.Named("ratelimit"))

	benefits := repository.NewBenefitRepo(db)
	providers := repository.NewProviderRepo(db)
	families := repository.NewFamilyRepo(db)
	reasons := repository.NewCancelReasonRepo(db)

	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.EventsQueue, logger.Named("publisher"))
	takaful := service.NewTakafulService(benefits, providers, families, reasons, publisher, logger.Named("takaful"))

	consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.EventsQueue, cfg.AuditLogPath, logger.Named("audit"))
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("audit consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), logger.Named("auth")), cfg.JWTSecret, authLimit)
	router.RegisterTakaful(e, handler.NewTakafulHandler(takaful, logger.Named("takaful")), cfg.JWTSecret, writeLimit, statsCache)
	router.RegisterCancelReasons(e, handler.NewCancelReasonHandler(service.NewReasonService(reasons), logger.Named("reasons")), cfg.JWTSecret)
	router.RegisterReference(e, &handler.ReferenceHandler{
		Providers:     providers,
		Families:      families,
		Neighborhoods: repository.NewNeighborhoodRepo(db),
		Log:           logger.Named("reference"),
	}, refCache)
	router.RegisterFamilies(e, handler.NewFamilyHandler(service.NewFamilyService(families, logger.Named("families")), logger.Named("families")),
		cfg.JWTSecret, writeLimit, refCache, refInvalidate)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// Package main provides the entry point for the Shortly URL shortener service.
//
//	@title			Shortly API
//	@version		1.0.0
//	@description	URL shortening service with redirect tracking and analytics.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Authorization header. Format: "Bearer {token}"
package main

import (
	"Shortly-Backend/internal/analytics"
	"Shortly-Backend/internal/auth"
	"Shortly-Backend/internal/cache"
	"Shortly-Backend/internal/config"
	"Shortly-Backend/internal/database"
	httpHandler "Shortly-Backend/internal/handler/http"
	"Shortly-Backend/internal/repository/postgres"
	"Shortly-Backend/internal/service"
	"Shortly-Backend/internal/shortcode"
	"Shortly-Backend/pkg/logger"
	"Shortly-Backend/pkg/useragent"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "Shortly-Backend/docs" // swagger docs
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting shortly service", zap.String("env", cfg.Env))

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// User-Agent parser is optional: classification falls back to
	// heuristics when the regex file is missing.
	uaParser, err := useragent.NewParser("assets/regexes.yaml", log)
	if err != nil {
		log.Warn("failed to initialize User-Agent parser, using heuristic fallback", zap.Error(err))
	}

	storage := postgres.New(db, log)

	var redirectCache cache.Cache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedis(&cfg.Cache, log)
		if err != nil {
			log.Warn("failed to connect to redis, serving without cache", zap.Error(err))
		} else {
			redirectCache = redisCache
			defer func() {
				if err := redisCache.Close(); err != nil {
					log.Error("failed to close redis connection", zap.Error(err))
				}
			}()
		}
	}

	recorder := analytics.NewRecorder(storage, uaParser, log, analytics.RecorderConfigFrom(&cfg.Analytics))
	if err := recorder.Start(); err != nil {
		log.Fatal("failed to start access recorder", zap.Error(err))
	}
	defer func() {
		if err := recorder.Stop(); err != nil {
			log.Error("failed to stop access recorder cleanly", zap.Error(err))
		}
	}()

	generator := shortcode.New(&cfg.Shortener)
	allocator := service.NewAllocator(storage, generator, &cfg.Shortener, log)
	resolver := service.NewResolver(storage, redirectCache, recorder, log)
	deactivator := service.NewDeactivator(storage, redirectCache, log)
	aggregator := analytics.NewAggregator(storage, log)

	var rateLimiter *httpHandler.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = httpHandler.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window, log)
		defer rateLimiter.Stop()
	}

	server := httpHandler.NewServer(httpHandler.ServerDeps{
		Storage:      storage,
		Allocator:    allocator,
		Resolver:     resolver,
		Deactivator:  deactivator,
		Aggregator:   aggregator,
		JWTService:   auth.NewJWTService(&cfg.Auth),
		PasswordSvc:  auth.NewPasswordService(),
		Shortener:    &cfg.Shortener,
		RateLimiter:  rateLimiter,
		CheckStorage: func() error { return database.HealthCheck(db) },
		QueueStats:   recorder.QueueStats,
	}, log)

	handler := httpHandler.RequestLogger(log, server.SetupRoutes())

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down shortly service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}

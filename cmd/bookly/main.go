package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookly/internal/infra/config"
	ginserver "bookly/internal/infra/http/gin"
	"bookly/internal/infra/obs"
	"bookly/internal/infra/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(getenv("APP_ENV", "dev"), getenv("LOG_LEVEL", "info"))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger = obs.NewLogger(cfg.Env, cfg.LogLevel)

	shutdownTracer, err := obs.InitTracer(ctx, "bookly", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("tracer init failed", "error", err)
		os.Exit(1)
	}

	infra, err := openInfrastructure(ctx, cfg, logger)
	if err != nil {
		logger.Error("infrastructure init failed", "error", err)
		os.Exit(1)
	}

	app := buildApplication(cfg, infra, logger, nil)
	if err := loadFixtures(ctx, cfg.FixturesPath, infra.factory, security.BcryptHasher{}, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", cfg.FixturesPath)
	}

	go func() {
		if err := infra.relayWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	limiter := app.handlers.RateLimiter
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup()
			}
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: infra.ready}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := infra.Close(closeCtx); err != nil {
		logger.Warn("infrastructure close failed", "error", err)
	}
	if err := shutdownTracer(closeCtx); err != nil {
		logger.Warn("tracer shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/agri-advisor/internal/app"
	"github.com/kjstillabower/agri-advisor/internal/config"
	httphandler "github.com/kjstillabower/agri-advisor/internal/http"
	"github.com/kjstillabower/agri-advisor/internal/ingest"
	"github.com/kjstillabower/agri-advisor/internal/lifecycle"
	"github.com/kjstillabower/agri-advisor/internal/observability"
	"github.com/kjstillabower/agri-advisor/internal/retriever"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	container, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("wiring", zap.Error(err))
	}
	lifecycle.MarkStarted(time.Now())

	if cfg.BuildIndexOnStart && container.Index != nil {
		stats, err := container.BuildIndex(context.Background(), false)
		switch {
		case errors.Is(err, ingest.ErrNoDocuments):
			logger.Warn("no documents to index", zap.String("docs_dir", cfg.DocsDir))
		case err != nil:
			logger.Error("index build failed", zap.Error(err))
		default:
			logger.Info("document index ready",
				zap.Int("chunks", stats.Chunks+stats.Existing),
				zap.Duration("duration", stats.Duration))
		}
	}

	if len(cfg.WarmQueries) > 0 {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.WarmTimeout)
		if err := container.Pipeline.Warm(warmCtx, cfg.WarmQueries); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
	}

	observability.RegisterTrafficGauges(cfg.OverloadWindow)
	healthConfig := &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
		CachePing:            container.CachePing(),
		IndexReady:           func() error { return retriever.ErrIndexUnavailable },
	}
	if container.Index != nil {
		healthConfig.IndexReady = container.Index.Ready
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(container.Pipeline, container.Guide, container.Market, healthConfig, httphandler.Limits{
		QueryMaxLength:    cfg.QueryMaxLength,
		LocationMinLength: cfg.LocationMinLength,
		LocationMaxLength: cfg.LocationMaxLength,
	}, logger)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	if err := container.Close(); err != nil {
		logger.Error("close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

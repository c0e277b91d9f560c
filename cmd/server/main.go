package main

import (
	"context"
	"delivery-fee-service/internal/api"
	"delivery-fee-service/internal/app"
	"delivery-fee-service/internal/config"
	"delivery-fee-service/internal/platform/logging"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, geocoding providers, caches) behind
// ports and starts the HTTP server.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	loadedEnv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if !loadedEnv {
		logger.Info("no .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := obs.InitTracing(ctx, obs.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	}, logger)
	if err != nil {
		return err
	}
	defer obs.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	metrics, err := obs.NewMetrics(nil)
	if err != nil {
		return err
	}

	// Apply migrations on startup for local runs.
	a, err := app.Build(ctx, cfg, logger, metrics, true)
	if err != nil {
		return err
	}
	defer a.Close()

	limiter := api.NewClientLimiter(cfg.RateRPS, cfg.RateBurst)
	limiter.StartJanitor(ctx)

	router := api.NewRouter(api.Deps{
		Estimator: a.Estimator,
		DB:        a.DB,
		Limiter:   limiter,
		Metrics:   metrics,
		Logger:    logger,
	})

	// Write timeout covers two sequential provider chains on a cold cache.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

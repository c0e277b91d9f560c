package api

import (
	"delivery-fee-service/internal/api/handlers"
	"delivery-fee-service/internal/platform/obs"
	"log/slog"
	"net/http"
)

type Deps struct {
	Estimator handlers.Estimator
	DB        handlers.Pinger
	Limiter   *ClientLimiter
	Metrics   *obs.Metrics
	Logger    *slog.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	deliveryHandler := &handlers.DeliveryHandler{
		Estimator: deps.Estimator,
		Logger:    logger,
	}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/ready", handlers.Ready(deps.DB))
	mux.Handle("/metrics", deps.Metrics.Handler())
	mux.HandleFunc("/menu/{slug}/calculate-delivery", deliveryHandler.Calculate)

	var h http.Handler = mux
	h = rateLimitMiddleware(deps.Limiter)(h)
	h = loggingMiddleware(logger, deps.Metrics)(h)
	h = requestIDMiddleware(h)
	return h
}

package handlers

import (
	"context"
	"delivery-fee-service/internal/api/dto"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"log/slog"
	"net/http"
)

// Estimator is the pipeline behind the delivery endpoint.
type Estimator interface {
	Estimate(ctx context.Context, slug, rawCEP string) (domain.DeliveryEstimate, error)
}

const (
	msgInvalidPostalCode     = "CEP inválido. Informe 8 dígitos."
	msgDeliveryUnavailable   = "Delivery não disponível para este estabelecimento."
	msgOriginUnavailable     = "Não foi possível obter coordenadas do CEP do estabelecimento."
	msgDestUnavailable       = "Não foi possível obter coordenadas do CEP informado."
	msgInternal              = "Erro ao calcular entrega"
	msgConfigurationFallback = "Configuração de entrega inválida. Verifique o admin."
)

type DeliveryHandler struct {
	Estimator Estimator
	Logger    *slog.Logger
}

// Calculate serves GET /menu/{slug}/calculate-delivery?cep=.
func (h *DeliveryHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	slug := r.PathValue("slug")
	cep := r.URL.Query().Get("cep")

	est, err := h.Estimator.Estimate(r.Context(), slug, cep)
	if err != nil {
		status, msg := statusFor(err)

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger().LogAttrs(r.Context(), level, "delivery estimate rejected",
			slog.String("req_id", obs.RequestID(r.Context())),
			slog.String("slug", slug),
			slog.Int("status", status),
			slog.Any("error", err),
		)

		writeError(w, r, status, msg)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewDeliveryResponse(est))
}

func (h *DeliveryHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// statusFor maps pipeline errors to HTTP status codes and client messages.
func statusFor(err error) (int, string) {
	var (
		cfgErr      *domain.ConfigError
		unavailable *domain.CoordinatesUnavailableError
	)

	switch {
	case errors.Is(err, domain.ErrInvalidPostalCode):
		return http.StatusBadRequest, msgInvalidPostalCode
	case errors.As(err, &cfgErr):
		if cfgErr.Reason == "" {
			return http.StatusBadRequest, msgConfigurationFallback
		}
		return http.StatusBadRequest, cfgErr.Reason
	case errors.Is(err, domain.ErrTenantNotFound), errors.Is(err, domain.ErrDeliveryDisabled):
		return http.StatusNotFound, msgDeliveryUnavailable
	case errors.As(err, &unavailable):
		if unavailable.Side == domain.SideOrigin {
			return http.StatusUnprocessableEntity, msgOriginUnavailable
		}
		return http.StatusUnprocessableEntity, msgDestUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

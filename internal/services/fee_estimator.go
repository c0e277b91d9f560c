package services

import (
	"delivery-fee-service/internal/domain"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// EstimateFee prices a delivery from the tenant config and the geocoded
// endpoints. A nil coordinate means that endpoint could not be resolved.
//
// Distance pricing applies only when the config has a positive per-km rate,
// a valid origin postal code and both coordinates. Otherwise a lenient tenant
// with a flat fee is charged that fee; everyone else gets the error.
func EstimateFee(
	cfg domain.DeliveryConfig,
	dest domain.PostalCode,
	origin *domain.Coordinates,
	destCoords *domain.Coordinates,
) (domain.DeliveryEstimate, error) {
	originCode, rate, err := cfg.DistancePricing()
	if err != nil {
		return fallback(cfg, dest, err)
	}

	if origin == nil {
		return fallback(cfg, dest, &domain.CoordinatesUnavailableError{Side: domain.SideOrigin, PostalCode: originCode})
	}
	if destCoords == nil {
		return fallback(cfg, dest, &domain.CoordinatesUnavailableError{Side: domain.SideDestination, PostalCode: dest})
	}

	km := domain.DistanceKm(*origin, *destCoords)
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return domain.DeliveryEstimate{}, fmt.Errorf("estimate fee %s: non-finite distance", dest)
	}

	fee := decimal.NewFromFloat(km).Mul(rate).Round(2)
	rounded := math.Round(km*100) / 100

	return domain.DeliveryEstimate{
		Fee:                fee,
		EstimatedMinutes:   cfg.PrepTime(),
		PostalCode:         dest,
		DistanceKilometers: &rounded,
		PerKilometerRate:   &rate,
	}, nil
}

// fallback charges the flat fee when the tenant's policy allows it and
// returns cause otherwise.
func fallback(cfg domain.DeliveryConfig, dest domain.PostalCode, cause error) (domain.DeliveryEstimate, error) {
	if cfg.FallbackPolicy != domain.PolicyLenient || cfg.FlatFee == nil || cfg.FlatFee.IsNegative() {
		return domain.DeliveryEstimate{}, cause
	}

	return domain.DeliveryEstimate{
		Fee:              cfg.FlatFee.Round(2),
		EstimatedMinutes: cfg.PrepTime(),
		PostalCode:       dest,
		UsedFlatFee:      true,
	}, nil
}

// estimateOutcome labels an estimate result for metrics.
func estimateOutcome(est domain.DeliveryEstimate, err error) string {
	var cfgErr *domain.ConfigError
	switch {
	case err == nil && est.UsedFlatFee:
		return "flat_fee"
	case err == nil:
		return "distance"
	case errors.Is(err, domain.ErrInvalidPostalCode):
		return "invalid_postal_code"
	case errors.Is(err, domain.ErrTenantNotFound):
		return "tenant_not_found"
	case errors.Is(err, domain.ErrDeliveryDisabled):
		return "delivery_disabled"
	case errors.As(err, &cfgErr):
		return "config_error"
	case errors.Is(err, domain.ErrCoordinatesUnavailable):
		return "coordinates_unavailable"
	default:
		return "error"
	}
}

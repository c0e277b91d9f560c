package services

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"delivery-fee-service/internal/ports"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// DeliveryEstimator runs the full pipeline: postal code normalization,
// tenant config, geocoding of both endpoints and fee estimation.
type DeliveryEstimator struct {
	configs  *ConfigurationResolver
	geocoder ports.Geocoder
	logger   *slog.Logger
	metrics  *obs.Metrics
}

func NewDeliveryEstimator(
	configs *ConfigurationResolver,
	geocoder ports.Geocoder,
	logger *slog.Logger,
	metrics *obs.Metrics,
) *DeliveryEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliveryEstimator{
		configs:  configs,
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

func (e *DeliveryEstimator) Estimate(ctx context.Context, slug, rawCEP string) (est domain.DeliveryEstimate, err error) {
	ctx, span := obs.Tracer().Start(ctx, "delivery.estimate")
	span.SetAttributes(attribute.String("slug", NormalizeSlug(slug)))
	defer func() {
		outcome := estimateOutcome(est, err)
		e.metrics.ObserveEstimate(outcome)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	defer obs.TimeExpected(ctx, "delivery_estimate", domain.IsClientError)(&err)

	dest, err := domain.NormalizePostalCode(rawCEP)
	if err != nil {
		return domain.DeliveryEstimate{}, err
	}

	cfg, err := e.configs.Resolve(ctx, slug)
	if err != nil {
		return domain.DeliveryEstimate{}, err
	}

	origin, _, err := cfg.DistancePricing()
	if err != nil {
		// No network when distance pricing cannot apply.
		est, err = EstimateFee(cfg, dest, nil, nil)
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			// Settings awaiting an admin fix are re-read on the next request.
			e.configs.Invalidate(slug)
		}
		return est, err
	}

	originCoords, destCoords, missing, err := e.resolvePair(ctx, origin, dest)
	if err != nil {
		return domain.DeliveryEstimate{}, err
	}
	if missing != nil {
		return fallback(cfg, dest, missing)
	}

	est, err = EstimateFee(cfg, dest, &originCoords, &destCoords)
	if err != nil {
		return domain.DeliveryEstimate{}, err
	}

	if est.DistanceKilometers != nil && *est.DistanceKilometers == 0 {
		e.logger.WarnContext(ctx, "zero delivery distance",
			slog.String("req_id", obs.RequestID(ctx)),
			slog.String("slug", cfg.Slug),
			slog.String("origin", origin.String()),
			slog.String("destination", dest.String()),
		)
	}

	return est, nil
}

// resolvePair geocodes both endpoints concurrently. The first endpoint that
// cannot be resolved cancels the other and is reported through missing.
func (e *DeliveryEstimator) resolvePair(
	ctx context.Context,
	origin, dest domain.PostalCode,
) (originCoords, destCoords domain.Coordinates, missing *domain.CoordinatesUnavailableError, err error) {
	g, gctx := errgroup.WithContext(ctx)

	var once sync.Once
	markMissing := func(side domain.Side, pc domain.PostalCode) {
		once.Do(func() {
			missing = &domain.CoordinatesUnavailableError{Side: side, PostalCode: pc}
		})
	}

	resolve := func(side domain.Side, pc domain.PostalCode, out *domain.Coordinates) func() error {
		return func() error {
			c, err := e.geocoder.Resolve(gctx, pc)
			if err != nil {
				if errors.Is(err, domain.ErrCoordinatesNotFound) {
					markMissing(side, pc)
				}
				return fmt.Errorf("%s: %w", side, err)
			}
			*out = c
			return nil
		}
	}

	g.Go(resolve(domain.SideOrigin, origin, &originCoords))
	g.Go(resolve(domain.SideDestination, dest, &destCoords))

	waitErr := g.Wait()
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, domain.Coordinates{}, nil, fmt.Errorf("resolve coordinates: %w", err)
	}
	if missing != nil {
		return domain.Coordinates{}, domain.Coordinates{}, missing, nil
	}
	if waitErr != nil {
		return domain.Coordinates{}, domain.Coordinates{}, nil, fmt.Errorf("resolve coordinates: %w", waitErr)
	}

	return originCoords, destCoords, nil, nil
}

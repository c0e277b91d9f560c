package geocoding

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"delivery-fee-service/internal/ports"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Chain step names, also used as metric labels.
const (
	StepPostalDatabase  = "postal_database"
	StepPostalCodeQuery = "postal_code_query"
	StepAddressQuery    = "address_query"
	StepCoarseQuery     = "coarse_query"
	StepNone            = "none"
)

// Chain resolves a postal code by trying its providers in order:
// the postal database, a free-text search for the bare code, the full
// street address and finally city + state. The first success wins.
//
// Provider failures never escape: Resolve either returns coordinates or an
// error wrapping domain.ErrCoordinatesNotFound.
type Chain struct {
	postalDB  ports.PostalCodeDatabase
	geocoder  ports.TextGeocoder
	addresses ports.AddressLookup

	logger  *slog.Logger
	metrics *obs.Metrics
}

type ChainOption func(*Chain)

func WithLogger(l *slog.Logger) ChainOption {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *obs.Metrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// NewChain builds a chain. Any provider may be nil, its steps are skipped.
func NewChain(
	postalDB ports.PostalCodeDatabase,
	geocoder ports.TextGeocoder,
	addresses ports.AddressLookup,
	opts ...ChainOption,
) *Chain {
	c := &Chain{
		postalDB:  postalDB,
		geocoder:  geocoder,
		addresses: addresses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Resolve(ctx context.Context, postalCode domain.PostalCode) (coords domain.Coordinates, err error) {
	ctx, span := obs.Tracer().Start(ctx, "geocoding.chain.resolve")
	span.SetAttributes(attribute.String("postal_code", postalCode.String()))
	defer span.End()

	defer obs.TimeExpected(ctx, "geocode_resolve", domain.IsClientError)(&err)

	var failures *multierror.Error
	attempt := func(step string, fn func(context.Context) (domain.Coordinates, error)) (domain.Coordinates, bool) {
		stepCtx, stepSpan := obs.Tracer().Start(ctx, "geocoding.step."+step)
		defer stepSpan.End()

		got, err := fn(stepCtx)
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", step, err))
			return domain.Coordinates{}, false
		}
		return got, true
	}

	succeed := func(step string, got domain.Coordinates) (domain.Coordinates, error) {
		c.metrics.ObserveChainResolution(step)
		span.SetAttributes(attribute.String("step", step))
		if failures != nil {
			c.logger.DebugContext(ctx, "geocode resolved after fallbacks",
				slog.String("postal_code", postalCode.String()),
				slog.String("step", step),
				slog.Int("failed_steps", failures.Len()),
			)
		}
		return got, nil
	}

	if c.postalDB != nil {
		if got, ok := attempt(StepPostalDatabase, func(ctx context.Context) (domain.Coordinates, error) {
			return c.postalDB.LookupCoordinates(ctx, postalCode)
		}); ok {
			return succeed(StepPostalDatabase, got)
		}
	}

	if c.geocoder != nil {
		if got, ok := attempt(StepPostalCodeQuery, func(ctx context.Context) (domain.Coordinates, error) {
			return c.geocoder.Search(ctx, domain.PostalCodeQuery(postalCode))
		}); ok {
			return succeed(StepPostalCodeQuery, got)
		}
	}

	if c.geocoder != nil && c.addresses != nil && ctx.Err() == nil {
		addr, lookupErr := c.addresses.LookupAddress(ctx, postalCode)
		if lookupErr != nil {
			failures = multierror.Append(failures, fmt.Errorf("address_lookup: %w", lookupErr))
		} else {
			if q := addr.Query(); q != "" {
				if got, ok := attempt(StepAddressQuery, func(ctx context.Context) (domain.Coordinates, error) {
					return c.geocoder.Search(ctx, q)
				}); ok {
					return succeed(StepAddressQuery, got)
				}
			}

			if q := addr.CoarseQuery(); q != "" && ctx.Err() == nil {
				if got, ok := attempt(StepCoarseQuery, func(ctx context.Context) (domain.Coordinates, error) {
					return c.geocoder.Search(ctx, q)
				}); ok {
					return succeed(StepCoarseQuery, got)
				}
			}
		}
	}

	c.metrics.ObserveChainResolution(StepNone)
	if failures != nil {
		// Only provider failures are worth a warning; empty answers are routine.
		level := slog.LevelInfo
		if !lo.EveryBy(failures.Errors, func(e error) bool { return errors.Is(e, ErrNoResult) }) {
			level = slog.LevelWarn
		}
		c.logger.Log(ctx, level, "geocode providers exhausted",
			slog.String("postal_code", postalCode.String()),
			slog.Any("error", failures.ErrorOrNil()),
		)
	}
	span.SetStatus(codes.Error, "not found")

	return domain.Coordinates{}, fmt.Errorf("resolve %s: %w", postalCode, domain.ErrCoordinatesNotFound)
}

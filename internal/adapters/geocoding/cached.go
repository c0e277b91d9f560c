package geocoding

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"delivery-fee-service/internal/ports"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// CachedGeocoder consults a GeocodeCache before the wrapped geocoder and
// coalesces concurrent lookups of the same postal code. Only successful
// resolutions are stored; cache failures count as misses.
type CachedGeocoder struct {
	next    ports.Geocoder
	cache   ports.GeocodeCache
	group   singleflight.Group
	logger  *slog.Logger
	metrics *obs.Metrics
}

func NewCachedGeocoder(next ports.Geocoder, cache ports.GeocodeCache, logger *slog.Logger, metrics *obs.Metrics) *CachedGeocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedGeocoder{
		next:    next,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

func (g *CachedGeocoder) Resolve(ctx context.Context, postalCode domain.PostalCode) (domain.Coordinates, error) {
	if g.cache == nil {
		return g.next.Resolve(ctx, postalCode)
	}

	cached, err := g.cache.GetMany(ctx, []domain.PostalCode{postalCode})
	switch {
	case err != nil:
		g.metrics.ObserveCacheLookup("error", 1)
		g.logger.WarnContext(ctx, "geocode cache read failed",
			slog.String("postal_code", postalCode.String()),
			slog.Any("error", err),
		)
	default:
		if c, ok := cached[postalCode]; ok {
			g.metrics.ObserveCacheLookup("hit", 1)
			return c, nil
		}
		g.metrics.ObserveCacheLookup("miss", 1)
	}

	// The shared lookup outlives any single caller.
	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(postalCode.String(), func() (any, error) {
		c, err := g.next.Resolve(shared, postalCode)
		if err != nil {
			return domain.Coordinates{}, err
		}

		if err := g.cache.PutMany(shared, map[domain.PostalCode]domain.Coordinates{postalCode: c}); err != nil {
			g.logger.WarnContext(shared, "geocode cache write failed",
				slog.String("postal_code", postalCode.String()),
				slog.Any("error", err),
			)
		}
		return c, nil
	})

	select {
	case <-ctx.Done():
		return domain.Coordinates{}, fmt.Errorf("resolve %s: %w", postalCode, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Coordinates{}, res.Err
		}
		return res.Val.(domain.Coordinates), nil
	}
}

// Package app assembles the estimation pipeline from configuration.
package app

import (
	"context"
	"database/sql"
	"delivery-fee-service/internal/adapters/cache"
	"delivery-fee-service/internal/adapters/geocoding"
	"delivery-fee-service/internal/adapters/repositories"
	"delivery-fee-service/internal/config"
	"delivery-fee-service/internal/platform/db"
	"delivery-fee-service/internal/platform/obs"
	"delivery-fee-service/internal/ports"
	"delivery-fee-service/internal/services"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// App holds the wired pipeline and the resources it owns.
type App struct {
	DB        *sql.DB
	Estimator *services.DeliveryEstimator
	Configs   *services.ConfigurationResolver
	Geocoder  ports.Geocoder

	redis *redis.Client
}

// Build opens the database, optionally migrates it, and wires adapters
// behind ports.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, metrics *obs.Metrics, migrate bool) (*App, error) {
	conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultOptions())
	if err != nil {
		return nil, err
	}

	if migrate {
		if err := repositories.Migrate(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	a := &App{DB: conn}

	geoCache, err := a.geocodeCache(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	chain := NewChain(cfg, logger, metrics)

	a.Geocoder = chain
	if geoCache != nil {
		a.Geocoder = geocoding.NewCachedGeocoder(chain, geoCache, logger, metrics)
	}

	a.Configs = services.NewConfigurationResolver(repositories.NewPostgresTenantRepository(conn), cfg.TenantCacheTTL)
	a.Estimator = services.NewDeliveryEstimator(a.Configs, a.Geocoder, logger, metrics)

	logger.Info("pipeline ready",
		slog.String("geocode_cache", cfg.GeocodeCache),
		slog.Duration("provider_timeout", cfg.ProviderTimeout),
		slog.Float64("nominatim_rps", cfg.NominatimRPS),
	)

	return a, nil
}

// NewChain builds the provider chain: BrasilAPI, then Nominatim (followed by
// OpenRouteService when ORS_API_KEY is set) and ViaCEP.
func NewChain(cfg config.Config, logger *slog.Logger, metrics *obs.Metrics) *geocoding.Chain {
	session := &http.Client{}

	text := []ports.TextGeocoder{
		geocoding.NewNominatim(cfg.NominatimURL, session, cfg.ProviderTimeout, metrics,
			geocoding.WithRateLimit(cfg.NominatimRPS, 1),
			geocoding.WithUserAgent(cfg.NominatimUserAgent),
		),
	}
	if cfg.ORSAPIKey != "" {
		ors, err := geocoding.NewOpenRouteService(cfg.ORSAPIKey, cfg.ORSURL, session, cfg.ProviderTimeout, metrics)
		if err != nil {
			logger.Warn("openrouteservice disabled", slog.Any("error", err))
		} else {
			text = append(text, ors)
		}
	}

	return geocoding.NewChain(
		geocoding.NewBrasilAPI(cfg.BrasilAPIURL, session, cfg.ProviderTimeout, metrics),
		geocoding.NewFallback(text...),
		geocoding.NewViaCEP(cfg.ViaCEPURL, session, cfg.ProviderTimeout, metrics),
		geocoding.WithLogger(logger),
		geocoding.WithMetrics(metrics),
	)
}

func (a *App) geocodeCache(ctx context.Context, cfg config.Config) (ports.GeocodeCache, error) {
	switch cfg.GeocodeCache {
	case config.CacheNone:
		return nil, nil
	case config.CacheRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisGeocodeCache(a.redis, cfg.GeocodeCacheTTL), nil
	default:
		return cache.NewSQLGeocodeCache(a.DB, cfg.GeocodeCacheTTL), nil
	}
}

func (a *App) Close() error {
	var err error
	if a.redis != nil {
		err = a.redis.Close()
	}
	if a.DB != nil {
		if cerr := a.DB.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends for geocoding results.
const (
	CachePostgres = "postgres"
	CacheRedis    = "redis"
	CacheNone     = "none"
)

type Config struct {
	Port        string
	DatabaseURL string

	LogLevel  string
	LogFormat string

	GeocodeCache       string
	GeocodeCacheTTL    time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	TenantCacheTTL     time.Duration
	ProviderTimeout    time.Duration
	NominatimRPS       float64
	NominatimUserAgent string
	BrasilAPIURL       string
	NominatimURL       string
	ViaCEPURL          string
	ORSAPIKey          string
	ORSURL             string
	RateRPS            float64
	RateBurst          int
	TracingEnabled     bool
	TracingExporter    string
	OTLPEndpoint       string
	TracingSampleRatio float64
}

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the service configuration from the environment.
func Load() (Config, error) {
	return load(true)
}

// LoadOffline reads the configuration for commands that only talk to the
// geocoding providers. DATABASE_URL is optional and no geocode cache is used.
func LoadOffline() (Config, error) {
	cfg, err := load(false)
	if err != nil {
		return Config{}, err
	}
	cfg.GeocodeCache = CacheNone
	return cfg, nil
}

func load(requireDatabase bool) (Config, error) {
	cfg := Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		LogLevel:  Get("LOG_LEVEL", "info"),
		LogFormat: Get("LOG_FORMAT", "text"),

		GeocodeCache:       strings.ToLower(Get("GEOCODE_CACHE", CachePostgres)),
		GeocodeCacheTTL:    GetDuration("GEOCODE_CACHE_TTL", 30*24*time.Hour),
		RedisAddr:          Get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            GetInt("REDIS_DB", 0),
		TenantCacheTTL:     GetDuration("TENANT_CACHE_TTL", 30*time.Second),
		ProviderTimeout:    GetDuration("PROVIDER_TIMEOUT", 8*time.Second),
		NominatimRPS:       GetFloat("NOMINATIM_RPS", 1),
		NominatimUserAgent: Get("NOMINATIM_USER_AGENT", "delivery-fee-service/1.0 (delivery calculator)"),
		BrasilAPIURL:       Get("BRASILAPI_URL", "https://brasilapi.com.br"),
		NominatimURL:       Get("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		ViaCEPURL:          Get("VIACEP_URL", "https://viacep.com.br"),
		ORSAPIKey:          os.Getenv("ORS_API_KEY"),
		ORSURL:             Get("ORS_URL", "https://api.openrouteservice.org"),
		RateRPS:            GetFloat("RATE_RPS", 5),
		RateBurst:          GetInt("RATE_BURST", 10),
		TracingEnabled:     GetBool("TRACING_ENABLED", false),
		TracingExporter:    Get("TRACING_EXPORTER", "stdout"),
		OTLPEndpoint:       os.Getenv("OTLP_ENDPOINT"),
		TracingSampleRatio: GetFloat("TRACING_SAMPLE_RATIO", 1),
	}

	if requireDatabase && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	switch cfg.GeocodeCache {
	case CachePostgres, CacheRedis, CacheNone:
	default:
		return Config{}, fmt.Errorf("GEOCODE_CACHE must be one of postgres, redis, none; got %q", cfg.GeocodeCache)
	}

	if cfg.GeocodeCache == CacheRedis && strings.TrimSpace(cfg.RedisAddr) == "" {
		return Config{}, errors.New("REDIS_ADDR is required when GEOCODE_CACHE=redis")
	}
	if cfg.ProviderTimeout <= 0 {
		return Config{}, errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	if cfg.NominatimRPS <= 0 {
		return Config{}, errors.New("NOMINATIM_RPS must be > 0")
	}
	if cfg.RateRPS <= 0 || cfg.RateBurst <= 0 {
		return Config{}, errors.New("RATE_RPS and RATE_BURST must be > 0")
	}
	if cfg.TracingSampleRatio < 0 || cfg.TracingSampleRatio > 1 {
		return Config{}, errors.New("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	return cfg, nil
}

func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func GetFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func GetBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

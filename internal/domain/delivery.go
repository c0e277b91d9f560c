package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultPrepTimeMinutes is used when a tenant has no average prep time.
const DefaultPrepTimeMinutes = 30

// FallbackPolicy decides what happens when distance pricing cannot be applied.
type FallbackPolicy string

const (
	// PolicyStrict surfaces configuration and geocoding failures to the caller.
	PolicyStrict FallbackPolicy = "strict"
	// PolicyLenient charges the configured flat fee instead.
	PolicyLenient FallbackPolicy = "lenient"
)

// ParseFallbackPolicy maps stored values to a policy, defaulting to strict.
func ParseFallbackPolicy(s string) FallbackPolicy {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyLenient:
		return PolicyLenient
	default:
		return PolicyStrict
	}
}

// Per-tenant delivery settings. Owned by the tenant record and read-only
// to the estimation pipeline.
type DeliveryConfig struct {
	Slug                   string
	OriginPostalCode       string
	PerKilometerRate       *decimal.Decimal
	FlatFee                *decimal.Decimal
	AveragePrepTimeMinutes int
	DeliveryEnabled        bool
	FallbackPolicy         FallbackPolicy
}

// PrepTime returns the configured prep time or the default when unset.
func (c DeliveryConfig) PrepTime() int {
	if c.AveragePrepTimeMinutes <= 0 {
		return DefaultPrepTimeMinutes
	}
	return c.AveragePrepTimeMinutes
}

// DistancePricing validates the distance-pricing fields and returns the
// normalized origin. A non-nil error is always a *ConfigError.
func (c DeliveryConfig) DistancePricing() (PostalCode, decimal.Decimal, error) {
	origin, err := NormalizePostalCode(c.OriginPostalCode)
	if err != nil {
		return "", decimal.Decimal{}, &ConfigError{
			Field:  "origin_postal_code",
			Reason: "CEP do estabelecimento inválido/ausente. Configure no admin.",
		}
	}

	if c.PerKilometerRate == nil || !c.PerKilometerRate.IsPositive() {
		return "", decimal.Decimal{}, &ConfigError{
			Field:  "per_kilometer_rate",
			Reason: "Valor por KM inválido. Configure um valor maior que 0 no admin.",
		}
	}

	return origin, *c.PerKilometerRate, nil
}

// Result of one fee calculation. Never stored.
type DeliveryEstimate struct {
	Fee                decimal.Decimal
	EstimatedMinutes   int
	PostalCode         PostalCode
	DistanceKilometers *float64
	PerKilometerRate   *decimal.Decimal
	UsedFlatFee        bool
}

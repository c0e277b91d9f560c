package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeliveryConfigDistancePricing(t *testing.T) {
	rate := decimal.RequireFromString("2.00")
	zero := decimal.Zero
	negative := decimal.RequireFromString("-1")

	tests := []struct {
		name      string
		cfg       DeliveryConfig
		wantField string
	}{
		{name: "valid", cfg: DeliveryConfig{OriginPostalCode: "01310-100", PerKilometerRate: &rate}},
		{name: "missing rate", cfg: DeliveryConfig{OriginPostalCode: "01310-100"}, wantField: "per_kilometer_rate"},
		{name: "zero rate", cfg: DeliveryConfig{OriginPostalCode: "01310-100", PerKilometerRate: &zero}, wantField: "per_kilometer_rate"},
		{name: "negative rate", cfg: DeliveryConfig{OriginPostalCode: "01310-100", PerKilometerRate: &negative}, wantField: "per_kilometer_rate"},
		{name: "missing origin", cfg: DeliveryConfig{PerKilometerRate: &rate}, wantField: "origin_postal_code"},
		{name: "short origin", cfg: DeliveryConfig{OriginPostalCode: "0131", PerKilometerRate: &rate}, wantField: "origin_postal_code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, gotRate, err := tt.cfg.DistancePricing()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if origin != "01310100" {
					t.Fatalf("origin = %q, want 01310100", origin)
				}
				if !gotRate.Equal(rate) {
					t.Fatalf("rate = %s, want %s", gotRate, rate)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Fatalf("field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestDeliveryConfigPrepTimeDefaults(t *testing.T) {
	if got := (DeliveryConfig{}).PrepTime(); got != DefaultPrepTimeMinutes {
		t.Fatalf("PrepTime() = %d, want %d", got, DefaultPrepTimeMinutes)
	}
	if got := (DeliveryConfig{AveragePrepTimeMinutes: 40}).PrepTime(); got != 40 {
		t.Fatalf("PrepTime() = %d, want 40", got)
	}
}

func TestParseFallbackPolicy(t *testing.T) {
	if got := ParseFallbackPolicy(" Lenient "); got != PolicyLenient {
		t.Fatalf("ParseFallbackPolicy(lenient) = %q", got)
	}
	for _, s := range []string{"", "strict", "whatever"} {
		if got := ParseFallbackPolicy(s); got != PolicyStrict {
			t.Fatalf("ParseFallbackPolicy(%q) = %q, want strict", s, got)
		}
	}
}

func TestCoordinatesUnavailableErrorUnwraps(t *testing.T) {
	err := error(&CoordinatesUnavailableError{Side: SideOrigin, PostalCode: "01310100"})
	if !errors.Is(err, ErrCoordinatesUnavailable) {
		t.Fatalf("errors.Is(%v, ErrCoordinatesUnavailable) = false", err)
	}
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrDeliveryDisabled       = errors.New("delivery disabled for tenant")
	ErrCoordinatesNotFound    = errors.New("coordinates not found")
	ErrCoordinatesUnavailable = errors.New("coordinates unavailable")
)

// ConfigError reports tenant delivery settings that need admin remediation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("delivery config: %s: %s", e.Field, e.Reason)
}

// Which endpoint of a delivery could not be geocoded.
type Side string

const (
	SideOrigin      Side = "origin"
	SideDestination Side = "destination"
)

// CoordinatesUnavailableError is returned when distance pricing is configured
// but one endpoint could not be geocoded.
type CoordinatesUnavailableError struct {
	Side       Side
	PostalCode PostalCode
}

func (e *CoordinatesUnavailableError) Error() string {
	return fmt.Sprintf("coordinates unavailable for %s postal code %s", e.Side, e.PostalCode)
}

func (e *CoordinatesUnavailableError) Unwrap() error { return ErrCoordinatesUnavailable }

// IsClientError reports whether err is an expected outcome caused by the
// request or the tenant's settings rather than a service failure.
func IsClientError(err error) bool {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidPostalCode),
		errors.Is(err, ErrTenantNotFound),
		errors.Is(err, ErrDeliveryDisabled),
		errors.Is(err, ErrCoordinatesNotFound),
		errors.Is(err, ErrCoordinatesUnavailable),
		errors.As(err, &cfgErr):
		return true
	default:
		return false
	}
}

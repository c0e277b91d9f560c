package ports

import (
	"context"
	"delivery-fee-service/internal/domain"
)

// Contract for turning a postal code into coordinates.
// Implementations return an error wrapping domain.ErrCoordinatesNotFound
// when no provider could resolve the code. The one exception is a cancelled
// or expired ctx, reported as an error wrapping ctx.Err().
type Geocoder interface {
	Resolve(ctx context.Context, postalCode domain.PostalCode) (domain.Coordinates, error)
}

// Structured postal-code database that may carry coordinates directly.
type PostalCodeDatabase interface {
	LookupCoordinates(ctx context.Context, postalCode domain.PostalCode) (domain.Coordinates, error)
}

// Free-text geocoder scoped to a country.
type TextGeocoder interface {
	Search(ctx context.Context, query string) (domain.Coordinates, error)
}

// Postal code to street address resolution.
type AddressLookup interface {
	LookupAddress(ctx context.Context, postalCode domain.PostalCode) (domain.Address, error)
}

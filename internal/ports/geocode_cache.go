package ports

import (
	"context"
	"delivery-fee-service/internal/domain"
)

// Persistent postal code -> coordinates cache.
// Keys are normalized postal codes.
type GeocodeCache interface {
	GetMany(ctx context.Context, postalCodes []domain.PostalCode) (map[domain.PostalCode]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[domain.PostalCode]domain.Coordinates) error
}

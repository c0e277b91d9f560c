package ports

import (
	"context"
	"delivery-fee-service/internal/domain"
)

// Port: read accessor for per-tenant delivery settings.
type TenantConfigRepository interface {
	// Return the delivery config of the active tenant with the given slug,
	// or domain.ErrTenantNotFound.
	GetDeliveryConfig(ctx context.Context, slug string) (domain.DeliveryConfig, error)
}

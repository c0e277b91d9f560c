package repositories

import (
	"context"
	"database/sql"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Postgres-backed implementation of the TenantConfigRepository port.
type PostgresTenantRepository struct{ DB *sql.DB }

func NewPostgresTenantRepository(db *sql.DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{DB: db}
}

// Return the delivery settings of the active business with the given slug.
func (p *PostgresTenantRepository) GetDeliveryConfig(ctx context.Context, slug string) (_ domain.DeliveryConfig, err error) {
	defer obs.TimeExpected(ctx, "tenant.GetDeliveryConfig", domain.IsClientError)(&err)

	if p.DB == nil {
		return domain.DeliveryConfig{}, errors.New("postgres tenant repository: DB is nil")
	}

	query := `
	SELECT
		slug,
		business_cep,
		delivery_fee_per_km,
		delivery_fee,
		avg_prep_time,
		delivery_enabled,
		delivery_fallback_policy
	FROM businesses
	WHERE slug = $1 AND active;
	`

	var (
		cfg      domain.DeliveryConfig
		cep      sql.NullString
		perKm    decimal.NullDecimal
		flatFee  decimal.NullDecimal
		prepTime sql.NullInt32
		policy   string
	)
	err = p.DB.QueryRowContext(ctx, query, slug).Scan(
		&cfg.Slug,
		&cep,
		&perKm,
		&flatFee,
		&prepTime,
		&cfg.DeliveryEnabled,
		&policy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeliveryConfig{}, fmt.Errorf("get delivery config %q: %w", slug, domain.ErrTenantNotFound)
	}
	if err != nil {
		return domain.DeliveryConfig{}, fmt.Errorf("get delivery config %q: query businesses table: %w", slug, err)
	}

	cfg.OriginPostalCode = cep.String
	cfg.AveragePrepTimeMinutes = int(prepTime.Int32)
	cfg.FallbackPolicy = domain.ParseFallbackPolicy(policy)
	if perKm.Valid {
		cfg.PerKilometerRate = &perKm.Decimal
	}
	if flatFee.Valid {
		cfg.FlatFee = &flatFee.Decimal
	}

	return cfg, nil
}

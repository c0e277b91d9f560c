package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type TenantSeed struct {
	Slug             string              `json:"slug"`
	Name             string              `json:"name"`
	Active           *bool               `json:"active"`
	DeliveryEnabled  bool                `json:"delivery_enabled"`
	BusinessCEP      string              `json:"business_cep"`
	DeliveryFeePerKm decimal.NullDecimal `json:"delivery_fee_per_km"`
	DeliveryFee      decimal.NullDecimal `json:"delivery_fee"`
	AvgPrepTime      *int                `json:"avg_prep_time"`
	FallbackPolicy   string              `json:"delivery_fallback_policy"`
}

// Read and validate tenant seeds from a JSON file.
func LoadTenantSeeds(jsonPath string) ([]TenantSeed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed tenants: read %q: %w", jsonPath, err)
	}

	var data []TenantSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed tenants: parse json: %w", err)
	}

	rows := make([]TenantSeed, 0, len(data))
	for i, item := range data {
		item.Slug = strings.ToLower(strings.TrimSpace(item.Slug))
		if item.Slug == "" {
			return nil, fmt.Errorf("seed tenants: item at index %d: slug cannot be empty", i+1)
		}

		switch p := strings.ToLower(strings.TrimSpace(item.FallbackPolicy)); p {
		case "":
			item.FallbackPolicy = "strict"
		case "strict", "lenient":
			item.FallbackPolicy = p
		default:
			return nil, fmt.Errorf("seed tenants: slug=%q: unknown fallback policy %q", item.Slug, item.FallbackPolicy)
		}

		if item.DeliveryFeePerKm.Valid && item.DeliveryFeePerKm.Decimal.IsNegative() {
			return nil, fmt.Errorf("seed tenants: slug=%q: delivery_fee_per_km cannot be negative", item.Slug)
		}
		rows = append(rows, item)
	}

	return rows, nil
}

// Populate the businesses table with tenant data from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	rows, err := LoadTenantSeeds(jsonPath)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed tenants: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
	INSERT INTO businesses (
		slug,
		name,
		active,
		delivery_enabled,
		business_cep,
		delivery_fee_per_km,
		delivery_fee,
		avg_prep_time,
		delivery_fallback_policy,
		updated_at
	)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, now())
	ON CONFLICT (slug) DO UPDATE
	SET name = EXCLUDED.name,
		active = EXCLUDED.active,
		delivery_enabled = EXCLUDED.delivery_enabled,
		business_cep = EXCLUDED.business_cep,
		delivery_fee_per_km = EXCLUDED.delivery_fee_per_km,
		delivery_fee = EXCLUDED.delivery_fee,
		avg_prep_time = EXCLUDED.avg_prep_time,
		delivery_fallback_policy = EXCLUDED.delivery_fallback_policy,
		updated_at = EXCLUDED.updated_at;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed tenants: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range rows {
		active := true
		if t.Active != nil {
			active = *t.Active
		}

		var prep sql.NullInt32
		if t.AvgPrepTime != nil {
			prep = sql.NullInt32{Int32: int32(*t.AvgPrepTime), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			t.Slug,
			t.Name,
			active,
			t.DeliveryEnabled,
			strings.TrimSpace(t.BusinessCEP),
			t.DeliveryFeePerKm,
			t.DeliveryFee,
			prep,
			t.FallbackPolicy,
		); err != nil {
			return 0, fmt.Errorf("seed tenants: insert slug=%q: %w", t.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed tenants: commit tx: %w", err)
	}

	return len(rows), nil
}

package cache

import (
	"context"
	"database/sql"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// SQLGeocodeCache is a Postgres-backed cache mapping postal codes to
// coordinates. Rows older than TTL are ignored on read; zero keeps them forever.
type SQLGeocodeCache struct {
	DB  *sql.DB
	TTL time.Duration
}

func NewSQLGeocodeCache(db *sql.DB, ttl time.Duration) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db, TTL: ttl}
}

// Fetch cached coordinates for the given postal codes.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	postalCodes []domain.PostalCode,
) (_ map[domain.PostalCode]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	keys := lo.Uniq(lo.FilterMap(postalCodes, func(pc domain.PostalCode, _ int) (string, bool) {
		return pc.String(), pc != ""
	}))
	if len(keys) == 0 {
		return map[domain.PostalCode]domain.Coordinates{}, nil
	}

	var cutoff time.Time
	if s.TTL > 0 {
		cutoff = time.Now().Add(-s.TTL)
	}

	q := `
	SELECT postal_code, lat, lon
	FROM geocode_cache
	WHERE postal_code = ANY($1::text[])
	  AND updated_at >= $2;
	`

	rows, err := s.DB.QueryContext(ctx, q, keys, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.PostalCode]domain.Coordinates, len(keys))
	for rows.Next() {
		var pc string
		var lat, lon float64
		if err := rows.Scan(&pc, &lat, &lon); err != nil {
			return nil, fmt.Errorf("get geocode cache: scan rows: %w", err)
		}
		out[domain.PostalCode(pc)] = domain.Coordinates{Lat: lat, Lon: lon}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geocode cache: row iteration: %w", err)
	}

	return out, nil
}

// Store postal code -> coordinate mappings in the cache.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[domain.PostalCode]domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO geocode_cache (postal_code, lat, lon, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (postal_code) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		updated_at = EXCLUDED.updated_at;
	`)
	if err != nil {
		return fmt.Errorf("insert geocode cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for pc, c := range results {
		if pc == "" {
			return fmt.Errorf("insert geocode cache: empty postal code key")
		}
		if !c.Valid() {
			return fmt.Errorf("insert geocode cache %s: invalid coordinates %+v", pc, c)
		}

		if _, err := stmt.ExecContext(ctx, pc.String(), c.Lat, c.Lon); err != nil {
			return fmt.Errorf("insert geocode cache postal_code=%q: %w", pc, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert geocode cache commit: %w", err)
	}

	return nil
}

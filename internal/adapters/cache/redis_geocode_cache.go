package cache

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const redisKeyPrefix = "geocode:"

type redisEntry struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RedisGeocodeCache stores postal code coordinates as JSON values with a TTL.
type RedisGeocodeCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisGeocodeCache(client *redis.Client, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{Client: client, TTL: ttl}
}

func redisKey(pc domain.PostalCode) string { return redisKeyPrefix + pc.String() }

func (r *RedisGeocodeCache) GetMany(
	ctx context.Context,
	postalCodes []domain.PostalCode,
) (_ map[domain.PostalCode]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.redis.GetMany")(&err)

	if r.Client == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	uniq := lo.Uniq(lo.Compact(postalCodes))
	if len(uniq) == 0 {
		return map[domain.PostalCode]domain.Coordinates{}, nil
	}

	vals, err := r.Client.MGet(ctx, lo.Map(uniq, func(pc domain.PostalCode, _ int) string { return redisKey(pc) })...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: redis mget: %w", err)
	}

	out := make(map[domain.PostalCode]domain.Coordinates, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}

		var e redisEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("get geocode cache: decode %s: %w", uniq[i], err)
		}
		out[uniq[i]] = domain.Coordinates{Lat: e.Lat, Lon: e.Lon}
	}

	return out, nil
}

func (r *RedisGeocodeCache) PutMany(ctx context.Context, results map[domain.PostalCode]domain.Coordinates) error {
	if r.Client == nil {
		return errors.New("geocode cache: redis client is nil")
	}

	if len(results) == 0 {
		return nil
	}

	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for pc, c := range results {
			if pc == "" {
				return fmt.Errorf("insert geocode cache: empty postal code key")
			}

			b, err := json.Marshal(redisEntry{Lat: c.Lat, Lon: c.Lon})
			if err != nil {
				return fmt.Errorf("insert geocode cache %s: encode: %w", pc, err)
			}
			pipe.Set(ctx, redisKey(pc), b, r.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert geocode cache: redis pipeline: %w", err)
	}

	return nil
}

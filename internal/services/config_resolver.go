package services

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/ports"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultConfigTTL bounds how long a tenant config is reused in-process.
const DefaultConfigTTL = 30 * time.Second

type cachedConfig struct {
	cfg     domain.DeliveryConfig
	expires time.Time
}

// ConfigurationResolver reads per-tenant delivery settings and memoizes
// them briefly. Settings changed by an admin show up after at most TTL.
type ConfigurationResolver struct {
	repo ports.TenantConfigRepository
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cachedConfig
}

// NewConfigurationResolver builds a resolver. ttl <= 0 disables memoization.
func NewConfigurationResolver(repo ports.TenantConfigRepository, ttl time.Duration) *ConfigurationResolver {
	return &ConfigurationResolver{
		repo:    repo,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedConfig),
	}
}

// NormalizeSlug trims and lower-cases a tenant slug.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// Resolve returns the delivery config of an active tenant with delivery
// enabled, or domain.ErrTenantNotFound / domain.ErrDeliveryDisabled.
func (r *ConfigurationResolver) Resolve(ctx context.Context, slug string) (domain.DeliveryConfig, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return domain.DeliveryConfig{}, fmt.Errorf("resolve config: empty slug: %w", domain.ErrTenantNotFound)
	}

	cfg, ok := r.lookup(slug)
	if !ok {
		var err error
		cfg, err = r.repo.GetDeliveryConfig(ctx, slug)
		if err != nil {
			return domain.DeliveryConfig{}, err
		}
		r.store(slug, cfg)
	}

	if !cfg.DeliveryEnabled {
		return domain.DeliveryConfig{}, fmt.Errorf("resolve config %q: %w", slug, domain.ErrDeliveryDisabled)
	}

	return cfg, nil
}

// Invalidate drops the memoized config of slug.
func (r *ConfigurationResolver) Invalidate(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, NormalizeSlug(slug))
}

func (r *ConfigurationResolver) lookup(slug string) (domain.DeliveryConfig, bool) {
	if r.ttl <= 0 {
		return domain.DeliveryConfig{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[slug]
	if !ok {
		return domain.DeliveryConfig{}, false
	}
	if !r.now().Before(e.expires) {
		delete(r.entries, slug)
		return domain.DeliveryConfig{}, false
	}
	return e.cfg, true
}

func (r *ConfigurationResolver) store(slug string, cfg domain.DeliveryConfig) {
	if r.ttl <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[slug] = cachedConfig{cfg: cfg, expires: r.now().Add(r.ttl)}
}

package obs

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors of the fee service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	ProviderCalls     *prometheus.CounterVec
	ProviderDurations *prometheus.HistogramVec
	ChainResolutions  *prometheus.CounterVec
	CacheLookups      *prometheus.CounterVec
	Estimates         *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDurations     *prometheus.HistogramVec
}

// NewMetrics registers the collectors against reg, defaulting to the global
// registry when nil. Re-registering returns the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	providerCalls, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_provider_calls_total",
		Help: "Outbound geocoding attempts, labeled by provider and outcome.",
	}, []string{"provider", "outcome"}), "geocode_provider_calls_total")
	if err != nil {
		return nil, err
	}

	providerDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geocode_provider_duration_seconds",
		Help:    "Outbound geocoding attempt latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
	}, []string{"provider"}), "geocode_provider_duration_seconds")
	if err != nil {
		return nil, err
	}

	chain, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_chain_resolutions_total",
		Help: "Postal code resolutions, labeled by the chain step that succeeded (or none).",
	}, []string{"step"}), "geocode_chain_resolutions_total")
	if err != nil {
		return nil, err
	}

	cache, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_cache_lookups_total",
		Help: "Geocode cache lookups, labeled by result (hit, miss, error).",
	}, []string{"result"}), "geocode_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	estimates, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_estimates_total",
		Help: "Delivery fee estimates, labeled by outcome.",
	}, []string{"outcome"}), "delivery_estimates_total")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:          gatherer,
		ProviderCalls:     providerCalls,
		ProviderDurations: providerDurations,
		ChainResolutions:  chain,
		CacheLookups:      cache,
		Estimates:         estimates,
		HTTPRequests:      requests,
		HTTPDurations:     durations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (m *Metrics) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		gatherer = m.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveProviderCall(provider, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
	m.ProviderDurations.WithLabelValues(provider).Observe(dur.Seconds())
}

func (m *Metrics) ObserveChainResolution(step string) {
	if m == nil {
		return
	}
	m.ChainResolutions.WithLabelValues(step).Inc()
}

func (m *Metrics) ObserveCacheLookup(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheLookups.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) ObserveEstimate(outcome string) {
	if m == nil {
		return
	}
	m.Estimates.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDurations.WithLabelValues(route).Observe(dur.Seconds())
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

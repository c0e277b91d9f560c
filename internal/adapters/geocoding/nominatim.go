package geocoding

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type nominatimResult struct {
	Lat         flexFloat `json:"lat"`
	Lon         flexFloat `json:"lon"`
	DisplayName string    `json:"display_name"`
}

// Nominatim is the OpenStreetMap free-text geocoder, restricted to Brazil.
//
// Every attempt waits on a shared token bucket first (the public instance
// allows about one request per second) and failed attempts are retried per
// the RetryPolicy. Safe for concurrent use.
type Nominatim struct {
	http    *httpClient
	baseURL string
	limiter *rate.Limiter
	retry   RetryPolicy
}

type NominatimOption func(*Nominatim)

// WithRateLimit replaces the default 1 req/s politeness limiter.
func WithRateLimit(rps float64, burst int) NominatimOption {
	return func(n *Nominatim) {
		if rps <= 0 {
			n.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		n.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithRetryPolicy(p RetryPolicy) NominatimOption {
	return func(n *Nominatim) { n.retry = p }
}

func WithUserAgent(ua string) NominatimOption {
	return func(n *Nominatim) { n.http.userAgent = ua }
}

func NewNominatim(
	baseURL string,
	session *http.Client,
	timeout time.Duration,
	metrics *obs.Metrics,
	opts ...NominatimOption,
) *Nominatim {
	n := &Nominatim{
		http:    newHTTPClient("nominatim", session, timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retry:   DefaultRetryPolicy(),
	}
	n.http.userAgent = "delivery-fee-service/1.0 (delivery calculator)"

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Search geocodes a free-text query and returns the first match.
func (n *Nominatim) Search(ctx context.Context, query string) (domain.Coordinates, error) {
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return domain.Coordinates{}, errors.New("nominatim: query must be non-empty")
	}

	endpoint := n.searchURL(query)

	var out domain.Coordinates
	err := n.retry.do(ctx, func(ctx context.Context) error {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("nominatim: wait for rate limiter: %w", err)
		}

		var decoded []nominatimResult
		if err := n.http.getJSON(ctx, endpoint, &decoded); err != nil {
			return err
		}

		if len(decoded) == 0 {
			return fmt.Errorf("nominatim %q: %w", query, ErrNoResult)
		}

		c, err := coordinatesFrom(decoded[0].Lat, decoded[0].Lon)
		if err != nil {
			return fmt.Errorf("nominatim %q: %w", query, err)
		}

		out = c
		return nil
	})
	if err != nil {
		return domain.Coordinates{}, err
	}

	return out, nil
}

func (n *Nominatim) searchURL(query string) string {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("countrycodes", "br")
	q.Set("q", query)
	return n.baseURL + "/search?" + q.Encode()
}

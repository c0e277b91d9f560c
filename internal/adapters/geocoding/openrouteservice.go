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
)

type orsGeocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// OpenRouteService geocodes free text through /geocode/search, restricted
// to Brazil. Requires an API key.
type OpenRouteService struct {
	http    *httpClient
	baseURL string
	retry   RetryPolicy
}

func NewOpenRouteService(
	apiKey string,
	baseURL string,
	session *http.Client,
	timeout time.Duration,
	metrics *obs.Metrics,
) (*OpenRouteService, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openrouteservice.org"
	}

	o := &OpenRouteService{
		http:    newHTTPClient("openrouteservice", session, timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
		retry:   DefaultRetryPolicy(),
	}
	o.http.authorization = apiKey

	return o, nil
}

func (o *OpenRouteService) Search(ctx context.Context, query string) (domain.Coordinates, error) {
	norm := strings.Join(strings.Fields(query), " ")
	if norm == "" {
		return domain.Coordinates{}, errors.New("openrouteservice: query must be non-empty")
	}

	q := url.Values{}
	q.Set("text", norm)
	q.Set("boundary.country", "BR")
	q.Set("size", "1")
	endpoint := o.baseURL + "/geocode/search?" + q.Encode()

	var out domain.Coordinates
	err := o.retry.do(ctx, func(ctx context.Context) error {
		var decoded orsGeocodeResponse
		if err := o.http.getJSON(ctx, endpoint, &decoded); err != nil {
			return err
		}

		if len(decoded.Features) == 0 {
			return fmt.Errorf("openrouteservice %q: %w", norm, ErrNoResult)
		}

		// GeoJSON order is lon, lat.
		coords := decoded.Features[0].Geometry.Coordinates
		if len(coords) != 2 {
			return fmt.Errorf("openrouteservice %q: %w: %d components", norm, errInvalidCoordinates, len(coords))
		}

		c := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
		if !c.Valid() {
			return fmt.Errorf("openrouteservice %q: %w", norm, errInvalidCoordinates)
		}

		out = c
		return nil
	})
	if err != nil {
		return domain.Coordinates{}, err
	}

	return out, nil
}

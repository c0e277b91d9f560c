package geocoding

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/obs"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type brasilAPIResponse struct {
	CEP      string `json:"cep"`
	Location struct {
		Coordinates struct {
			Latitude  flexFloat `json:"latitude"`
			Longitude flexFloat `json:"longitude"`
		} `json:"coordinates"`
	} `json:"location"`
}

// BrasilAPI queries the BrasilAPI CEP v2 database, which carries
// coordinates for part of the postal codes. Single attempt, no retry.
type BrasilAPI struct {
	http    *httpClient
	baseURL string
}

func NewBrasilAPI(baseURL string, session *http.Client, timeout time.Duration, metrics *obs.Metrics) *BrasilAPI {
	return &BrasilAPI{
		http:    newHTTPClient("brasilapi", session, timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *BrasilAPI) LookupCoordinates(ctx context.Context, postalCode domain.PostalCode) (domain.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/api/cep/v2/%s", b.baseURL, postalCode)

	var decoded brasilAPIResponse
	if err := b.http.getJSON(ctx, endpoint, &decoded); err != nil {
		return domain.Coordinates{}, err
	}

	coords := decoded.Location.Coordinates
	c, err := coordinatesFrom(coords.Latitude, coords.Longitude)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("brasilapi %s: %w", postalCode, err)
	}

	return c, nil
}

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

type viaCEPResponse struct {
	Erro       flexBool `json:"erro"`
	Logradouro string   `json:"logradouro"`
	Bairro     string   `json:"bairro"`
	Localidade string   `json:"localidade"`
	UF         string   `json:"uf"`
}

// ViaCEP resolves a postal code to its street address.
type ViaCEP struct {
	http    *httpClient
	baseURL string
}

func NewViaCEP(baseURL string, session *http.Client, timeout time.Duration, metrics *obs.Metrics) *ViaCEP {
	return &ViaCEP{
		http:    newHTTPClient("viacep", session, timeout, metrics),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (v *ViaCEP) LookupAddress(ctx context.Context, postalCode domain.PostalCode) (domain.Address, error) {
	endpoint := fmt.Sprintf("%s/ws/%s/json/", v.baseURL, postalCode)

	var decoded viaCEPResponse
	if err := v.http.getJSON(ctx, endpoint, &decoded); err != nil {
		return domain.Address{}, err
	}

	if decoded.Erro {
		return domain.Address{}, fmt.Errorf("viacep %s: %w", postalCode, ErrNoResult)
	}

	addr := domain.Address{
		Street:       decoded.Logradouro,
		Neighborhood: decoded.Bairro,
		City:         decoded.Localidade,
		State:        decoded.UF,
	}
	if addr.Query() == "" {
		return domain.Address{}, fmt.Errorf("viacep %s: empty address: %w", postalCode, ErrNoResult)
	}

	return addr, nil
}

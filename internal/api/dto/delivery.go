package dto

import (
	"delivery-fee-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Money is a decimal amount encoded as a bare JSON number with at least two
// decimal places.
type Money decimal.Decimal

func (m Money) MarshalJSON() ([]byte, error) {
	d := decimal.Decimal(m)
	if d.Exponent() < -2 {
		return []byte(d.String()), nil
	}
	return []byte(d.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = Money(d)
	return nil
}

func (m Money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

type DeliveryResponse struct {
	Fee              Money    `json:"fee"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
	CEP              string   `json:"cep"`
	DistanceKm       *float64 `json:"distanceKm,omitempty"`
	PerKm            *Money   `json:"perKm,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewDeliveryResponse(est domain.DeliveryEstimate) DeliveryResponse {
	res := DeliveryResponse{
		Fee:              Money(est.Fee),
		EstimatedMinutes: est.EstimatedMinutes,
		CEP:              est.PostalCode.Formatted(),
		DistanceKm:       est.DistanceKilometers,
	}
	if est.PerKilometerRate != nil {
		perKm := Money(*est.PerKilometerRate)
		res.PerKm = &perKm
	}
	return res
}

package geocoding

import (
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/ports"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

// Fallback tries each free-text geocoder in order and returns the first hit.
type Fallback []ports.TextGeocoder

// NewFallback drops nil geocoders. A single geocoder is returned as is.
func NewFallback(geocoders ...ports.TextGeocoder) ports.TextGeocoder {
	kept := lo.Filter(geocoders, func(g ports.TextGeocoder, _ int) bool { return g != nil })
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return Fallback(kept)
	}
}

func (f Fallback) Search(ctx context.Context, query string) (domain.Coordinates, error) {
	var errs *multierror.Error
	for _, g := range f {
		c, err := g.Search(ctx, query)
		if err == nil {
			return c, nil
		}
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return domain.Coordinates{}, errs.ErrorOrNil()
}

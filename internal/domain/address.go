package domain

import (
	"strings"

	"github.com/samber/lo"
)

// Country qualifier appended to every free-text geocoding query.
const Country = "Brasil"

// Structured street address returned by a postal-code lookup service.
type Address struct {
	Street       string
	Neighborhood string
	City         string
	State        string
}

// Query joins the non-empty address parts and the country.
func (a Address) Query() string {
	return joinQuery(a.Street, a.Neighborhood, a.City, a.State)
}

// CoarseQuery keeps only city and state.
func (a Address) CoarseQuery() string {
	if strings.TrimSpace(a.City) == "" && strings.TrimSpace(a.State) == "" {
		return ""
	}
	return joinQuery(a.City, a.State)
}

// PostalCodeQuery is the free-text query used to geocode a bare postal code.
func PostalCodeQuery(p PostalCode) string {
	return joinQuery(p.String())
}

func joinQuery(parts ...string) string {
	trimmed := lo.Map(parts, func(s string, _ int) string { return strings.TrimSpace(s) })
	kept := lo.Compact(trimmed)
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(append(kept, Country), ", ")
}

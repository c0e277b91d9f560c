package geocoding

import (
	"bytes"
	"delivery-fee-service/internal/domain"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errInvalidCoordinates = errors.New("provider returned invalid coordinates")

// flexFloat accepts a JSON number, a quoted number, null or an empty string.
// Providers disagree on how they encode coordinates.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = flexFloat{}
		return nil
	}

	s := strings.Trim(string(b), `"`)
	if strings.TrimSpace(s) == "" {
		*f = flexFloat{}
		return nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("parse coordinate %q: %w", s, err)
	}

	*f = flexFloat{Value: v, Set: true}
	return nil
}

func coordinatesFrom(lat, lon flexFloat) (domain.Coordinates, error) {
	if !lat.Set || !lon.Set {
		return domain.Coordinates{}, ErrNoResult
	}

	c := domain.Coordinates{Lat: lat.Value, Lon: lon.Value}
	if !c.Valid() {
		return domain.Coordinates{}, fmt.Errorf("%w: lat=%v lon=%v", errInvalidCoordinates, lat.Value, lon.Value)
	}
	return c, nil
}

// flexBool accepts true/false as JSON booleans or strings.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseBool(s)
	if err != nil {
		*f = false
		return nil
	}
	*f = flexBool(v)
	return nil
}

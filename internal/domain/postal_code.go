package domain

import (
	"errors"
	"strings"
)

// PostalCodeLength is the digit count of a Brazilian CEP.
const PostalCodeLength = 8

var ErrInvalidPostalCode = errors.New("invalid postal code: expected 8 digits")

// PostalCode is a normalized CEP: exactly 8 ASCII digits.
// The zero value is not a valid postal code.
type PostalCode string

// NormalizePostalCode strips every non-digit character and accepts the
// result only when exactly 8 digits remain.
func NormalizePostalCode(raw string) (PostalCode, error) {
	var b strings.Builder
	b.Grow(PostalCodeLength)
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) != PostalCodeLength {
		return "", ErrInvalidPostalCode
	}

	return PostalCode(digits), nil
}

func (p PostalCode) String() string { return string(p) }

// Formatted returns the display form "nnnnn-nnn".
func (p PostalCode) Formatted() string {
	s := string(p)
	if len(s) != PostalCodeLength {
		return s
	}
	return s[:5] + "-" + s[5:]
}

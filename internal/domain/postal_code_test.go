package domain

import (
	"errors"
	"testing"
)

func TestNormalizePostalCode(t *testing.T) {
	tests := []struct {
		raw  string
		want PostalCode
	}{
		{raw: "01310-100", want: "01310100"},
		{raw: "01310100", want: "01310100"},
		{raw: " 20.040-020 ", want: "20040020"},
		{raw: "CEP: 20040 020", want: "20040020"},
	}

	for _, tt := range tests {
		got, err := NormalizePostalCode(tt.raw)
		if err != nil {
			t.Fatalf("NormalizePostalCode(%q) unexpected error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("NormalizePostalCode(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePostalCodeRejectsWrongLength(t *testing.T) {
	inputs := []string{
		"",
		"abc",
		"1",
		"0131010",
		"013101001",
		"01310-1000",
		"123456789012",
	}

	for _, raw := range inputs {
		if _, err := NormalizePostalCode(raw); !errors.Is(err, ErrInvalidPostalCode) {
			t.Fatalf("NormalizePostalCode(%q) err = %v, want ErrInvalidPostalCode", raw, err)
		}
	}
}

func TestNormalizePostalCodeIsIdempotent(t *testing.T) {
	for _, raw := range []string{"01310-100", "20040020", "99999-999"} {
		once, err := NormalizePostalCode(raw)
		if err != nil {
			t.Fatalf("first normalize %q: %v", raw, err)
		}

		twice, err := NormalizePostalCode(once.String())
		if err != nil {
			t.Fatalf("second normalize %q: %v", once, err)
		}
		if once != twice {
			t.Fatalf("normalize not idempotent: %q then %q", once, twice)
		}
	}
}

func TestPostalCodeFormatted(t *testing.T) {
	p := PostalCode("20040020")
	if got := p.Formatted(); got != "20040-020" {
		t.Fatalf("Formatted() = %q, want %q", got, "20040-020")
	}
}

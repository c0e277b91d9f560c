package domain

import "testing"

func TestAddressQuery(t *testing.T) {
	a := Address{Street: "Praça Mauá", Neighborhood: "", City: "Rio de Janeiro", State: "RJ"}

	if got, want := a.Query(), "Praça Mauá, Rio de Janeiro, RJ, Brasil"; got != want {
		t.Fatalf("Query() = %q, want %q", got, want)
	}
	if got, want := a.CoarseQuery(), "Rio de Janeiro, RJ, Brasil"; got != want {
		t.Fatalf("CoarseQuery() = %q, want %q", got, want)
	}
}

func TestAddressQueryEmpty(t *testing.T) {
	var a Address
	if got := a.Query(); got != "" {
		t.Fatalf("Query() = %q, want empty", got)
	}
	if got := a.CoarseQuery(); got != "" {
		t.Fatalf("CoarseQuery() = %q, want empty", got)
	}
}

func TestPostalCodeQuery(t *testing.T) {
	if got, want := PostalCodeQuery("20040020"), "20040020, Brasil"; got != want {
		t.Fatalf("PostalCodeQuery() = %q, want %q", got, want)
	}
}

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCalculate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/menu/pizzaria/calculate-delivery" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("cep") != "01310-100" {
			t.Errorf("cep = %q", r.URL.Query().Get("cep"))
		}
		w.Write([]byte(`{"fee":25.00,"estimatedMinutes":40,"cep":"01310-100","distanceKm":10,"perKm":2.50}`))
	}))
	defer srv.Close()

	c := NewCalculator(srv.URL, nil)
	got, err := c.Calculate(context.Background(), "pizzaria", "01310-100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Fee.Decimal().Equal(decimal.RequireFromString("25")) {
		t.Fatalf("fee = %s", got.Fee.Decimal())
	}
	if got.DistanceKm == nil || *got.DistanceKm != 10 {
		t.Fatalf("distance = %v", got.DistanceKm)
	}
	if got.PerKm == nil || !got.PerKm.Decimal().Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("per km = %v", got.PerKm)
	}
}

func TestCalculateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"Não foi possível obter coordenadas do CEP informado."}`))
	}))
	defer srv.Close()

	_, err := NewCalculator(srv.URL, nil).Calculate(context.Background(), "pizzaria", "99999999")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnprocessableEntity {
		t.Fatalf("err = %v, want 422 APIError", err)
	}
	if apiErr.Message != "Não foi possível obter coordenadas do CEP informado." {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestNewCalculatorDefaultTimeout(t *testing.T) {
	c := NewCalculator("http://localhost:8080/", nil)
	if c.session.Timeout != DefaultTimeout {
		t.Fatalf("timeout = %v, want %v", c.session.Timeout, DefaultTimeout)
	}
	if c.baseURL != "http://localhost:8080" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}

	custom := &http.Client{Timeout: time.Second}
	if got := NewCalculator("http://x", custom).session; got != custom {
		t.Fatal("custom session must be kept")
	}
}

func TestCalculateLatestDropsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cep := r.URL.Query().Get("cep")
		if cep == "11111111" {
			// The first request answers after the second one.
			<-release
		}
		w.Write([]byte(`{"fee":1,"estimatedMinutes":30,"cep":"` + cep + `"}`))
	}))
	defer srv.Close()

	c := NewCalculator(srv.URL, nil)

	var mu sync.Mutex
	var delivered []string
	deliver := func(res Result) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, res.CEP)
	}

	c.CalculateLatest(context.Background(), "checkout", "pizzaria", "11111111", deliver)
	c.CalculateLatest(context.Background(), "checkout", "pizzaria", "22222222", deliver)

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(delivered)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	c.Wait()

	if len(delivered) != 1 || delivered[0] != "22222222" {
		t.Fatalf("delivered = %v, want only 22222222", delivered)
	}
}

package geocoding

import (
	"bytes"
	"context"
	"delivery-fee-service/internal/domain"
	"delivery-fee-service/internal/platform/logging"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakePostalDB struct {
	coords domain.Coordinates
	err    error
}

func (f fakePostalDB) LookupCoordinates(ctx context.Context, _ domain.PostalCode) (domain.Coordinates, error) {
	return f.coords, f.err
}

// fakeTextGeocoder answers from a fixed query table and records queries.
type fakeTextGeocoder struct {
	mu      sync.Mutex
	answers map[string]domain.Coordinates
	queries []string
}

func (f *fakeTextGeocoder) Search(ctx context.Context, query string) (domain.Coordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if c, ok := f.answers[query]; ok {
		return c, nil
	}
	return domain.Coordinates{}, ErrNoResult
}

type fakeAddressLookup struct {
	addr domain.Address
	err  error
}

func (f fakeAddressLookup) LookupAddress(ctx context.Context, _ domain.PostalCode) (domain.Address, error) {
	return f.addr, f.err
}

var (
	paulista = domain.Coordinates{Lat: -23.5614, Lon: -46.6544}
	spCenter = domain.Coordinates{Lat: -23.5505, Lon: -46.6333}
	failure  = errors.New("upstream down")
	address  = domain.Address{Street: "Avenida Paulista", Neighborhood: "Bela Vista", City: "São Paulo", State: "SP"}
)

func TestChainShortCircuitsOnPostalDatabase(t *testing.T) {
	geo := &fakeTextGeocoder{}
	c := NewChain(fakePostalDB{coords: paulista}, geo, fakeAddressLookup{addr: address}, WithLogger(logging.Discard()))

	got, err := c.Resolve(context.Background(), "01310100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != paulista {
		t.Fatalf("coords = %+v, want %+v", got, paulista)
	}
	if len(geo.queries) != 0 {
		t.Fatalf("text geocoder called: %v", geo.queries)
	}
}

func TestChainFallsThroughInOrder(t *testing.T) {
	tests := []struct {
		name        string
		answers     map[string]domain.Coordinates
		wantStep    string
		want        domain.Coordinates
		wantQueries []string
	}{
		{
			name:        "postal code query",
			answers:     map[string]domain.Coordinates{"01310100, Brasil": paulista},
			wantStep:    StepPostalCodeQuery,
			want:        paulista,
			wantQueries: []string{"01310100, Brasil"},
		},
		{
			name:     "full address",
			answers:  map[string]domain.Coordinates{"Avenida Paulista, Bela Vista, São Paulo, SP, Brasil": paulista},
			wantStep: StepAddressQuery,
			want:     paulista,
			wantQueries: []string{
				"01310100, Brasil",
				"Avenida Paulista, Bela Vista, São Paulo, SP, Brasil",
			},
		},
		{
			name:     "city and state",
			answers:  map[string]domain.Coordinates{"São Paulo, SP, Brasil": spCenter},
			wantStep: StepCoarseQuery,
			want:     spCenter,
			wantQueries: []string{
				"01310100, Brasil",
				"Avenida Paulista, Bela Vista, São Paulo, SP, Brasil",
				"São Paulo, SP, Brasil",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics, err := obs.NewMetrics(prometheus.NewRegistry())
			if err != nil {
				t.Fatalf("metrics: %v", err)
			}

			geo := &fakeTextGeocoder{answers: tt.answers}
			c := NewChain(fakePostalDB{err: failure}, geo, fakeAddressLookup{addr: address},
				WithLogger(logging.Discard()),
				WithMetrics(metrics),
			)

			got, err := c.Resolve(context.Background(), "01310100")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("coords = %+v, want %+v", got, tt.want)
			}
			if !reflect.DeepEqual(geo.queries, tt.wantQueries) {
				t.Fatalf("queries = %q, want %q", geo.queries, tt.wantQueries)
			}
			if v := testutil.ToFloat64(metrics.ChainResolutions.WithLabelValues(tt.wantStep)); v != 1 {
				t.Fatalf("resolutions[%s] = %v, want 1", tt.wantStep, v)
			}
		})
	}
}

func TestChainNotFound(t *testing.T) {
	geo := &fakeTextGeocoder{}
	c := NewChain(fakePostalDB{err: failure}, geo, fakeAddressLookup{err: ErrNoResult}, WithLogger(logging.Discard()))

	_, err := c.Resolve(context.Background(), "99999999")
	if !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("err = %v, want ErrCoordinatesNotFound", err)
	}
	if errors.Is(err, failure) {
		t.Fatalf("provider error leaked: %v", err)
	}
	if len(geo.queries) != 1 {
		t.Fatalf("queries = %v, want only the postal code query", geo.queries)
	}
}

func TestChainSkipsNilProviders(t *testing.T) {
	c := NewChain(nil, nil, nil, WithLogger(logging.Discard()))

	_, err := c.Resolve(context.Background(), "01310100")
	if !errors.Is(err, domain.ErrCoordinatesNotFound) {
		t.Fatalf("err = %v, want ErrCoordinatesNotFound", err)
	}
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[domain.PostalCode]domain.Coordinates
	err     error
}

func (m *memoryCache) GetMany(ctx context.Context, pcs []domain.PostalCode) (map[domain.PostalCode]domain.Coordinates, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[domain.PostalCode]domain.Coordinates)
	for _, pc := range pcs {
		if c, ok := m.entries[pc]; ok {
			out[pc] = c
		}
	}
	return out, nil
}

func (m *memoryCache) PutMany(ctx context.Context, results map[domain.PostalCode]domain.Coordinates) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.entries == nil {
		m.entries = make(map[domain.PostalCode]domain.Coordinates)
	}
	for pc, c := range results {
		m.entries[pc] = c
	}
	return nil
}

type countingGeocoder struct {
	calls  atomic.Int32
	delay  time.Duration
	coords domain.Coordinates
	err    error
}

func (g *countingGeocoder) Resolve(ctx context.Context, _ domain.PostalCode) (domain.Coordinates, error) {
	g.calls.Add(1)
	time.Sleep(g.delay)
	return g.coords, g.err
}

func TestCachedGeocoderStoresSuccesses(t *testing.T) {
	next := &countingGeocoder{coords: paulista}
	cache := &memoryCache{}
	g := NewCachedGeocoder(next, cache, logging.Discard(), nil)

	for i := 0; i < 3; i++ {
		got, err := g.Resolve(context.Background(), "01310100")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != paulista {
			t.Fatalf("coords = %+v", got)
		}
	}
	if next.calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", next.calls.Load())
	}
}

func TestCachedGeocoderDoesNotCacheFailures(t *testing.T) {
	next := &countingGeocoder{err: domain.ErrCoordinatesNotFound}
	cache := &memoryCache{}
	g := NewCachedGeocoder(next, cache, logging.Discard(), nil)

	for i := 0; i < 2; i++ {
		if _, err := g.Resolve(context.Background(), "99999999"); !errors.Is(err, domain.ErrCoordinatesNotFound) {
			t.Fatalf("err = %v", err)
		}
	}
	if next.calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", next.calls.Load())
	}
	if len(cache.entries) != 0 {
		t.Fatalf("cache = %v, want empty", cache.entries)
	}
}

func TestCachedGeocoderTreatsCacheErrorsAsMisses(t *testing.T) {
	next := &countingGeocoder{coords: paulista}
	g := NewCachedGeocoder(next, &memoryCache{err: errors.New("cache down")}, logging.Discard(), nil)

	got, err := g.Resolve(context.Background(), "01310100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != paulista {
		t.Fatalf("coords = %+v", got)
	}
}

func TestCachedGeocoderCoalescesConcurrentLookups(t *testing.T) {
	next := &countingGeocoder{coords: paulista, delay: 50 * time.Millisecond}
	g := NewCachedGeocoder(next, &memoryCache{}, logging.Discard(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Resolve(context.Background(), "01310100"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := next.calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

type errGeocoder struct{ err error }

func (e errGeocoder) Search(ctx context.Context, query string) (domain.Coordinates, error) {
	return domain.Coordinates{}, e.err
}

func TestFallbackTriesGeocodersInOrder(t *testing.T) {
	second := &fakeTextGeocoder{answers: map[string]domain.Coordinates{"x": paulista}}
	f := NewFallback(nil, errGeocoder{err: failure}, second)

	got, err := f.Search(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != paulista {
		t.Fatalf("coords = %+v", got)
	}

	_, err = f.Search(context.Background(), "y")
	if !errors.Is(err, failure) || !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want both failures", err)
	}

	if NewFallback(nil, nil) != nil {
		t.Fatal("expected nil for no geocoders")
	}
}

func TestChainFallsThroughOnProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	hanging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		case <-time.After(3 * time.Second):
		}
	}))
	defer hanging.Close()
	defer close(release)

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"-23.5","lon":"-46.6"}]`))
	}))
	defer nominatim.Close()

	metrics, err := obs.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	c := NewChain(
		NewBrasilAPI(hanging.URL, nil, 100*time.Millisecond, metrics),
		NewNominatim(nominatim.URL, nil, time.Second, metrics, WithRateLimit(0, 0), WithRetryPolicy(fastRetry())),
		nil,
		WithLogger(logging.Discard()),
		WithMetrics(metrics),
	)

	start := time.Now()
	got, err := c.Resolve(context.Background(), "01310100")
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (domain.Coordinates{Lat: -23.5, Lon: -46.6}); got != want {
		t.Fatalf("coords = %+v, want %+v", got, want)
	}
	if elapsed > time.Second {
		t.Fatalf("resolve took %v, want well under the 3s hang", elapsed)
	}
	if v := testutil.ToFloat64(metrics.ChainResolutions.WithLabelValues(StepPostalCodeQuery)); v != 1 {
		t.Fatalf("resolutions[%s] = %v, want 1", StepPostalCodeQuery, v)
	}
	if v := testutil.ToFloat64(metrics.ProviderCalls.WithLabelValues("brasilapi", "timeout")); v != 1 {
		t.Fatalf("brasilapi timeout calls = %v, want 1", v)
	}
}

func TestOutcomeLabels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: "ok"},
		{err: &httpStatusError{Code: http.StatusTooManyRequests}, want: "rate_limited"},
		{err: fmt.Errorf("brasilapi: execute request: %w", context.DeadlineExceeded), want: "timeout"},
		{err: &httpStatusError{Code: http.StatusBadGateway}, want: "error"},
	}

	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Fatalf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestChainExhaustionLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		postalErr error
		wantLevel string
	}{
		{name: "only empty answers", postalErr: ErrNoResult, wantLevel: "level=INFO"},
		{name: "provider failure", postalErr: failure, wantLevel: "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			c := NewChain(fakePostalDB{err: tt.postalErr}, &fakeTextGeocoder{}, nil, WithLogger(logger))
			if _, err := c.Resolve(context.Background(), "99999999"); !errors.Is(err, domain.ErrCoordinatesNotFound) {
				t.Fatalf("err = %v, want ErrCoordinatesNotFound", err)
			}

			line := buf.String()
			if !strings.Contains(line, "geocode providers exhausted") || !strings.Contains(line, tt.wantLevel) {
				t.Fatalf("log = %q, want %s", line, tt.wantLevel)
			}
		})
	}
}

type blockingGeocoder struct{ release chan struct{} }

func (g blockingGeocoder) Resolve(ctx context.Context, _ domain.PostalCode) (domain.Coordinates, error) {
	<-g.release
	return paulista, nil
}

func TestCachedGeocoderWrapsCancellation(t *testing.T) {
	next := blockingGeocoder{release: make(chan struct{})}
	defer close(next.release)

	g := NewCachedGeocoder(next, &memoryCache{}, logging.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Resolve(ctx, "01310100")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !strings.Contains(err.Error(), "01310100") {
		t.Fatalf("err = %v, want the postal code in the message", err)
	}
}

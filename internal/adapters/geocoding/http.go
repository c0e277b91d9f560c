package geocoding

import (
	"context"
	"delivery-fee-service/internal/platform/obs"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultTimeout bounds every outbound attempt.
const DefaultTimeout = 8 * time.Second

// ErrNoResult means the provider answered but had nothing for the query.
// It is definitive and never retried.
var ErrNoResult = errors.New("provider returned no result")

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// httpClient is the transport shared by every provider: one request per
// attempt, each under its own timeout.
type httpClient struct {
	session       *http.Client
	provider      string
	userAgent     string
	authorization string
	timeout       time.Duration
	metrics       *obs.Metrics
}

func newHTTPClient(provider string, session *http.Client, timeout time.Duration, metrics *obs.Metrics) *httpClient {
	if session == nil {
		session = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &httpClient{
		session:  session,
		provider: provider,
		timeout:  timeout,
		metrics:  metrics,
	}
}

func (c *httpClient) newRequest(ctx context.Context, method string, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}

	return req, nil
}

func (c *httpClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}

// getJSON performs a single GET attempt bounded by the client timeout and
// decodes the body into v.
func (c *httpClient) getJSON(ctx context.Context, url string, v any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveProviderCall(c.provider, outcome(err), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%s: execute request: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}

	return nil
}

func isRateLimited(err error) bool {
	var he *httpStatusError
	return errors.As(err, &he) && he.Code == http.StatusTooManyRequests
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isRateLimited(err):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

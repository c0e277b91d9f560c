// Package client calls the delivery fee endpoint.
package client

import (
	"context"
	"delivery-fee-service/internal/api/dto"
	"delivery-fee-service/internal/sequencer"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("delivery api: status %d: %s", e.Status, e.Message)
}

// DefaultTimeout covers a cold-cache estimate, which may walk the whole
// geocoding chain for both postal codes. It matches the server write timeout.
const DefaultTimeout = 2 * time.Minute

// Calculator requests delivery quotes. CalculateLatest runs requests in the
// background and hands the caller only the response to the newest request of
// each slot; older responses are dropped, not cancelled.
type Calculator struct {
	baseURL string
	session *http.Client
	seq     *sequencer.Sequencer
	wg      sync.WaitGroup
}

// NewCalculator builds a client. A nil session gets DefaultTimeout.
func NewCalculator(baseURL string, session *http.Client) *Calculator {
	if session == nil {
		session = &http.Client{Timeout: DefaultTimeout}
	}
	return &Calculator{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		seq:     sequencer.New(),
	}
}

// Calculate fetches a single quote.
func (c *Calculator) Calculate(ctx context.Context, slug, cep string) (dto.DeliveryResponse, error) {
	endpoint := fmt.Sprintf("%s/menu/%s/calculate-delivery?cep=%s",
		c.baseURL, url.PathEscape(strings.TrimSpace(slug)), url.QueryEscape(cep))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return dto.DeliveryResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		return dto.DeliveryResponse{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dto.DeliveryResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e dto.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(body))
		}
		return dto.DeliveryResponse{}, &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	var out dto.DeliveryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return dto.DeliveryResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Result is delivered to the CalculateLatest callback.
type Result struct {
	CEP   string
	Quote dto.DeliveryResponse
	Err   error
}

// CalculateLatest starts a quote request in the background. deliver is
// called at most once, and only if no newer request was started in the
// same slot by the time the response arrives.
func (c *Calculator) CalculateLatest(ctx context.Context, slot, slug, cep string, deliver func(Result)) sequencer.Token {
	tok := c.seq.Begin(slot)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		quote, err := c.Calculate(ctx, slug, cep)
		c.seq.Apply(slot, tok, func() {
			deliver(Result{CEP: cep, Quote: quote, Err: err})
		})
	}()

	return tok
}

// Wait blocks until every background request has finished.
func (c *Calculator) Wait() { c.wg.Wait() }

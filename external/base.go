// Package external holds the typed, retrying HTTP clients for every
// downstream service a publish pipeline or ingest poller calls into: DOI
// minting, the Metax catalog, REMS access management, the archive admin
// API, S3, and Keystone.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

// maxResponseBytes bounds how much of a downstream response body is ever
// read into memory, per spec.md §4.H's bounded-response-body-reads note.
const maxResponseBytes = 4 << 20 // 4 MiB

// ClientConfig configures a Client's retry/circuit-breaker behavior.
type ClientConfig struct {
	BaseURL     string
	Name        string // used as the breaker name and in log lines
	RetryMax    int    // default 5
	RetryWaitMin time.Duration // default 500ms
	RetryWaitMax time.Duration // default 10s
	Timeout     time.Duration  // per-attempt timeout, default 15s
}

// Client is the shared base for every downstream service client: a
// retryablehttp.Client (exponential backoff with jitter, capped retries,
// retrying only on transport errors and 5xx) wrapped in a per-service
// gobreaker.CircuitBreaker so a persistently-down downstream fails fast.
type Client struct {
	name    string
	baseURL string
	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
	health  *Health
}

// NewClient builds a Client for one downstream service.
func NewClient(cfg ClientConfig) *Client {
	if cfg.RetryMax <= 0 {
		cfg.RetryMax = 5
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil // route diagnostics through slog ourselves, not the library's own logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     30 * time.Second, // half-open probe delay after opening
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		name:    cfg.Name,
		baseURL: cfg.BaseURL,
		http:    rc,
		breaker: breaker,
		health:  NewHealth(cfg.Name, cfg.BaseURL, 30*time.Second),
	}
}

// Health returns this client's health probe, for registration with a
// shared Registry.
func (c *Client) Health() *Health { return c.health }

// DoJSON marshals req as the request body, performs method against
// path (resolved against the client's base URL) through the retrying,
// circuit-broken transport, and decodes a successful response into out.
// A nil req omits the body (for GET/HEAD calls); a nil out skips
// decoding (for calls whose only signal is the status code).
func (c *Client) DoJSON(ctx context.Context, method, path string, req, out any) error {
	var body []byte
	if req != nil {
		var err error
		body, err = json.Marshal(req)
		if err != nil {
			return fmt.Errorf("external: %s: marshal request: %w", c.name, err)
		}
	}

	result, err := c.breaker.Execute(func() (any, error) {
		httpReq, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		slog.Debug("external service call",
			"service", c.name, "method", method, "path", path,
			"status", resp.StatusCode, "duration", time.Since(start))

		if resp.StatusCode >= 400 {
			return nil, &StatusError{Service: c.name, StatusCode: resp.StatusCode, Body: respBody}
		}
		return respBody, nil
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	respBody, _ := result.([]byte)
	if len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("external: %s: decode response: %w", c.name, err)
	}
	return nil
}

// StatusError is returned for any downstream response with status >= 400.
// The permanent/transient distinction (spec.md §7) is the caller's to
// make: a 4xx is a permanent, user-fixable failure; a 5xx that survived
// retries is transient infrastructure trouble.
type StatusError struct {
	Service    string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("external: %s returned status %d: %s", e.Service, e.StatusCode, string(e.Body))
}

// Permanent reports whether this is a 4xx response the caller should not
// blindly retry.
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy for transient upstream failures: bounded exponential backoff
// with jitter. 4xx responses are permanent and never retried.
const (
	retryBaseInterval = 500 * time.Millisecond
	retryMultiplier   = 2.0
	maxRetries        = 3
)

// Client executes JSON GET requests against one upstream base URL, attaching
// the API token header and retrying transient failures.
type Client struct {
	baseURL     string
	tokenHeader string
	token       string
	hc          *http.Client
}

// NewClient validates the base URL and returns a ready client. tokenHeader
// names the header the upstream expects the token in; token may be empty.
func NewClient(baseURL, tokenHeader, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		tokenHeader: tokenHeader,
		token:       token,
		hc:          &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryBaseInterval
	b.Multiplier = retryMultiplier
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// GetJSON performs GET {baseURL}{path}?{query} and decodes the 200 response
// body into out. Transport failures and 5xx responses are retried with
// backoff; 4xx responses surface immediately as *APIError (or the error
// mapped by errFor, when provided).
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any, errFor func(status int, body string) error) error {
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
		if err != nil {
			return backoff.Permanent(&NetworkError{Op: path, Err: err})
		}
		if c.token != "" {
			req.Header.Set(c.tokenHeader, c.token)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return &NetworkError{Op: path, Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return &NetworkError{Op: path, Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr error = &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
			if errFor != nil {
				if mapped := errFor(resp.StatusCode, string(body)); mapped != nil {
					apiErr = mapped
				}
			}
			// Server-side failures are worth retrying; client errors are not.
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(&NetworkError{Op: path, Err: fmt.Errorf("decode response: %w", err)})
		}
		return nil
	}

	return backoff.Retry(op, c.newBackOff(ctx))
}

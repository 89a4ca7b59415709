package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chronoseal/capsule-go/internal/apierrors"
)

// Client is the HTTP transport for a remote capsule server. It handles
// request encoding, retries on transient failures, and translation of
// error responses into typed errors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
}

// Option configures the API client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetry replaces the retry policy.
func WithRetry(rc RetryConfig) Option {
	return func(c *Client) {
		c.retry = rc
	}
}

// WithRetries sets the maximum retry count, keeping the default backoff.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retry.MaxRetries = n
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do performs an HTTP request against the server. body is marshaled to
// JSON when non-nil; on 2xx the response body is unmarshaled into result
// when result is non-nil. Transport failures and retryable status codes
// are retried per the client's RetryConfig.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}

	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.retry.wait(ctx, attempt); err != nil {
				return err
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "chronoseal-client/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &apierrors.NetworkError{Err: err, URL: url, Attempt: attempt + 1}
			continue
		}

		if c.retry.retryable(resp.StatusCode) && attempt < c.retry.MaxRetries {
			lastErr = parseErrorResponse(resp)
			resp.Body.Close()
			continue
		}

		return decodeResponse(resp, result)
	}

	return lastErr
}

// decodeResponse consumes and closes the response body.
func decodeResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}

	if result == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// errorBody is the error envelope every non-2xx response carries.
type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	UnlockDate string `json:"unlock_date"`
}

// parseErrorResponse reads an error envelope from resp without closing
// its body. Non-JSON bodies fall back to a bare status error.
func parseErrorResponse(resp *http.Response) error {
	apiErr := &apierrors.APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}

	apiErr.Code = body.Code
	apiErr.Message = body.Error
	apiErr.UnlockDate = body.UnlockDate
	return apiErr
}

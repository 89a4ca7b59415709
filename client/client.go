// Package client provides a remote client for a capsule server. It
// mirrors the local vault API: the same result types, the same
// sentinel errors, and the same watch semantics, backed by HTTP
// instead of an on-disk store.
package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	chronoseal "github.com/chronoseal/capsule-go"
	"github.com/chronoseal/capsule-go/internal/api"
	"github.com/chronoseal/capsule-go/internal/apierrors"
	"github.com/chronoseal/capsule-go/internal/delivery"
)

// WatchMode selects how WatchUnlocks receives events from the server.
type WatchMode string

const (
	// WatchAuto tries SSE first, falling back to polling.
	WatchAuto WatchMode = "auto"
	// WatchSSE uses the server's event stream only.
	WatchSSE WatchMode = "sse"
	// WatchPolling lists capsules on an adaptive interval.
	WatchPolling WatchMode = "polling"
)

// clientConfig holds configuration collected from Options.
type clientConfig struct {
	httpClient   *http.Client
	timeout      time.Duration
	retries      int
	watchMode    WatchMode
	pollInterval time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Default: 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithRetries sets the retry count for transient failures. Default: 3.
func WithRetries(n int) Option {
	return func(c *clientConfig) {
		c.retries = n
	}
}

// WithWatchMode sets how WatchUnlocks connects. Default: WatchAuto.
func WithWatchMode(mode WatchMode) Option {
	return func(c *clientConfig) {
		c.watchMode = mode
	}
}

// WithWatchPollInterval sets the initial interval for polling-based
// watching. Default: 2 seconds.
func WithWatchPollInterval(d time.Duration) Option {
	return func(c *clientConfig) {
		c.pollInterval = d
	}
}

// Client talks to a remote capsule server.
type Client struct {
	api *api.Client
	cfg clientConfig
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := clientConfig{watchMode: WatchAuto}
	for _, opt := range opts {
		opt(&cfg)
	}

	apiOpts := []api.Option{}
	if cfg.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(cfg.httpClient))
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}
	if cfg.retries > 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.retries))
	}

	apiClient, err := api.New(baseURL, apiOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{api: apiClient, cfg: cfg}, nil
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.api.BaseURL()
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return translate(c.api.Health(ctx))
}

// translate upgrades API errors whose local counterparts are typed
// structs, so errors.As works the same against a remote server as
// against a local vault. Everything else passes through; sentinel
// matching via errors.Is already works on the raw APIError.
func translate(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case "time_locked":
		return &chronoseal.TimeLockedError{UnlockDate: apiErr.UnlockDate}
	}
	return err
}

// deliveryConfig builds the delivery configuration for WatchUnlocks.
func (c *Client) deliveryConfig() delivery.Config {
	return delivery.Config{
		Client:          c.api,
		InitialInterval: c.cfg.pollInterval,
	}
}

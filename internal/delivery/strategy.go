package delivery

import (
	"context"
	"time"

	"github.com/chronoseal/capsule-go/internal/api"
)

// Handler is invoked for each capsule that becomes unlockable. It runs
// on the strategy's goroutine; long handlers delay later events.
type Handler func(ctx context.Context, event api.UnlockEventDTO)

// Strategy defines how unlock events are delivered from a remote
// server. Implementations include PollingStrategy, SSEStrategy, and
// AutoStrategy.
//
// The lifecycle is Start once, then Stop. All implementations are safe
// for concurrent use.
type Strategy interface {
	// Start begins watching the server. The handler is called for each
	// unlock event. Start returns immediately; delivery is
	// asynchronous.
	Start(ctx context.Context, handler Handler) error

	// Stop shuts the strategy down. It is idempotent.
	Stop() error

	// Name identifies the strategy for logging. Examples: "polling",
	// "sse", "auto:sse", "auto:polling".
	Name() string
}

// Config holds configuration shared by all delivery strategies.
type Config struct {
	// Client is the transport used to reach the server.
	Client *api.Client

	// InitialInterval is the starting interval between polls.
	InitialInterval time.Duration

	// MaxBackoff caps the polling interval growth.
	MaxBackoff time.Duration

	// Multiplier is the factor by which the poll interval grows after a
	// poll that saw no changes.
	Multiplier float64

	// Jitter is the maximum random fraction added to each interval.
	Jitter float64

	// ConnectTimeout is how long auto mode waits for an SSE connection
	// before falling back to polling.
	ConnectTimeout time.Duration

	// ReconnectInterval is the base delay between SSE reconnection
	// attempts.
	ReconnectInterval time.Duration
}

// Defaults applied by withDefaults.
const (
	DefaultInitialInterval   = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultMultiplier        = 1.5
	DefaultJitter            = 0.3
	DefaultConnectTimeout    = 5 * time.Second
	DefaultReconnectInterval = 5 * time.Second
)

// withDefaults fills zero fields with package defaults.
func (c Config) withDefaults() Config {
	if c.InitialInterval == 0 {
		c.InitialInterval = DefaultInitialInterval
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.Multiplier == 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.Jitter == 0 {
		c.Jitter = DefaultJitter
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReconnectInterval == 0 {
		c.ReconnectInterval = DefaultReconnectInterval
	}
	return c
}

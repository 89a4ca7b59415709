package delivery

import (
	"context"
	"sync"
	"time"
)

// AutoStrategy tries SSE first and falls back to polling when the
// stream cannot be established within the connect timeout.
type AutoStrategy struct {
	cfg     Config
	mu      sync.RWMutex
	current Strategy
}

// NewAutoStrategy creates an auto strategy.
func NewAutoStrategy(cfg Config) *AutoStrategy {
	return &AutoStrategy{cfg: cfg.withDefaults()}
}

// Name returns the active strategy's name, prefixed with "auto:".
func (a *AutoStrategy) Name() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current != nil {
		return "auto:" + a.current.Name()
	}
	return "auto"
}

// Start tries SSE, waiting up to the connect timeout for the stream to
// come up, then falls back to polling.
func (a *AutoStrategy) Start(ctx context.Context, handler Handler) error {
	sse := NewSSEStrategy(a.cfg)
	if err := sse.Start(ctx, handler); err != nil {
		return a.startPolling(ctx, handler)
	}

	select {
	case <-sse.Connected():
		a.mu.Lock()
		a.current = sse
		a.mu.Unlock()
		return nil
	case <-time.After(a.cfg.ConnectTimeout):
		sse.Stop()
		return a.startPolling(ctx, handler)
	case <-ctx.Done():
		sse.Stop()
		return ctx.Err()
	}
}

func (a *AutoStrategy) startPolling(ctx context.Context, handler Handler) error {
	polling := NewPollingStrategy(a.cfg)
	if err := polling.Start(ctx, handler); err != nil {
		return err
	}
	a.mu.Lock()
	a.current = polling
	a.mu.Unlock()
	return nil
}

// Stop shuts down whichever strategy is active.
func (a *AutoStrategy) Stop() error {
	a.mu.RLock()
	current := a.current
	a.mu.RUnlock()

	if current != nil {
		return current.Stop()
	}
	return nil
}

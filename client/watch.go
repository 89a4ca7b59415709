package client

import (
	"context"
	"errors"
	"sync"
	"time"

	chronoseal "github.com/chronoseal/capsule-go"
	"github.com/chronoseal/capsule-go/internal/api"
	"github.com/chronoseal/capsule-go/internal/delivery"
)

const defaultWaitPollInterval = 2 * time.Second

// newStrategy builds the delivery strategy for the configured watch
// mode.
func (c *Client) newStrategy() delivery.Strategy {
	cfg := c.deliveryConfig()
	switch c.cfg.watchMode {
	case WatchSSE:
		return delivery.NewSSEStrategy(cfg)
	case WatchPolling:
		return delivery.NewPollingStrategy(cfg)
	default:
		return delivery.NewAutoStrategy(cfg)
	}
}

// WatchUnlocks returns a channel that receives an event for every
// capsule the server reports unlockable while ctx runs. Each capsule is
// announced at most once per watch, even across stream reconnects.
// Capsules that are already unlockable are announced immediately.
//
// The channel is never closed. Cancel ctx to stop the watch. Events are
// dropped if the channel buffer is full, so consume promptly.
func (c *Client) WatchUnlocks(ctx context.Context) (<-chan chronoseal.UnlockEvent, error) {
	ch := make(chan chronoseal.UnlockEvent, 16)

	var mu sync.Mutex
	announced := make(map[int]struct{})

	strategy := c.newStrategy()
	err := strategy.Start(ctx, func(ctx context.Context, ev api.UnlockEventDTO) {
		// The server replays unlockable capsules on every stream
		// connect; announce each index once.
		mu.Lock()
		_, seen := announced[ev.Index]
		announced[ev.Index] = struct{}{}
		mu.Unlock()
		if seen {
			return
		}

		event := chronoseal.UnlockEvent{
			Index:      ev.Index,
			CreatedAt:  ev.CreatedAt,
			UnlockDate: ev.UnlockDate,
		}
		select {
		case ch <- event:
		default:
			// Drop rather than block the delivery goroutine.
		}
	})
	if err != nil {
		return nil, translate(err)
	}

	go func() {
		<-ctx.Done()
		strategy.Stop()
	}()

	return ch, nil
}

// WatchUnlocksFunc invokes fn for each unlock event until ctx is
// cancelled. It blocks until ctx is done and is intended to be run in a
// goroutine.
func (c *Client) WatchUnlocksFunc(ctx context.Context, fn func(chronoseal.UnlockEvent)) error {
	ch, err := c.WatchUnlocks(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-ch:
			fn(ev)
		}
	}
}

// WaitUntilUnlockable blocks until the capsule at index can be
// decrypted, then decrypts it and returns the result. Bound the wait
// through ctx.
func (c *Client) WaitUntilUnlockable(ctx context.Context, index int) (*chronoseal.DecryptResult, error) {
	interval := c.cfg.pollInterval
	if interval == 0 {
		interval = defaultWaitPollInterval
	}

	// Try immediately: errors unrelated to the time-lock will not
	// resolve with time.
	result, err := c.DecryptCapsule(ctx, index)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, chronoseal.ErrTimeLocked) {
		return nil, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			result, err := c.DecryptCapsule(ctx, index)
			if err == nil {
				return result, nil
			}
			if !errors.Is(err, chronoseal.ErrTimeLocked) {
				return nil, err
			}
		}
	}
}

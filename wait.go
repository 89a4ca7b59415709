package chronoseal

import (
	"context"
	"errors"
	"time"
)

// UnlockEvent announces a capsule whose unlock date has arrived.
type UnlockEvent struct {
	// Index is the position of the capsule in the vault.
	Index int
	// CreatedAt is the capsule's sealing timestamp (RFC 3339 UTC).
	CreatedAt string
	// UnlockDate is the day (UTC) the capsule became unlockable.
	UnlockDate string
}

// WatchUnlocks returns a channel that receives an event for every capsule
// observed to be unlockable while ctx runs. Each capsule is announced at
// most once per watch; capsules that are already unlockable when the watch
// starts are announced on the first poll.
//
// The channel is never closed. Cancel ctx to stop the watch. Events are
// dropped if the channel buffer is full, so consume promptly.
func (v *Vault) WatchUnlocks(ctx context.Context, opts ...WaitOption) (<-chan UnlockEvent, error) {
	cfg := &waitConfig{pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(cfg)
	}

	v.mu.RLock()
	closed := v.closed
	v.mu.RUnlock()
	if closed {
		return nil, ErrVaultClosed
	}

	ch := make(chan UnlockEvent, 16)
	go v.watchUnlocks(ctx, cfg.pollInterval, ch)
	return ch, nil
}

// WatchUnlocksFunc invokes fn for each unlock event until ctx is cancelled.
// It blocks until ctx is done and is intended to be run in a goroutine.
func (v *Vault) WatchUnlocksFunc(ctx context.Context, fn func(UnlockEvent), opts ...WaitOption) error {
	ch, err := v.WatchUnlocks(ctx, opts...)
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

// watchUnlocks polls the store on a fixed interval and publishes newly
// unlockable capsules. The announced set lives for the duration of the
// watch, so a capsule is reported once even across many polls.
func (v *Vault) watchUnlocks(ctx context.Context, interval time.Duration, ch chan<- UnlockEvent) {
	announced := make(map[int]struct{})

	// Poll immediately so capsules that are already unlockable are
	// reported without waiting a full interval.
	v.publishUnlockable(announced, ch)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !v.publishUnlockable(announced, ch) {
				return
			}
		}
	}
}

// publishUnlockable scans the vault and emits events for unlockable
// capsules not yet announced. It reports false once the vault is closed.
func (v *Vault) publishUnlockable(announced map[int]struct{}, ch chan<- UnlockEvent) bool {
	summaries, err := v.ListCapsules()
	if err != nil {
		if errors.Is(err, ErrVaultClosed) {
			return false
		}
		v.logger.WithError(err).Warn("unlock watch: listing capsules failed")
		return true
	}

	for _, s := range summaries {
		if s.Status != StatusUnlockable {
			continue
		}
		if _, ok := announced[s.Index]; ok {
			continue
		}
		announced[s.Index] = struct{}{}

		ev := UnlockEvent{Index: s.Index, CreatedAt: s.CreatedAt, UnlockDate: s.UnlockDate}
		select {
		case ch <- ev:
		default:
			// Drop rather than block the poll loop.
		}
	}
	return true
}

// WaitUntilUnlockable blocks until the capsule at index can be decrypted,
// then decrypts it and returns the result. If the capsule is already
// unlockable it returns immediately.
//
// The wait is advisory like the time-lock itself: it watches the vault's
// clock, not a trusted timestamping service. Use WithWaitTimeout to bound
// the wait and WithPollInterval to tune how often the clock is checked.
// Errors other than the capsule being time-locked are returned immediately.
func (v *Vault) WaitUntilUnlockable(ctx context.Context, index int, opts ...WaitOption) (*DecryptResult, error) {
	cfg := &waitConfig{pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	// Try immediately: a capsule sealed with a past unlock date never
	// needs a wait, and errors unrelated to the time-lock will not
	// resolve with time.
	result, err := v.DecryptCapsule(index)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrTimeLocked) {
		return nil, err
	}

	ticker := time.NewTicker(cfg.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			result, err := v.DecryptCapsule(index)
			if err == nil {
				return result, nil
			}
			if !errors.Is(err, ErrTimeLocked) {
				return nil, err
			}
		}
	}
}

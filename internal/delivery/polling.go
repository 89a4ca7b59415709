package delivery

import (
	"context"
	"math/rand"
	"sync"
	"time"

	chronoseal "github.com/chronoseal/capsule-go"
	"github.com/chronoseal/capsule-go/internal/api"
)

// PollingStrategy watches for unlocks by listing capsules on an
// adaptive interval. The interval grows while nothing changes and
// resets when a capsule crosses its unlock date.
type PollingStrategy struct {
	cfg     Config
	handler Handler
	cancel  context.CancelFunc
	mu      sync.RWMutex
	started bool

	// known maps capsule index to the last status seen, so each capsule
	// is announced once.
	known map[int]string
}

// NewPollingStrategy creates a polling strategy.
func NewPollingStrategy(cfg Config) *PollingStrategy {
	return &PollingStrategy{
		cfg:   cfg.withDefaults(),
		known: make(map[int]string),
	}
}

// Name returns the strategy name.
func (p *PollingStrategy) Name() string {
	return "polling"
}

// Start begins polling the server.
func (p *PollingStrategy) Start(ctx context.Context, handler Handler) error {
	p.mu.Lock()
	p.handler = handler
	p.started = true
	p.mu.Unlock()

	ctx, p.cancel = context.WithCancel(ctx)
	go p.pollLoop(ctx)
	return nil
}

// Stop shuts the strategy down.
func (p *PollingStrategy) Stop() error {
	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func (p *PollingStrategy) pollLoop(ctx context.Context) {
	interval := p.cfg.InitialInterval

	for {
		changed := p.poll(ctx)
		if changed {
			interval = p.cfg.InitialInterval
		} else {
			interval = time.Duration(float64(interval) * p.cfg.Multiplier)
			if interval > p.cfg.MaxBackoff {
				interval = p.cfg.MaxBackoff
			}
		}

		jitter := time.Duration(rand.Float64() * p.cfg.Jitter * float64(interval))
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval + jitter):
		}
	}
}

// poll lists capsules once and reports whether anything new was seen.
func (p *PollingStrategy) poll(ctx context.Context) bool {
	if p.cfg.Client == nil {
		return false
	}

	list, err := p.cfg.Client.ListCapsules(ctx)
	if err != nil {
		return false
	}

	p.mu.RLock()
	handler := p.handler
	p.mu.RUnlock()

	changed := false
	for _, capsule := range list.Capsules {
		prev, seen := p.known[capsule.Index]
		p.known[capsule.Index] = capsule.Status

		if capsule.Status != string(chronoseal.StatusUnlockable) {
			if !seen || prev != capsule.Status {
				changed = true
			}
			continue
		}
		if seen && prev == capsule.Status {
			continue
		}
		changed = true

		if handler != nil {
			handler(ctx, api.UnlockEventDTO{
				Event:      "capsule.unlockable",
				Index:      capsule.Index,
				CreatedAt:  capsule.CreatedAt,
				UnlockDate: capsule.UnlockDate,
			})
		}
	}
	return changed
}

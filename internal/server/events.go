package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	chronoseal "github.com/chronoseal/capsule-go"
)

// heartbeatInterval paces SSE keepalive comments so idle connections
// survive proxies.
const heartbeatInterval = 20 * time.Second

// broker fans unlock events out to connected SSE subscribers.
type broker struct {
	mu   sync.Mutex
	subs map[chan unlockNotification]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan unlockNotification]struct{})}
}

func (b *broker) subscribe() chan unlockNotification {
	ch := make(chan unlockNotification, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broker) unsubscribe(ch chan unlockNotification) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// publish sends to every subscriber. Slow subscribers lose events rather
// than stalling the scanner; the replay on reconnect covers them.
func (b *broker) publish(n unlockNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

func newUnlockNotification(ev chronoseal.UnlockEvent) unlockNotification {
	return unlockNotification{
		Event:      "capsule.unlockable",
		Index:      ev.Index,
		CreatedAt:  ev.CreatedAt,
		UnlockDate: ev.UnlockDate,
		NotifiedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// handleEvents streams capsule.unlockable events as Server-Sent Events.
// Capsules that are already unlockable are replayed on connect so a fresh
// subscriber misses nothing announced before it arrived.
func (s *Server) handleEvents(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	summaries, err := s.vault.ListCapsules()
	if err != nil {
		s.logger.WithError(err).Warn("event stream replay failed")
	}
	for _, capsule := range summaries {
		if capsule.Status != chronoseal.StatusUnlockable {
			continue
		}
		n := newUnlockNotification(chronoseal.UnlockEvent{
			Index:      capsule.Index,
			CreatedAt:  capsule.CreatedAt,
			UnlockDate: capsule.UnlockDate,
		})
		if err := writeSSEEvent(w, n); err != nil {
			return nil
		}
		w.Flush()
	}

	sub := s.broker.subscribe()
	defer s.broker.unsubscribe(sub)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-sub:
			if err := writeSSEEvent(w, n); err != nil {
				return nil
			}
			w.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeSSEEvent(w io.Writer, n unlockNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\n", n.Index); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

package delivery

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/chronoseal/capsule-go/internal/api"
)

// MaxReconnectAttempts bounds consecutive failed SSE connections before
// the strategy gives up.
const MaxReconnectAttempts = 10

// SSEStrategy watches for unlocks over the server's event stream. The
// server replays currently unlockable capsules on connect, so events
// missed while disconnected are recovered on the next connection.
type SSEStrategy struct {
	cfg           Config
	handler       Handler
	cancel        context.CancelFunc
	mu            sync.RWMutex
	attempts      int
	connected     chan struct{}
	connectedOnce sync.Once
	lastError     error
}

// NewSSEStrategy creates an SSE strategy.
func NewSSEStrategy(cfg Config) *SSEStrategy {
	return &SSEStrategy{
		cfg:       cfg.withDefaults(),
		connected: make(chan struct{}),
	}
}

// Name returns the strategy name.
func (s *SSEStrategy) Name() string {
	return "sse"
}

// Connected returns a channel closed once the first stream connection
// is established.
func (s *SSEStrategy) Connected() <-chan struct{} {
	return s.connected
}

// LastError returns the most recent connection error, if any.
func (s *SSEStrategy) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Start begins streaming from the server.
func (s *SSEStrategy) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	go s.connectLoop(ctx)
	return nil
}

// Stop shuts the strategy down.
func (s *SSEStrategy) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *SSEStrategy) connectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := s.connect(ctx)

		var wait time.Duration
		if err == nil {
			// The server closed the stream cleanly. Reconnect after the
			// base interval; the replay covers anything missed.
			s.attempts = 0
			wait = s.cfg.ReconnectInterval
		} else {
			s.attempts++
			if s.attempts >= MaxReconnectAttempts {
				return
			}
			wait = s.cfg.ReconnectInterval * time.Duration(1<<(s.attempts-1))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *SSEStrategy) connect(ctx context.Context) error {
	resp, err := s.cfg.Client.OpenEventStream(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastError = err
		s.mu.Unlock()
		return err
	}
	defer resp.Body.Close()

	s.attempts = 0
	s.connectedOnce.Do(func() {
		close(s.connected)
	})

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()

		// Heartbeats arrive as comment lines.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event api.UnlockEventDTO
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		s.mu.RLock()
		handler := s.handler
		s.mu.RUnlock()

		if handler != nil {
			handler(ctx, event)
		}
	}

	return scanner.Err()
}

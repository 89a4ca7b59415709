// Package delivery provides strategies for receiving capsule unlock
// events from a remote server.
//
// # Delivery Strategies
//
// The package implements two mechanisms plus an automatic selector:
//
//   - [SSEStrategy]: Consumes the server's Server-Sent Events stream.
//     Lowest latency; the server replays currently unlockable capsules
//     on every connect, so reconnects do not lose events.
//
//   - [PollingStrategy]: Periodically lists capsules and announces
//     status transitions. Uses adaptive backoff to reduce API calls
//     while nothing changes.
//
//   - [AutoStrategy]: Tries SSE first and falls back to polling when
//     the stream cannot be established within the connect timeout.
//
// # Usage
//
//	strategy := delivery.NewAutoStrategy(delivery.Config{Client: apiClient})
//	strategy.Start(ctx, func(ctx context.Context, ev api.UnlockEventDTO) {
//	    // Handle unlock event
//	})
//	defer strategy.Stop()
//
// # Backoff and Retry
//
// Polling grows its interval from 2s to 30s while nothing changes and
// resets on any change. SSE reconnects with exponential backoff for up
// to 10 consecutive failures. Both add jitter.
//
// # Thread Safety
//
// All strategy types are safe for concurrent use.
package delivery

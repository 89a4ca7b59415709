// Package api is the HTTP transport for talking to a remote capsule
// server. It handles request and response serialization, SSE stream
// setup, and automatic retry with exponential backoff for transient
// failures.
//
// # Retry Behavior
//
// Failed requests are retried with exponential backoff. By default a
// request is retried up to 3 times on transport errors and on these
// status codes:
//
//   - 408 Request Timeout
//   - 429 Too Many Requests
//   - 500 Internal Server Error
//   - 502 Bad Gateway
//   - 503 Service Unavailable
//   - 504 Gateway Timeout
//
// The delay starts at [RetryConfig.BaseDelay] and grows by
// [RetryConfig.Multiplier] per attempt, capped at [RetryConfig.MaxDelay]
// and randomized by [RetryConfig.Jitter].
//
// # Error Handling
//
// Non-2xx responses become [apierrors.APIError] values carrying the
// server's error code, so errors.Is against the root package sentinels
// works the same way it does against a local vault. Transport failures
// that survive all retries become [apierrors.NetworkError].
//
// # Thread Safety
//
// The [Client] type is safe for concurrent use.
package api

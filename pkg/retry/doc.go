// Package retry provides simple exponential backoff retry logic for
// transient failures.
//
// It is intentionally minimal: no circuit breakers, no metrics, no error
// classification beyond the NonRetryable marker. Just exponential backoff
// with optional jitter and full context cancellation support.
//
// Presets:
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (startup)
//   - Persistent(): 30 attempts, 200ms-10s delay (critical resources,
//     e.g. the terminal bridge connection)
//
// Basic usage:
//
//	err := retry.Do(ctx, retry.Persistent(), func() error {
//	    return client.Connect()
//	})
//
// All functions are safe for concurrent use.
package retry

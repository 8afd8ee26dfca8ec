// Package errors provides standardized error handling patterns for ComfyTrade.
//
// Errors are classified into three classes: Transient (temporary, retryable),
// Invalid (bad input or configuration, non-retryable), and Fatal
// (unrecoverable, stop processing). Classification supports errors.Is/As and
// is preserved through wrapping chains.
//
// All wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Use WrapTransient, WrapInvalid, or WrapFatal to set a classification, or
// the generic Wrap to preserve the original one. Standard error variables
// (ErrNotConnected, ErrNodeTypeNotFound, ErrOrderRejected, ...) exist for
// common conditions; prefer them over ad hoc messages so callers can rely on
// errors.Is.
//
// The engine and scheduler use IsTransient to decide whether a failed node
// or bridge call is worth retrying on the next tick; the trailing stop
// controller relies on the same classification for per-ticket failure
// isolation. RetryConfig bridges into pkg/retry for exponential backoff.
package errors

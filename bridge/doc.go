// Package bridge defines the trading terminal surface the core depends on.
//
// The Terminal interface covers account, position, quote, and order RPCs.
// The core never talks to a broker directly; a concrete implementation
// (bridge/ws over a websocket to the MetaTrader bridge process, or
// testutil.MockTerminal in tests) is injected into the engine context and
// the trailing stop controller.
//
// Two failure channels exist and callers must treat them differently:
//
//   - a Go error: the request never completed (not connected, timeout).
//     Classified transient, the caller degrades the current pass/cycle.
//   - OrderResult{Success: false}: the terminal answered and the broker
//     rejected the request. Surfaced to the user, halts the branch, never
//     retried blindly.
package bridge

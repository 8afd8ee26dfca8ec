// Package trailing adjusts stop-loss and take-profit on tracked open
// positions, polling the terminal on a fixed interval independent of any
// flow.
//
// Each tracked ticket moves through a small state machine: pending until
// its trigger price is crossed, then active, then removed when the
// position closes or the user disables trailing. The stop-loss ratchets
// (a long position's stop only moves up, a short's only down) while the
// take-profit either trails both ways or stays pinned to the value
// captured when trailing was enabled. Price arithmetic uses decimals so
// repeated adjustments never drift from float rounding.
//
// The tracking set is persisted keyed by ticket and restored on startup.
// Bridge unavailability degrades a cycle to a logged no-op; a failed
// modify for one ticket never blocks the others, and the next cycle is
// its retry.
package trailing

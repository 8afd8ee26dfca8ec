// Package scheduler manages running flows against a shared graph.
//
// A flow is one scheduled run rooted at a trigger node, either once or on
// a repeating interval. Each flow owns a goroutine that invokes the
// execution engine per tick; ticks that fire while the previous pass is
// still in progress are skipped rather than queued, so a slow pass never
// causes unbounded concurrent runs of the same flow. At most one flow is
// active per trigger node: starting a new flow on a running trigger stops
// the prior one first.
//
// Flows are runtime-only state. They are not persisted and do not survive
// restarts.
package scheduler

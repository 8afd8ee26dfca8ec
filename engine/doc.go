// Package engine executes one trigger-rooted pass over a strategy graph.
//
// A pass snapshots the graph, then walks trigger connections depth-first
// with an explicit work stack. A per-pass visited set executes each node at
// most once, which makes cyclic graphs terminate instead of looping. Values
// move between nodes through the snapshot clones; the live graph only
// receives a display write-back after the pass completes, so concurrently
// scheduled flows never share mutable node state.
//
// Failures are local by design: a node that returns an error or panics is
// recorded in the PassResult, notified to the user, and halts only its own
// branch. The pass as a whole fails only when the trigger node itself could
// not run.
package engine

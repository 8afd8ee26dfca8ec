// Package graph holds the in-memory model of a strategy canvas: typed node
// instances, their parameters, and the directed connections between ports.
//
// The graph is mutable and shared (the UI edits it while flows run), so all
// access goes through the Graph methods, which copy on read. The execution
// engine never works on the live graph directly: it takes a Snapshot at the
// start of each pass and writes display state back once via ApplyResults.
//
// Connections are validated against a TypeResolver (the node registry):
// port indexes must be in range for the node's type, and an input port
// accepts at most one incoming connection. Fan-in is rejected as a
// configuration error rather than given an arbitrary aggregation order;
// multi-input node types aggregate explicitly through the execution
// context instead.
//
// Export/Import round-trip the graph through a JSON Document. Imports keep
// nodes whose type id is unknown (flagged Unresolved, skipped at run time)
// so a save file survives a missing plugin.
package graph

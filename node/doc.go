// Package node defines the node type system: the execution contract every
// node implements, the capability context handed to executing nodes, and
// the registry that maps type ids to types.
//
// A Type is immutable once registered. Built-in types (see the nodes
// package) register at startup; plugins load Descriptors at runtime through
// Registry.LoadPlugin, which validates required fields and port kinds once
// at load time. Unloading a plugin leaves existing graph instances in place
// but unresolved; the engine skips them rather than failing the run.
//
// Execute returns an Outcome instead of mutating the node: Continue gates
// downstream propagation, Output picks which trigger output a router
// follows. This keeps branch selection visible to the engine and to tests.
package node

// Package store provides the persistence layer: a small KV abstraction
// with an in-memory backend and a NATS JetStream backend, plus the graph
// document store and the per-plugin stores built on top of it.
//
// The application persists the serialized graph and the trailing-stop
// configuration set. Flows are runtime-only and never stored.
package store

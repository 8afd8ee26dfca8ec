// Package natsclient manages the NATS connection used for persistence.
//
// The client connects with automatic retry, exposes JetStream key-value
// buckets for the graph store, the plugin stores and the trailing-stop
// configuration set, and drains cleanly on shutdown. When no NATS URL is
// configured the application runs on in-memory stores instead and this
// package is not used.
package natsclient

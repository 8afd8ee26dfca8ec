// Package comfytrade is a node-graph trading execution engine. Strategies
// are built as graphs of typed nodes (triggers, market data, conditions,
// logic gates, trade actions) and executed as trigger-rooted passes against
// an external trading terminal, reached over a WebSocket bridge.
//
// # Architecture
//
// The application splits into a small set of layers:
//
//	┌─────────────────────────────────────┐
//	│           Scheduler                 │  Flows: once / periodic
//	│   (one active flow per trigger)     │  tick loop, skip on overlap
//	└─────────────────────────────────────┘
//	           ↓ runs passes on
//	┌─────────────────────────────────────┐
//	│         Execution Engine            │  Snapshot-per-pass DFS,
//	│   (graph traversal, node state)     │  branch-local failures
//	└─────────────────────────────────────┘
//	           ↓ executes
//	┌─────────────────────────────────────┐
//	│       Node Types (registry)         │  Built-ins + plugin types,
//	│  trigger, quote, condition, trade…  │  typed ports, params
//	└─────────────────────────────────────┘
//	           ↓ act through
//	┌─────────────────────────────────────┐
//	│       Terminal Bridge               │  JSON-RPC over WebSocket,
//	│  (quotes, orders, positions)        │  auto-reconnect
//	└─────────────────────────────────────┘
//
// Alongside the flow path, an independent trailing stop controller polls
// open positions on an interval and ratchets stop-loss (and optionally
// take-profit) levels per tracked ticket.
//
// # Packages
//
// Core model and execution:
//   - graph: node instances, connections, documents, snapshots
//   - node: node type registry, plugin descriptors, execution contracts
//   - nodes: the built-in node types
//   - engine: trigger-rooted pass execution
//   - scheduler: flow lifecycle (once / periodic)
//   - trailing: trailing stop controller
//
// Terminal access:
//   - bridge: terminal interface and wire types
//   - bridge/ws: WebSocket JSON-RPC client
//
// Infrastructure:
//   - config: YAML configuration
//   - store: key-value persistence (in-memory or NATS JetStream)
//   - natsclient: NATS connection and JetStream buckets
//   - metric: Prometheus metrics
//   - health: component health aggregation
//   - errors: classified error handling
//   - pkg/retry: retry policies
//   - testutil: mock terminal and notifier for tests
//
// # Execution Model
//
// A pass starts at a trigger node and walks trigger-port connections depth
// first. Each pass runs against its own snapshot of the graph, so
// concurrently scheduled flows never observe each other's intermediate
// state; results are written back to the shared graph once per pass, for
// display only. A node failure halts its branch, not the pass. Business
// rejections from the broker (insufficient margin, invalid stops) notify
// the user and halt the branch without counting as failures.
//
// # Binary
//
// cmd/comfytrade wires everything together: configuration, logging, the
// bridge connection, persisted graph restore, the Prometheus and health
// endpoints, the scheduler, and the trailing controller.
package comfytrade

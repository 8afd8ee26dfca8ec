// Package metric wraps a private Prometheus registry behind a namespaced
// registration API with duplicate detection.
//
// Components own their metric structs and register them via
// RegisterCounterVec and friends; a nil *MetricsRegistry disables metrics
// throughout the application (every record method is nil-safe). Core
// bridge-level metrics are always present on Metrics.
package metric

// Package metrics defines the sinks that record assignment gestures,
// schedule refreshes and technician notifications. Sinks like the
// Prometheus and InfluxDB ones in infra/metrics are built from configuration
// through a factory registry and combined with a MultiSink when several are
// configured.
package metrics

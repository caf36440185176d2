// Package infra groups the adapters behind the board's core interfaces:
// schedule backends (HTTP, in-memory, Redis read-through cache), metric
// sinks, Sentry monitoring, the MQTT technician notifier and the zerolog
// logger. Core packages never import infra.
package infra

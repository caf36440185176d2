package metrics

import "github.com/kilianp07/dispatchboard/core/factory"

// Config defines the metric sinks and the Prometheus scrape endpoint.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr serves /metrics when non-empty, e.g. ":9102".
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/dispatchboard/core/factory"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
)

// Sink types accepted in metrics.sinks.
const (
	TypeNop        = "nop"
	TypeLog        = "log"
	TypePrometheus = "prometheus"
	TypeInflux     = "influx"
)

func init() {
	_ = coremetrics.RegisterMetricsSink(TypeNop, func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink(TypeLog, func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c LogConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewLogSink(c, nil)
	})
	// Collectors are shared with the coordinator's on the default registry,
	// which StartPromServer exposes.
	_ = coremetrics.RegisterMetricsSink(TypePrometheus, func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})
	_ = coremetrics.RegisterMetricsSink(TypeInflux, func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}

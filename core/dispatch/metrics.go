package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	gesturesTotal        *prometheus.CounterVec
	assignmentLatency    *prometheus.HistogramVec
	requestsInFlight     prometheus.Gauge
	refreshAfterDropFail prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Gauge, prometheus.Counter) {
	gestures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_gestures_total",
			Help: "Completed drop gestures by outcome",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_assignment_request_duration_seconds",
			Help:    "Latency of assignment requests sent to the schedule backend",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	inflight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_assignment_requests_in_flight",
			Help: "Assignment requests awaiting a backend response",
		},
	)
	refreshFail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_post_assignment_refresh_failures_total",
			Help: "Re-fetches after an assignment request that failed",
		},
	)
	return gestures, lat, inflight, refreshFail
}

func init() {
	gesturesTotal, assignmentLatency, requestsInFlight, refreshAfterDropFail = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers coordinator metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(gesturesTotal, assignmentLatency, requestsInFlight, refreshAfterDropFail)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	gesturesTotal, assignmentLatency, requestsInFlight, refreshAfterDropFail = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
)

// PromSink exports assignment, refresh and notification activity as
// Prometheus metrics.
type PromSink struct {
	assignments   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	refreshes     *prometheus.CounterVec
	workOrders    *prometheus.GaugeVec
	unassigned    *prometheus.GaugeVec
	conflicts     *prometheus.GaugeVec
	notifications *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The scrape endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_assignments_total",
			Help: "Drop gestures by tenant and outcome",
		}, []string{"tenant", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "board_assignment_latency_seconds",
			Help:    "Time between drop and backend answer",
			Buckets: prometheus.DefBuckets,
		}, []string{"tenant", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_refreshes_total",
			Help: "Schedule fetches by tenant and result",
		}, []string{"tenant", "success"}),
		workOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "board_work_orders",
			Help: "Work orders in the last snapshot",
		}, []string{"tenant"}),
		unassigned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "board_unassigned_work_orders",
			Help: "Work orders waiting in the unassigned queue",
		}, []string{"tenant"}),
		conflicts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "board_conflicting_cells",
			Help: "Technician cells with overlapping work orders",
		}, []string{"tenant"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "board_technician_notifications_total",
			Help: "Technician notifications by action and delivery",
		}, []string{"action", "delivered"}),
	}
	var err error
	if s.assignments, err = register(reg, s.assignments); err != nil {
		return nil, err
	}
	if s.latency, err = register(reg, s.latency); err != nil {
		return nil, err
	}
	if s.refreshes, err = register(reg, s.refreshes); err != nil {
		return nil, err
	}
	if s.workOrders, err = register(reg, s.workOrders); err != nil {
		return nil, err
	}
	if s.unassigned, err = register(reg, s.unassigned); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, s.conflicts); err != nil {
		return nil, err
	}
	if s.notifications, err = register(reg, s.notifications); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.assignments.WithLabelValues(ev.Tenant, ev.Outcome).Inc()
	if ev.Outcome == coremetrics.OutcomeAssigned || ev.Outcome == coremetrics.OutcomeFailed {
		s.latency.WithLabelValues(ev.Tenant, ev.Outcome).Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordRefresh counts the fetch and, on success, updates the board gauges.
func (s *PromSink) RecordRefresh(ev coremetrics.RefreshEvent) error {
	s.refreshes.WithLabelValues(ev.Tenant, strconv.FormatBool(ev.Success)).Inc()
	if !ev.Success {
		return nil
	}
	s.workOrders.WithLabelValues(ev.Tenant).Set(float64(ev.WorkOrders))
	s.unassigned.WithLabelValues(ev.Tenant).Set(float64(ev.Unassigned))
	s.conflicts.WithLabelValues(ev.Tenant).Set(float64(ev.Conflicts))
	return nil
}

func (s *PromSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	s.notifications.WithLabelValues(ev.Action, strconv.FormatBool(ev.Delivered)).Inc()
	return nil
}

package metrics

import "time"

// Assignment outcomes shared by sinks and collectors.
const (
	OutcomeAssigned = "assigned"
	OutcomeFailed   = "failed"
	OutcomeNoop     = "noop"
	OutcomeStale    = "stale"
	OutcomeInvalid  = "invalid"
)

// AssignmentEvent describes one completed drop gesture.
type AssignmentEvent struct {
	Tenant         string
	WorkOrderID    string
	FromTechnician string
	ToTechnician   string
	Target         string
	Outcome        string
	Latency        time.Duration
	Error          string
	Time           time.Time
}

// MetricsSink records assignment activity for observability purposes.
type MetricsSink interface {
	RecordAssignment(ev AssignmentEvent) error
}

// RefreshEvent captures one schedule fetch and the state of the board it
// produced.
type RefreshEvent struct {
	Tenant      string
	Version     uint64
	Success     bool
	Technicians int
	WorkOrders  int
	Unassigned  int
	Conflicts   int
	Latency     time.Duration
	Error       string
	Time        time.Time
}

// RefreshRecorder records schedule refreshes.
type RefreshRecorder interface {
	RecordRefresh(ev RefreshEvent) error
}

// NotificationEvent records a message sent to a technician.
type NotificationEvent struct {
	TechnicianID string
	WorkOrderID  string
	Action       string
	Delivered    bool
	Time         time.Time
}

// NotificationRecorder records technician notifications.
type NotificationRecorder interface {
	RecordNotification(ev NotificationEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentEvent) error     { return nil }
func (NopSink) RecordRefresh(RefreshEvent) error           { return nil }
func (NopSink) RecordNotification(NotificationEvent) error { return nil }

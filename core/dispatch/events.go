package dispatch

import "time"

// EventType names a step of the drag-and-drop lifecycle.
type EventType string

const (
	EventGestureStarted   EventType = "gesture_started"
	EventGestureCancelled EventType = "gesture_cancelled"
	// EventDropIgnored covers no-op, stale and malformed drops.
	EventDropIgnored         EventType = "drop_ignored"
	EventAssignmentRequested EventType = "assignment_requested"
	EventAssignmentSucceeded EventType = "assignment_succeeded"
	EventAssignmentFailed    EventType = "assignment_failed"
)

// Event is published on the coordinator bus. From and To are technician ids,
// empty meaning the unassigned queue.
type Event struct {
	Type        EventType
	Tenant      string
	WorkOrderID string
	From        string
	To          string
	Target      string
	Outcome     string
	Err         error
	Time        time.Time
}

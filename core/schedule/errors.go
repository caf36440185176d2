package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrNoSnapshot = errors.New("no schedule snapshot loaded")
	ErrNotFound   = errors.New("work order not found")
	// ErrRejected marks assignment failures reported by the backend itself,
	// as opposed to transport failures.
	ErrRejected = errors.New("assignment rejected")
)

// AssignmentError carries the opaque reason of a failed assignment. The
// reason is only meant for display.
type AssignmentError struct {
	WorkOrderID  string
	TechnicianID string
	Reason       string
	Err          error
}

func (e *AssignmentError) Error() string {
	target := e.TechnicianID
	if target == "" {
		target = "unassigned"
	}
	msg := fmt.Sprintf("assign %s to %s", e.WorkOrderID, target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AssignmentError) Unwrap() error { return e.Err }

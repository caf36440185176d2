package dispatch

import (
	"context"

	"github.com/kilianp07/dispatchboard/core/logger"
)

// Failure describes an assignment the backend did not accept.
type Failure struct {
	Tenant       string
	WorkOrderID  string
	TechnicianID string
	Target       string
	Err          error
}

// Notifier surfaces failed assignments to the user. Implementations must not
// block the coordinator.
type Notifier interface {
	AssignmentFailed(ctx context.Context, f Failure)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, f Failure)

func (fn NotifierFunc) AssignmentFailed(ctx context.Context, f Failure) { fn(ctx, f) }

// LogNotifier writes failures to the log.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) AssignmentFailed(_ context.Context, f Failure) {
	if n.Log == nil {
		return
	}
	n.Log.Warnf("assignment of %s to %s failed: %v", f.WorkOrderID, f.Target, f.Err)
}

// Notifiers fans a failure out to every non-nil notifier in order.
type Notifiers []Notifier

func (ns Notifiers) AssignmentFailed(ctx context.Context, f Failure) {
	for _, n := range ns {
		if n != nil {
			n.AssignmentFailed(ctx, f)
		}
	}
}

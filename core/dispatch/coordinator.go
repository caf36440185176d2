// Package dispatch turns drag-and-drop gestures into assignment requests.
//
// A Coordinator tracks the single card being dragged, sends one
// SetAssignment per accepted drop and asks the board session to re-fetch
// afterwards, success or failure. The backend is the only source of truth:
// nothing is mutated locally before it answers.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/dispatchboard/core/audit"
	"github.com/kilianp07/dispatchboard/core/logger"
	coremetrics "github.com/kilianp07/dispatchboard/core/metrics"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/monitoring"
	"github.com/kilianp07/dispatchboard/core/schedule"
	"github.com/kilianp07/dispatchboard/core/slot"
	"github.com/kilianp07/dispatchboard/internal/eventbus"
)

// State of the gesture machine.
type State string

const (
	StateIdle       State = "idle"
	StateDragging   State = "dragging"
	StateRequesting State = "requesting"
)

// Session is the part of a board session the coordinator needs.
type Session interface {
	Tenant() string
	Snapshot() (model.Snapshot, bool)
	Refresh(ctx context.Context) error
}

// Result reports what a drop did. Err holds the assignment failure, if any;
// RefreshErr the failure of the re-fetch that followed.
type Result struct {
	Outcome     string
	WorkOrderID string
	From        slot.Key
	To          slot.Key
	Err         error
	RefreshErr  error
}

// Requested reports whether the drop reached the backend.
func (r Result) Requested() bool {
	return r.Outcome == coremetrics.OutcomeAssigned || r.Outcome == coremetrics.OutcomeFailed
}

// Snapshot of the gesture state for display.
type GestureState struct {
	State             State  `json:"state"`
	ActiveWorkOrderID string `json:"activeWorkOrderId,omitempty"`
	InFlight          int    `json:"inFlight"`
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	session  Session
	assigner schedule.Assigner
	notifier Notifier
	log      logger.Logger
	cfg      Config
	sink     coremetrics.MetricsSink
	audit    audit.Store
	bus      *eventbus.TypedBus[Event]
	now      func() time.Time

	mu       sync.Mutex
	state    State
	active   string
	gen      uint64
	inflight int
}

// NewCoordinator wires a coordinator to a board session and the backend that
// accepts assignments.
func NewCoordinator(session Session, assigner schedule.Assigner, notifier Notifier, log logger.Logger, cfg Config) (*Coordinator, error) {
	if session == nil {
		return nil, fmt.Errorf("session required")
	}
	if assigner == nil {
		return nil, fmt.Errorf("assigner required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch config: %w", err)
	}
	if notifier == nil {
		notifier = LogNotifier{Log: log}
	}
	return &Coordinator{
		session:  session,
		assigner: assigner,
		notifier: notifier,
		log:      log,
		cfg:      cfg,
		sink:     coremetrics.NopSink{},
		audit:    audit.NopStore{},
		bus:      eventbus.NewTypedBuffered[Event](cfg.EventBuffer),
		now:      time.Now,
		state:    StateIdle,
	}, nil
}

// SetMetricsSink replaces the sink receiving assignment events.
func (c *Coordinator) SetMetricsSink(s coremetrics.MetricsSink) {
	if s == nil {
		s = coremetrics.NopSink{}
	}
	c.sink = s
}

// SetAuditStore replaces the store receiving one record per drop.
func (c *Coordinator) SetAuditStore(s audit.Store) {
	if s == nil {
		s = audit.NopStore{}
	}
	c.audit = s
}

// SetClock overrides time.Now. Tests only.
func (c *Coordinator) SetClock(now func() time.Time) { c.now = now }

// Subscribe returns a channel of lifecycle events.
func (c *Coordinator) Subscribe() <-chan Event { return c.bus.Subscribe() }

func (c *Coordinator) Unsubscribe(ch <-chan Event) { c.bus.Unsubscribe(ch) }

// Close shuts the event bus down.
func (c *Coordinator) Close() { c.bus.Close() }

// Begin starts dragging id. A new gesture may begin while an earlier drop is
// still waiting on the backend.
func (c *Coordinator) Begin(id string) error {
	if id == "" {
		return ErrEmptyWorkOrder
	}
	c.mu.Lock()
	if c.state == StateDragging {
		c.mu.Unlock()
		return ErrGestureActive
	}
	c.state = StateDragging
	c.active = id
	c.gen++
	c.mu.Unlock()
	c.publish(Event{Type: EventGestureStarted, WorkOrderID: id})
	return nil
}

// Cancel ends the gesture without a target. It reports whether a gesture was
// active.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return false
	}
	id := c.active
	c.clearLocked()
	c.mu.Unlock()
	c.publish(Event{Type: EventGestureCancelled, WorkOrderID: id})
	return true
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns the work order being dragged, or "".
func (c *Coordinator) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Coordinator) Gesture() GestureState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GestureState{State: c.state, ActiveWorkOrderID: c.active, InFlight: c.inflight}
}

// clearLocked returns to Idle, or to Requesting when older drops are still
// in flight.
func (c *Coordinator) clearLocked() {
	c.active = ""
	if c.inflight > 0 {
		c.state = StateRequesting
		return
	}
	c.state = StateIdle
}

// Drop releases the active card over target. Drops that change nothing (same
// slot, card no longer on the board) end the gesture without contacting the
// backend. Every other drop issues exactly one SetAssignment and then a full
// re-fetch; the gesture is cleared before the re-fetch starts.
//
// The returned error is only set for misuse: no active gesture or a target
// that is not a slot key. Backend failures are reported in Result.Err and to
// the Notifier.
func (c *Coordinator) Drop(ctx context.Context, target string) (Result, error) {
	c.mu.Lock()
	if c.state != StateDragging {
		c.mu.Unlock()
		return Result{}, ErrNoGesture
	}
	id, gen := c.active, c.gen
	res := Result{WorkOrderID: id}

	to, err := slot.Decode(target)
	if err != nil {
		c.clearLocked()
		c.mu.Unlock()
		res.Outcome = coremetrics.OutcomeInvalid
		c.finish(ctx, res, target, 0)
		return res, fmt.Errorf("drop %s on %q: %w", id, target, err)
	}
	res.To = to

	wo, ok := c.lookup(id)
	if !ok {
		c.clearLocked()
		c.mu.Unlock()
		res.Outcome = coremetrics.OutcomeStale
		c.finish(ctx, res, target, 0)
		return res, nil
	}
	res.From = slot.Of(wo)
	if slot.Same(res.From, to) {
		c.clearLocked()
		c.mu.Unlock()
		res.Outcome = coremetrics.OutcomeNoop
		c.finish(ctx, res, target, 0)
		return res, nil
	}

	c.state = StateRequesting
	c.inflight++
	c.mu.Unlock()
	requestsInFlight.Inc()
	c.publish(Event{Type: EventAssignmentRequested, WorkOrderID: id, From: res.From.TechnicianID, To: to.TechnicianID, Target: target})

	start := c.now()
	err = c.request(ctx, id, to.TechnicianID)
	latency := c.now().Sub(start)
	requestsInFlight.Dec()

	c.mu.Lock()
	c.inflight--
	if c.gen == gen && c.state == StateRequesting {
		c.clearLocked()
	} else if c.state == StateRequesting && c.inflight == 0 {
		// a newer gesture already ended while this request was pending
		c.state = StateIdle
	}
	c.mu.Unlock()

	if err != nil {
		res.Outcome = coremetrics.OutcomeFailed
		res.Err = err
		assignmentLatency.WithLabelValues("failure").Observe(latency.Seconds())
		c.log.Warnf("assignment %s -> %s failed: %v", id, target, err)
		monitoring.CaptureException(err, map[string]string{"module": "dispatch", "tenant": c.session.Tenant(), "work_order": id})
		c.notifier.AssignmentFailed(ctx, Failure{
			Tenant:       c.session.Tenant(),
			WorkOrderID:  id,
			TechnicianID: to.TechnicianID,
			Target:       target,
			Err:          err,
		})
	} else {
		res.Outcome = coremetrics.OutcomeAssigned
		assignmentLatency.WithLabelValues("success").Observe(latency.Seconds())
		c.log.Infof("assigned %s to %s", id, target)
	}
	c.finish(ctx, res, target, latency)

	res.RefreshErr = c.refresh(ctx)
	if res.RefreshErr != nil {
		refreshAfterDropFail.Inc()
		c.log.Errorf("refresh after assignment of %s: %v", id, res.RefreshErr)
	}
	return res, nil
}

func (c *Coordinator) lookup(id string) (model.WorkOrder, bool) {
	snap, ok := c.session.Snapshot()
	if !ok {
		return model.WorkOrder{}, false
	}
	return snap.WorkOrder(id)
}

func (c *Coordinator) request(ctx context.Context, id, technicianID string) error {
	if d := c.cfg.requestTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	err := c.assigner.SetAssignment(ctx, c.session.Tenant(), id, technicianID)
	if err == nil {
		return nil
	}
	var ae *schedule.AssignmentError
	if errors.As(err, &ae) {
		return err
	}
	return &schedule.AssignmentError{WorkOrderID: id, TechnicianID: technicianID, Err: err}
}

// refresh runs even when the caller has gone away: the board must reflect
// what the backend now holds.
func (c *Coordinator) refresh(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if d := c.cfg.refreshTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return c.session.Refresh(ctx)
}

// finish records the outcome of a drop in metrics, the audit log and the bus.
func (c *Coordinator) finish(ctx context.Context, res Result, target string, latency time.Duration) {
	gesturesTotal.WithLabelValues(res.Outcome).Inc()
	now := c.now()
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	tenant := c.session.Tenant()
	if err := c.sink.RecordAssignment(coremetrics.AssignmentEvent{
		Tenant:         tenant,
		WorkOrderID:    res.WorkOrderID,
		FromTechnician: res.From.TechnicianID,
		ToTechnician:   res.To.TechnicianID,
		Target:         target,
		Outcome:        res.Outcome,
		Latency:        latency,
		Error:          errMsg,
		Time:           now,
	}); err != nil {
		c.log.Warnf("record assignment: %v", err)
	}
	if err := c.audit.Append(ctx, audit.Record{
		Timestamp:      now,
		Tenant:         tenant,
		WorkOrderID:    res.WorkOrderID,
		FromTechnician: res.From.TechnicianID,
		ToTechnician:   res.To.TechnicianID,
		Target:         target,
		Outcome:        res.Outcome,
		Error:          errMsg,
		LatencyMS:      latency.Milliseconds(),
	}); err != nil {
		c.log.Warnf("audit append: %v", err)
	}
	typ := EventDropIgnored
	switch res.Outcome {
	case coremetrics.OutcomeAssigned:
		typ = EventAssignmentSucceeded
	case coremetrics.OutcomeFailed:
		typ = EventAssignmentFailed
	}
	c.publish(Event{
		Type:        typ,
		WorkOrderID: res.WorkOrderID,
		From:        res.From.TechnicianID,
		To:          res.To.TechnicianID,
		Target:      target,
		Outcome:     res.Outcome,
		Err:         res.Err,
	})
}

func (c *Coordinator) publish(e Event) {
	e.Tenant = c.session.Tenant()
	if e.Time.IsZero() {
		e.Time = c.now()
	}
	c.bus.Publish(e)
}

package metrics

import (
	"errors"
	"testing"
)

type countingSink struct {
	assignments int
	refreshes   int
	err         error
}

func (c *countingSink) RecordAssignment(AssignmentEvent) error { c.assignments++; return c.err }
func (c *countingSink) RecordRefresh(RefreshEvent) error       { c.refreshes++; return nil }

type assignmentOnly struct{ n int }

func (a *assignmentOnly) RecordAssignment(AssignmentEvent) error { a.n++; return nil }

func TestMultiSinkForwardsOptionalRecorders(t *testing.T) {
	a, b := &countingSink{}, &assignmentOnly{}
	m := NewMultiSink(a, b)
	if err := m.RecordAssignment(AssignmentEvent{Outcome: OutcomeAssigned}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := m.RecordRefresh(RefreshEvent{Success: true}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := m.RecordNotification(NotificationEvent{}); err != nil {
		t.Fatalf("notification: %v", err)
	}
	if a.assignments != 1 || b.n != 1 || a.refreshes != 1 {
		t.Fatalf("unexpected counts a=%+v b=%d", a, b.n)
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	failing := &countingSink{err: errors.New("boom")}
	next := &assignmentOnly{}
	if err := NewMultiSink(failing, next).RecordAssignment(AssignmentEvent{}); err == nil {
		t.Fatal("expected error")
	}
	if next.n != 0 {
		t.Fatal("sink after failure should not be called")
	}
}

type closingSink struct {
	assignmentOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(&assignmentOnly{}, c)
	m.Close()
	if !c.closed {
		t.Fatalf("closer not closed")
	}
}

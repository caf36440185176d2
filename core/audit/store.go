package audit

import (
	"context"
	"time"
)

// Record captures one completed drop gesture and what the backend said about it.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	Tenant         string    `json:"tenant"`
	WorkOrderID    string    `json:"work_order_id"`
	FromTechnician string    `json:"from_technician,omitempty"`
	ToTechnician   string    `json:"to_technician,omitempty"`
	Target         string    `json:"target"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	LatencyMS      int64     `json:"latency_ms"`
}

// Query filters records. Zero values match everything; Limit keeps the most recent records.
type Query struct {
	WorkOrderID string
	Since       time.Time
	Limit       int
}

// Matches reports whether r passes the work order and time filters of q.
func (q Query) Matches(r Record) bool {
	if q.WorkOrderID != "" && r.WorkOrderID != q.WorkOrderID {
		return false
	}
	if !q.Since.IsZero() && r.Timestamp.Before(q.Since) {
		return false
	}
	return true
}

// Trim applies the limit, keeping the tail.
func (q Query) Trim(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists audit records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards everything.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// Package conflict decides whether jobs booked for one technician on one day
// overlap in time.
package conflict

import (
	"slices"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/status"
)

// Interval is a half-open [Start, End) span of a day.
type Interval struct {
	Start model.ClockTime
	End   model.ClockTime
}

// Empty reports whether the interval covers no time at all.
func (i Interval) Empty() bool { return i.End <= i.Start }

// Of returns the interval occupied by a work order.
func Of(w model.WorkOrder) Interval { return Interval{Start: w.Start, End: w.End} }

// Overlaps reports whether a and b share any instant. Touching endpoints do
// not overlap and empty intervals never overlap anything.
func Overlaps(a, b Interval) bool {
	if a.Empty() || b.Empty() {
		return false
	}
	return a.Start < b.End && a.End > b.Start
}

// HasConflict reports whether any two intervals overlap.
func HasConflict(intervals []Interval) bool {
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if Overlaps(intervals[i], intervals[j]) {
				return true
			}
		}
	}
	return false
}

// Pairs returns the index pairs (i < j) of every overlapping couple.
func Pairs(intervals []Interval) [][2]int {
	var out [][2]int
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if Overlaps(intervals[i], intervals[j]) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}

// Policy selects which work orders take part in conflict detection.
type Policy struct {
	ExcludeStatuses []model.Status `json:"exclude_statuses"`
}

// DefaultPolicy keeps every unschedulable job (completed, cancelled) out of
// conflict detection.
func DefaultPolicy() Policy {
	return Policy{ExcludeStatuses: status.Unschedulable()}
}

// Participates reports whether w counts toward conflicts under p.
func (p Policy) Participates(w model.WorkOrder) bool {
	return !slices.Contains(p.ExcludeStatuses, w.Status)
}

// Result is the outcome of Detect for one technician/day cell.
type Result struct {
	Conflict bool
	// WorkOrderIDs lists every work order involved in at least one overlap,
	// in input order.
	WorkOrderIDs []string
}

// Detect evaluates the participating work orders of a single cell.
func (p Policy) Detect(orders []model.WorkOrder) Result {
	var (
		ids       []string
		intervals []Interval
	)
	for _, w := range orders {
		if !p.Participates(w) {
			continue
		}
		ids = append(ids, w.ID)
		intervals = append(intervals, Of(w))
	}
	pairs := Pairs(intervals)
	if len(pairs) == 0 {
		return Result{}
	}
	involved := make([]bool, len(ids))
	for _, pr := range pairs {
		involved[pr[0]] = true
		involved[pr[1]] = true
	}
	res := Result{Conflict: true}
	for i, ok := range involved {
		if ok {
			res.WorkOrderIDs = append(res.WorkOrderIDs, ids[i])
		}
	}
	return res
}

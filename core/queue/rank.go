// Package queue orders the unassigned work-order queue shown to dispatchers.
package queue

import "github.com/kilianp07/dispatchboard/core/model"

// Rank returns the unassigned work orders of in, emergencies first. Within
// each partition the input order is kept; no other field is considered.
// The input slice is left untouched.
func Rank(in []model.WorkOrder) []model.WorkOrder {
	var urgent, rest []model.WorkOrder
	for _, w := range in {
		if w.Assigned() {
			continue
		}
		if w.IsEmergency() {
			urgent = append(urgent, w)
		} else {
			rest = append(rest, w)
		}
	}
	out := make([]model.WorkOrder, 0, len(urgent)+len(rest))
	out = append(out, urgent...)
	return append(out, rest...)
}

// Counts splits a ranked queue into its emergency and remaining sizes.
func Counts(ranked []model.WorkOrder) (emergency, other int) {
	for _, w := range ranked {
		if w.IsEmergency() {
			emergency++
		} else {
			other++
		}
	}
	return emergency, other
}

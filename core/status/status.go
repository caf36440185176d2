// Package status describes the work-order lifecycle as observed by the
// dispatch board. The board never drives transitions; it reads the current
// status to pick a visual treatment and to decide schedulability.
package status

import (
	"slices"

	"github.com/kilianp07/dispatchboard/core/model"
)

var lifecycle = []model.Status{
	model.StatusNew, model.StatusScheduled, model.StatusInProgress,
	model.StatusCompleted, model.StatusOnHold, model.StatusCancelled,
	model.StatusEmergency,
}

// Known reports whether s is part of the lifecycle.
func Known(s model.Status) bool { return slices.Contains(lifecycle, s) }

// Terminal reports whether no further transition is possible.
func Terminal(s model.Status) bool {
	return s == model.StatusCompleted || s == model.StatusCancelled
}

// Schedulable reports whether a work order still belongs on an active row.
// Unknown statuses are schedulable.
func Schedulable(s model.Status) bool { return !Terminal(s) }

// Unschedulable lists the known statuses that leave the active rows, in
// lifecycle order.
func Unschedulable() []model.Status {
	var out []model.Status
	for _, s := range lifecycle {
		if !Schedulable(s) {
			out = append(out, s)
		}
	}
	return out
}

// Treatment is the visual class of a work-order card.
type Treatment string

const (
	TreatmentDefault Treatment = "default"
	TreatmentActive  Treatment = "active"
	TreatmentDone    Treatment = "done"
	TreatmentMuted   Treatment = "muted"
	TreatmentUrgent  Treatment = "urgent"
)

// TreatmentOf picks the card treatment. Emergencies stand out unless the job
// is already over.
func TreatmentOf(w model.WorkOrder) Treatment {
	switch {
	case w.Status == model.StatusCancelled || w.Status == model.StatusOnHold:
		return TreatmentMuted
	case w.Status == model.StatusCompleted:
		return TreatmentDone
	case w.IsEmergency() || w.Status == model.StatusEmergency:
		return TreatmentUrgent
	case w.Status == model.StatusInProgress:
		return TreatmentActive
	default:
		return TreatmentDefault
	}
}

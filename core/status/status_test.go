package status

import (
	"testing"

	"github.com/kilianp07/dispatchboard/core/model"
)

func TestUnschedulable(t *testing.T) {
	got := Unschedulable()
	want := []model.Status{model.StatusCompleted, model.StatusCancelled}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v want %v", got, want)
		}
	}
	for _, s := range got {
		if Schedulable(s) {
			t.Errorf("%s listed but schedulable", s)
		}
	}
}

func TestTreatmentOf(t *testing.T) {
	checks := []struct {
		name string
		got  Treatment
		want Treatment
	}{
		{"scheduled", TreatmentOf(model.WorkOrder{Status: model.StatusScheduled}), TreatmentDefault},
		{"in progress", TreatmentOf(model.WorkOrder{Status: model.StatusInProgress}), TreatmentActive},
		{"completed emergency", TreatmentOf(model.WorkOrder{Status: model.StatusCompleted, Priority: model.PriorityEmergency}), TreatmentDone},
		{"emergency priority", TreatmentOf(model.WorkOrder{Status: model.StatusScheduled, Priority: model.PriorityEmergency}), TreatmentUrgent},
		{"emergency status", TreatmentOf(model.WorkOrder{Status: model.StatusEmergency}), TreatmentUrgent},
		{"cancelled", TreatmentOf(model.WorkOrder{Status: model.StatusCancelled}), TreatmentMuted},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %s want %s", c.name, c.got, c.want)
		}
	}
}

func TestSchedulable(t *testing.T) {
	if Schedulable(model.StatusCancelled) || Schedulable(model.StatusCompleted) {
		t.Fatal("terminal statuses are not schedulable")
	}
	if !Schedulable(model.StatusOnHold) || !Known(model.StatusOnHold) {
		t.Fatal("on-hold is schedulable")
	}
	if Known("archived") {
		t.Fatal("unknown status reported as known")
	}
	if !Schedulable("archived") {
		t.Fatal("unknown statuses stay on the active rows")
	}
}

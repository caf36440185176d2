package model

import "encoding/json"

// Status is the lifecycle state of a work order. Values outside the known set
// are preserved as reported by the backend.
type Status string

const (
	StatusNew        Status = "new"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on-hold"
	StatusCancelled  Status = "cancelled"
	StatusEmergency  Status = "emergency"
)

// Priority of a work order. Only PriorityEmergency affects queue ordering.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// WorkOrder is the scheduling projection of a job. An empty TechnicianID
// means the work order is unassigned; it is encoded as JSON null.
type WorkOrder struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customerName"`
	JobType      string    `json:"jobType"`
	Date         Date      `json:"date"`
	Start        ClockTime `json:"startTime"`
	End          ClockTime `json:"endTime"`
	Status       Status    `json:"status"`
	Priority     Priority  `json:"priority"`
	TechnicianID string    `json:"technicianId"`
}

func (w WorkOrder) Assigned() bool { return w.TechnicianID != "" }

func (w WorkOrder) IsEmergency() bool { return w.Priority == PriorityEmergency }

// Duration in minutes; zero for empty or inverted intervals.
func (w WorkOrder) Duration() int {
	if w.End <= w.Start {
		return 0
	}
	return int(w.End - w.Start)
}

func (w WorkOrder) MarshalJSON() ([]byte, error) {
	type alias WorkOrder
	var tech *string
	if w.TechnicianID != "" {
		id := w.TechnicianID
		tech = &id
	}
	return json.Marshal(struct {
		alias
		TechnicianID *string `json:"technicianId"`
	}{alias: alias(w), TechnicianID: tech})
}

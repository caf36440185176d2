package model

// Availability is the roster state of a technician as reported by the backend.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityOnJob     Availability = "on-job"
	AvailabilityOffDuty   Availability = "off-duty"
)

// Technician is a field worker that work orders can be assigned to.
// The dispatch core only reads technicians.
type Technician struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Avatar       string       `json:"avatar,omitempty"`
	Availability Availability `json:"availability"`
}

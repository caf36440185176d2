package grid

import (
	"fmt"
	"slices"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/queue"
)

// Grouping selects one of the three mobile day-view tabs.
type Grouping string

const (
	GroupAll          Grouping = "all"
	GroupUnassigned   Grouping = "unassigned"
	GroupByTechnician Grouping = "by-tech"
)

// ParseGrouping maps a tab name to a Grouping; empty means GroupAll.
func ParseGrouping(s string) (Grouping, error) {
	switch Grouping(s) {
	case "", GroupAll:
		return GroupAll, nil
	case GroupUnassigned, GroupByTechnician:
		return Grouping(s), nil
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// TechnicianDay is a technician with the jobs booked on one day.
type TechnicianDay struct {
	Technician  model.Technician  `json:"technician"`
	WorkOrders  []model.WorkOrder `json:"workOrders"`
	Conflict    bool              `json:"conflict"`
	ConflictIDs []string          `json:"conflictIds,omitempty"`
}

// DayView is the single-day projection behind the mobile tabs.
type DayView struct {
	Date         model.Date        `json:"date"`
	All          []model.WorkOrder `json:"all"`
	Unassigned   []model.WorkOrder `json:"unassigned"`
	ByTechnician []TechnicianDay   `json:"byTechnician"`
}

// Day re-projects the snapshot onto a single date. Technicians without a job
// that day are left out of ByTechnician.
func Day(orders []model.WorkOrder, techs []model.Technician, d model.Date, opts Options) DayView {
	g := Project(orders, techs, model.DateRange{From: d, To: d}, opts)
	v := DayView{Date: d, All: []model.WorkOrder{}, Unassigned: []model.WorkOrder{}, ByTechnician: []TechnicianDay{}}
	for _, w := range orders {
		if w.Date == d {
			v.All = append(v.All, w)
		}
	}
	slices.SortStableFunc(v.All, byStart)
	for _, w := range queue.Rank(orders) {
		if w.Date.IsZero() || w.Date == d {
			v.Unassigned = append(v.Unassigned, w)
		}
	}
	for _, r := range g.Rows {
		c := r.Cells[0]
		if len(c.WorkOrders) == 0 {
			continue
		}
		v.ByTechnician = append(v.ByTechnician, TechnicianDay{
			Technician:  r.Technician,
			WorkOrders:  c.WorkOrders,
			Conflict:    c.Conflict,
			ConflictIDs: c.ConflictIDs,
		})
	}
	return v
}

// Group returns the payload of the selected tab.
func (v DayView) Group(g Grouping) any {
	switch g {
	case GroupUnassigned:
		return v.Unassigned
	case GroupByTechnician:
		return v.ByTechnician
	default:
		return v.All
	}
}

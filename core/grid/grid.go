// Package grid projects a schedule snapshot onto the technician × day board
// used by both the week view and the mobile day view.
//
// Every function here is pure: the same inputs always yield structurally
// identical output, with no timestamps or counters.
package grid

import (
	"slices"

	"github.com/kilianp07/dispatchboard/core/conflict"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/queue"
	"github.com/kilianp07/dispatchboard/core/slot"
)

// Options tune a projection.
type Options struct {
	Policy conflict.Policy
	// SlotMinutes enables the time-slot breakdown of each cell when > 0.
	SlotMinutes int
	DayStart    model.ClockTime
	DayEnd      model.ClockTime
}

// DefaultOptions excludes cancelled jobs from conflicts and frames the day
// between 07:00 and 19:00 without time slots.
func DefaultOptions() Options {
	return Options{
		Policy:   conflict.DefaultPolicy(),
		DayStart: model.At(7, 0),
		DayEnd:   model.At(19, 0),
	}
}

// TimeSlot lists the work orders overlapping one slice of a cell's day.
type TimeSlot struct {
	Start        model.ClockTime `json:"start"`
	End          model.ClockTime `json:"end"`
	WorkOrderIDs []string        `json:"workOrderIds"`
}

// Cell is one technician/day slot of the board.
type Cell struct {
	Key          string            `json:"key"`
	TechnicianID string            `json:"technicianId"`
	Date         model.Date        `json:"date"`
	WorkOrders   []model.WorkOrder `json:"workOrders"`
	Conflict     bool              `json:"conflict"`
	ConflictIDs  []string          `json:"conflictIds,omitempty"`
	Slots        []TimeSlot        `json:"slots,omitempty"`
}

// Row is a technician and its cells, one per day of the range.
type Row struct {
	Technician model.Technician `json:"technician"`
	Cells      []Cell           `json:"cells"`
}

// Grid is the full projection of a snapshot over a date range.
type Grid struct {
	Range      model.DateRange   `json:"range"`
	Days       []model.Date      `json:"days"`
	Rows       []Row             `json:"rows"`
	Unassigned []model.WorkOrder `json:"unassigned"`
	// Unrostered holds assigned work orders whose technician is missing from
	// the roster.
	Unrostered []model.WorkOrder `json:"unrostered,omitempty"`
}

// Cell looks up the cell of a technician on a date.
func (g Grid) Cell(technicianID string, d model.Date) (Cell, bool) {
	for _, r := range g.Rows {
		if r.Technician.ID != technicianID {
			continue
		}
		for _, c := range r.Cells {
			if c.Date == d {
				return c, true
			}
		}
	}
	return Cell{}, false
}

// ConflictCount returns the number of cells flagged as conflicting.
func (g Grid) ConflictCount() int {
	n := 0
	for _, r := range g.Rows {
		for _, c := range r.Cells {
			if c.Conflict {
				n++
			}
		}
	}
	return n
}

// WeekRange returns the Monday-start week containing anchor.
func WeekRange(anchor model.Date) model.DateRange {
	mon := anchor.MondayOf()
	return model.DateRange{From: mon, To: mon.AddDays(6)}
}

// Week projects the week containing anchor.
func Week(orders []model.WorkOrder, techs []model.Technician, anchor model.Date, opts Options) Grid {
	return Project(orders, techs, WeekRange(anchor), opts)
}

// Project builds the technician × day grid for r. Rows follow roster order,
// cells are sorted by start time and unassigned work orders are ranked.
func Project(orders []model.WorkOrder, techs []model.Technician, r model.DateRange, opts Options) Grid {
	days := r.Days()
	col := make(map[model.Date]int, len(days))
	for i, d := range days {
		col[d] = i
	}
	row := make(map[string]int, len(techs))
	g := Grid{Range: r, Days: days, Rows: make([]Row, len(techs))}
	for i, t := range techs {
		row[t.ID] = i
		cells := make([]Cell, len(days))
		for j, d := range days {
			k := slot.Key{TechnicianID: t.ID, Date: d}
			cells[j] = Cell{Key: slot.Encode(k), TechnicianID: t.ID, Date: d, WorkOrders: []model.WorkOrder{}}
		}
		g.Rows[i] = Row{Technician: t, Cells: cells}
	}

	for _, w := range orders {
		if !w.Assigned() {
			continue
		}
		ri, ok := row[w.TechnicianID]
		if !ok {
			g.Unrostered = append(g.Unrostered, w)
			continue
		}
		ci, ok := col[w.Date]
		if !ok {
			continue
		}
		c := &g.Rows[ri].Cells[ci]
		c.WorkOrders = append(c.WorkOrders, w)
	}

	for i := range g.Rows {
		for j := range g.Rows[i].Cells {
			finishCell(&g.Rows[i].Cells[j], opts)
		}
	}
	g.Unassigned = queue.Rank(orders)
	return g
}

func finishCell(c *Cell, opts Options) {
	slices.SortStableFunc(c.WorkOrders, byStart)
	res := opts.Policy.Detect(c.WorkOrders)
	c.Conflict = res.Conflict
	c.ConflictIDs = res.WorkOrderIDs
	if opts.SlotMinutes > 0 {
		c.Slots = timeSlots(c.WorkOrders, opts)
	}
}

func byStart(a, b model.WorkOrder) int { return int(a.Start) - int(b.Start) }

func timeSlots(orders []model.WorkOrder, opts Options) []TimeSlot {
	step := model.ClockTime(opts.SlotMinutes)
	var out []TimeSlot
	for s := opts.DayStart; s < opts.DayEnd; s += step {
		ts := TimeSlot{Start: s, End: min(s+step, opts.DayEnd)}
		window := conflict.Interval{Start: ts.Start, End: ts.End}
		for _, w := range orders {
			if conflict.Overlaps(window, conflict.Of(w)) {
				ts.WorkOrderIDs = append(ts.WorkOrderIDs, w.ID)
			}
		}
		out = append(out, ts)
	}
	return out
}

package model

import (
	"errors"
	"fmt"
	"time"
)

// Snapshot is the full technician and work-order collection fetched from the
// backend at one point in time. Snapshots are replaced wholesale, never
// edited in place.
type Snapshot struct {
	Tenant      string       `json:"tenant"`
	Range       DateRange    `json:"range"`
	Technicians []Technician `json:"technicians"`
	WorkOrders  []WorkOrder  `json:"workOrders"`
	FetchedAt   time.Time    `json:"fetchedAt"`
}

func (s Snapshot) WorkOrder(id string) (WorkOrder, bool) {
	for _, w := range s.WorkOrders {
		if w.ID == id {
			return w, true
		}
	}
	return WorkOrder{}, false
}

func (s Snapshot) Technician(id string) (Technician, bool) {
	for _, t := range s.Technicians {
		if t.ID == id {
			return t, true
		}
	}
	return Technician{}, false
}

// Validate checks the fetch-layer contract: unique identifiers, same-day
// intervals with start before end, and a date on every assigned work order.
// Unassigned work orders without times are unscheduled and accepted.
func (s Snapshot) Validate() error {
	var errs []error
	techs := make(map[string]struct{}, len(s.Technicians))
	for i, t := range s.Technicians {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("technician %d: empty id", i))
			continue
		}
		if _, dup := techs[t.ID]; dup {
			errs = append(errs, fmt.Errorf("technician %s: duplicate id", t.ID))
		}
		techs[t.ID] = struct{}{}
	}
	orders := make(map[string]struct{}, len(s.WorkOrders))
	for i, w := range s.WorkOrders {
		if w.ID == "" {
			errs = append(errs, fmt.Errorf("work order %d: empty id", i))
			continue
		}
		if _, dup := orders[w.ID]; dup {
			errs = append(errs, fmt.Errorf("work order %s: duplicate id", w.ID))
		}
		orders[w.ID] = struct{}{}
		if !w.Assigned() && w.Start == 0 && w.End == 0 {
			continue
		}
		if !w.Start.Valid() || !w.End.Valid() {
			errs = append(errs, fmt.Errorf("work order %s: time outside day", w.ID))
		} else if w.Start >= w.End {
			errs = append(errs, fmt.Errorf("work order %s: start %s not before end %s", w.ID, w.Start, w.End))
		}
		if w.Assigned() && w.Date.IsZero() {
			errs = append(errs, fmt.Errorf("work order %s: assigned without date", w.ID))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSnapshot, errors.Join(errs...))
}

package grid

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/dispatchboard/core/status"
)

// TechnicianLoad is the booked time of one technician over a grid's range.
type TechnicianLoad struct {
	TechnicianID  string  `json:"technicianId"`
	Jobs          int     `json:"jobs"`
	BookedMinutes int     `json:"bookedMinutes"`
	Ratio         float64 `json:"ratio"`
}

// Utilization summarizes how evenly work is spread across the roster.
type Utilization struct {
	CapacityMinutes int              `json:"capacityMinutes"`
	Loads           []TechnicianLoad `json:"loads"`
	Mean            float64          `json:"mean"`
	StdDev          float64          `json:"stdDev"`
}

// Utilize computes per-technician load against workdayMinutes of capacity
// per day. Only schedulable jobs count.
func Utilize(g Grid, workdayMinutes int) Utilization {
	u := Utilization{CapacityMinutes: workdayMinutes * len(g.Days), Loads: make([]TechnicianLoad, 0, len(g.Rows))}
	ratios := make([]float64, 0, len(g.Rows))
	for _, r := range g.Rows {
		l := TechnicianLoad{TechnicianID: r.Technician.ID}
		for _, c := range r.Cells {
			for _, w := range c.WorkOrders {
				if !status.Schedulable(w.Status) {
					continue
				}
				l.Jobs++
				l.BookedMinutes += w.Duration()
			}
		}
		if u.CapacityMinutes > 0 {
			l.Ratio = float64(l.BookedMinutes) / float64(u.CapacityMinutes)
		}
		u.Loads = append(u.Loads, l)
		ratios = append(ratios, l.Ratio)
	}
	switch len(ratios) {
	case 0:
	case 1:
		u.Mean = ratios[0]
	default:
		u.Mean, u.StdDev = stat.MeanStdDev(ratios, nil)
	}
	return u
}

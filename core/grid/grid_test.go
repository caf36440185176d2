package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dispatchboard/core/conflict"
	"github.com/kilianp07/dispatchboard/core/model"
)

var (
	monday  = model.MustParseDate("2024-06-03")
	tuesday = monday.AddDays(1)
	roster  = []model.Technician{{ID: "T1", Name: "Ada"}, {ID: "T2", Name: "Bo"}}
)

func wo(id, tech string, d model.Date, start, end string) model.WorkOrder {
	return model.WorkOrder{
		ID:           id,
		TechnicianID: tech,
		Date:         d,
		Start:        model.MustParseClockTime(start),
		End:          model.MustParseClockTime(end),
		Status:       model.StatusScheduled,
		Priority:     model.PriorityNormal,
	}
}

func ids(ws []model.WorkOrder) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.ID)
	}
	return out
}

func TestWeekRangeStartsMonday(t *testing.T) {
	for _, anchor := range []string{"2024-06-03", "2024-06-05", "2024-06-09"} {
		r := WeekRange(model.MustParseDate(anchor))
		assert.Equal(t, monday, r.From, anchor)
		assert.Equal(t, model.MustParseDate("2024-06-09"), r.To, anchor)
		assert.Len(t, r.Days(), 7)
	}
}

func TestProjectInitialScenario(t *testing.T) {
	w2 := model.WorkOrder{ID: "W2", Priority: model.PriorityEmergency, Status: model.StatusNew}
	orders := []model.WorkOrder{wo("W1", "T1", monday, "09:00", "10:00"), w2}

	g := Week(orders, roster, monday, DefaultOptions())
	require.Len(t, g.Rows, 2)
	require.Len(t, g.Days, 7)

	c, ok := g.Cell("T1", monday)
	require.True(t, ok)
	assert.Equal(t, "T1-2024-06-03", c.Key)
	assert.Equal(t, []string{"W1"}, ids(c.WorkOrders))
	assert.False(t, c.Conflict)
	assert.Equal(t, []string{"W2"}, ids(g.Unassigned))

	for _, r := range g.Rows {
		for _, cell := range r.Cells {
			for _, w := range cell.WorkOrders {
				if w.ID == "W2" {
					t.Fatalf("unassigned work order rendered in %s", cell.Key)
				}
			}
		}
	}
}

func TestProjectIsPure(t *testing.T) {
	orders := []model.WorkOrder{
		wo("W3", "T1", monday, "10:30", "11:30"),
		wo("W1", "T1", monday, "09:00", "11:00"),
		wo("W4", "T2", tuesday, "08:00", "09:00"),
		{ID: "W5", Priority: model.PriorityNormal},
	}
	opts := DefaultOptions()
	opts.SlotMinutes = 60
	a := Week(orders, roster, monday, opts)
	b := Week(orders, roster, monday, opts)
	assert.Equal(t, a, b)
	assert.Equal(t, "W3", orders[0].ID, "input must not be reordered")
}

func TestProjectSortsAndFlagsConflicts(t *testing.T) {
	orders := []model.WorkOrder{
		wo("W3", "T1", monday, "10:30", "11:30"),
		wo("W1", "T1", monday, "09:00", "11:00"),
		wo("W2", "T1", monday, "11:30", "12:00"),
		wo("W4", "T2", monday, "09:00", "10:00"),
		wo("W5", "T2", monday, "10:00", "11:00"),
	}
	g := Week(orders, roster, monday, DefaultOptions())

	c, _ := g.Cell("T1", monday)
	assert.Equal(t, []string{"W1", "W3", "W2"}, ids(c.WorkOrders))
	assert.True(t, c.Conflict)
	assert.Equal(t, []string{"W1", "W3"}, c.ConflictIDs)

	c, _ = g.Cell("T2", monday)
	assert.False(t, c.Conflict, "touching jobs do not conflict")
	assert.Equal(t, 1, g.ConflictCount())
}

func TestProjectCancelledPolicy(t *testing.T) {
	cancelled := wo("W2", "T1", monday, "09:30", "10:30")
	cancelled.Status = model.StatusCancelled
	orders := []model.WorkOrder{wo("W1", "T1", monday, "09:00", "10:00"), cancelled}

	c, _ := Week(orders, roster, monday, DefaultOptions()).Cell("T1", monday)
	assert.False(t, c.Conflict)
	assert.Len(t, c.WorkOrders, 2, "cancelled jobs stay visible")

	opts := DefaultOptions()
	opts.Policy = conflict.Policy{}
	c, _ = Week(orders, roster, monday, opts).Cell("T1", monday)
	assert.True(t, c.Conflict)
}

func TestProjectUnrosteredAndOutOfRange(t *testing.T) {
	orders := []model.WorkOrder{
		wo("W1", "ghost", monday, "09:00", "10:00"),
		wo("W2", "T1", monday.AddDays(7), "09:00", "10:00"),
	}
	g := Week(orders, roster, monday, DefaultOptions())
	assert.Equal(t, []string{"W1"}, ids(g.Unrostered))
	for _, r := range g.Rows {
		for _, c := range r.Cells {
			assert.Empty(t, c.WorkOrders)
		}
	}
}

func TestTimeSlots(t *testing.T) {
	opts := DefaultOptions()
	opts.SlotMinutes = 60
	opts.DayStart = model.At(8, 0)
	opts.DayEnd = model.At(11, 0)
	orders := []model.WorkOrder{wo("W1", "T1", monday, "08:30", "09:30"), wo("W2", "T1", monday, "10:00", "10:15")}

	c, _ := Week(orders, roster, monday, opts).Cell("T1", monday)
	require.Len(t, c.Slots, 3)
	assert.Equal(t, []string{"W1"}, c.Slots[0].WorkOrderIDs)
	assert.Equal(t, []string{"W1"}, c.Slots[1].WorkOrderIDs)
	assert.Equal(t, []string{"W2"}, c.Slots[2].WorkOrderIDs)
	assert.Equal(t, model.At(11, 0), c.Slots[2].End)
}

func TestDayGroupings(t *testing.T) {
	orders := []model.WorkOrder{
		wo("W1", "T1", monday, "13:00", "14:00"),
		wo("W2", "T1", tuesday, "09:00", "10:00"),
		{ID: "W3", Date: monday, Start: model.At(8, 0), End: model.At(9, 0), Priority: model.PriorityNormal},
		{ID: "W4", Priority: model.PriorityEmergency},
		{ID: "W5", Date: tuesday, Priority: model.PriorityEmergency},
	}
	v := Day(orders, roster, monday, DefaultOptions())

	assert.Equal(t, []string{"W3", "W1"}, ids(v.All))
	assert.Equal(t, []string{"W4", "W3"}, ids(v.Unassigned))
	require.Len(t, v.ByTechnician, 1, "technicians without jobs are suppressed")
	assert.Equal(t, "T1", v.ByTechnician[0].Technician.ID)
	assert.Equal(t, []string{"W1"}, ids(v.ByTechnician[0].WorkOrders))

	assert.Equal(t, v.ByTechnician, v.Group(GroupByTechnician))
	assert.Equal(t, v.All, v.Group(GroupAll))

	_, err := ParseGrouping("kanban")
	assert.Error(t, err)
	g, err := ParseGrouping("")
	require.NoError(t, err)
	assert.Equal(t, GroupAll, g)
}

func TestUtilize(t *testing.T) {
	orders := []model.WorkOrder{
		wo("W1", "T1", monday, "08:00", "12:00"),
		wo("W2", "T1", tuesday, "08:00", "12:00"),
	}
	cancelled := wo("W3", "T2", monday, "08:00", "16:00")
	cancelled.Status = model.StatusCancelled
	done := wo("W4", "T2", tuesday, "08:00", "10:00")
	done.Status = model.StatusCompleted
	orders = append(orders, cancelled, done)

	g := Project(orders, roster, model.DateRange{From: monday, To: tuesday}, DefaultOptions())
	u := Utilize(g, 480)
	assert.Equal(t, 960, u.CapacityMinutes)
	require.Len(t, u.Loads, 2)
	assert.Equal(t, 480, u.Loads[0].BookedMinutes)
	assert.InDelta(t, 0.5, u.Loads[0].Ratio, 1e-9)
	assert.Equal(t, 0, u.Loads[1].Jobs)
	assert.InDelta(t, 0.25, u.Mean, 1e-9)
	assert.Greater(t, u.StdDev, 0.0)
}

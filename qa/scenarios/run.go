package scenarios

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/kilianp07/dispatchboard/core/audit"
	"github.com/kilianp07/dispatchboard/core/board"
	"github.com/kilianp07/dispatchboard/core/dispatch"
	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/slot"
	"github.com/kilianp07/dispatchboard/infra/backend/memory"
	"github.com/kilianp07/dispatchboard/infra/logger"
)

// Report is what a replay observed.
type Report struct {
	Name     string
	Outcomes []string
	Calls    int
	Failures int
	Grid     grid.Grid
	Audit    []audit.Record
	// Mismatches lists every expectation that did not hold.
	Mismatches []string
}

// Err joins the mismatches, nil when the scenario passed.
func (r Report) Err() error {
	if len(r.Mismatches) == 0 {
		return nil
	}
	return fmt.Errorf("scenario %s: %s", r.Name, strings.Join(r.Mismatches, "; "))
}

type failureCounter struct {
	mu sync.Mutex
	n  int
}

func (f *failureCounter) AssignmentFailed(context.Context, dispatch.Failure) {
	f.mu.Lock()
	f.n++
	f.mu.Unlock()
}

func (f *failureCounter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Run replays sc against an in-memory backend. The returned error covers
// setup problems only; expectation mismatches are in the Report.
func Run(ctx context.Context, sc *Scenario, log logger.Logger) (Report, error) {
	rep := Report{Name: sc.Name}
	if log == nil {
		log = logger.NopLogger{}
	}
	anchor, err := sc.anchor()
	if err != nil {
		return rep, err
	}
	techs, orders, err := sc.Fixture.Model()
	if err != nil {
		return rep, err
	}
	be := memory.New(techs, orders)
	for id, reason := range sc.Reject {
		be.Reject(id, reason)
	}

	b, err := board.New(sc.Tenant, be, sc.Board, log)
	if err != nil {
		return rep, err
	}
	defer b.Close()
	if err := b.Load(ctx, grid.WeekRange(anchor)); err != nil {
		return rep, fmt.Errorf("initial load: %w", err)
	}

	failures := &failureCounter{}
	coord, err := dispatch.NewCoordinator(b, be, dispatch.Notifiers{failures, dispatch.LogNotifier{Log: log}}, log, dispatch.Config{})
	if err != nil {
		return rep, err
	}
	defer coord.Close()
	store := audit.NewMemoryStore()
	coord.SetAuditStore(store)

	for i, st := range sc.Steps {
		if st.Reject != "" {
			id, reason, _ := strings.Cut(st.Reject, ":")
			be.Reject(strings.TrimSpace(id), strings.TrimSpace(reason))
		}
		outcome, errText := runStep(ctx, coord, st)
		rep.Outcomes = append(rep.Outcomes, outcome)
		if want := st.Expect.Outcome; want != "" && want != outcome {
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("step %d: outcome %q, want %q", i+1, outcome, want))
		}
		switch want := st.Expect.Error; {
		case want == "" && errText != "" && st.Expect.Outcome == "":
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("step %d: unexpected error %s", i+1, errText))
		case want != "" && !strings.Contains(errText, want):
			rep.Mismatches = append(rep.Mismatches, fmt.Sprintf("step %d: error %q does not contain %q", i+1, errText, want))
		}
	}

	rep.Calls = len(be.Calls())
	rep.Failures = failures.count()
	if rep.Audit, err = store.Query(ctx, audit.Query{}); err != nil {
		return rep, err
	}
	if rep.Grid, err = b.Week(anchor); err != nil {
		return rep, err
	}
	rep.Mismatches = append(rep.Mismatches, check(sc.Expected, rep, coord)...)
	return rep, nil
}

// runStep returns the drop outcome, or the gesture event name, and the
// error text if any.
func runStep(ctx context.Context, coord *dispatch.Coordinator, st Step) (string, string) {
	outcome := ""
	if st.Begin != "" {
		if err := coord.Begin(st.Begin); err != nil {
			return "begin_failed", err.Error()
		}
		outcome = string(dispatch.EventGestureStarted)
	}
	if st.Cancel {
		coord.Cancel()
		return string(dispatch.EventGestureCancelled), ""
	}
	if st.Drop == "" {
		return outcome, ""
	}
	res, err := coord.Drop(ctx, st.Drop)
	var msgs []string
	for _, e := range []error{err, res.Err, res.RefreshErr} {
		if e != nil {
			msgs = append(msgs, e.Error())
		}
	}
	if res.Outcome == "" && errors.Is(err, dispatch.ErrNoGesture) {
		return "no_gesture", strings.Join(msgs, "; ")
	}
	return res.Outcome, strings.Join(msgs, "; ")
}

func check(exp Expected, rep Report, coord *dispatch.Coordinator) []string {
	var out []string
	if exp.Calls != nil && *exp.Calls != rep.Calls {
		out = append(out, fmt.Sprintf("backend calls %d, want %d", rep.Calls, *exp.Calls))
	}
	if exp.Failures != nil && *exp.Failures != rep.Failures {
		out = append(out, fmt.Sprintf("failure notifications %d, want %d", rep.Failures, *exp.Failures))
	}
	if exp.State != "" && string(coord.State()) != exp.State {
		out = append(out, fmt.Sprintf("gesture state %s, want %s", coord.State(), exp.State))
	}
	keys := make([]string, 0, len(exp.Cells))
	for k := range exp.Cells {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		got, err := cellIDs(rep.Grid, k)
		if err != nil {
			out = append(out, err.Error())
			continue
		}
		if want := exp.Cells[k]; !slices.Equal(got, want) && !(len(got) == 0 && len(want) == 0) {
			out = append(out, fmt.Sprintf("cell %s holds %v, want %v", k, got, want))
		}
	}
	if exp.Conflicts != nil {
		got := conflictKeys(rep.Grid)
		want := slices.Sorted(slices.Values(exp.Conflicts))
		if !slices.Equal(got, want) {
			out = append(out, fmt.Sprintf("conflicting cells %v, want %v", got, want))
		}
	}
	if exp.Unassigned != nil {
		got := ids(rep.Grid.Unassigned)
		if !slices.Equal(got, exp.Unassigned) {
			out = append(out, fmt.Sprintf("unassigned queue %v, want %v", got, exp.Unassigned))
		}
	}
	return out
}

func cellIDs(g grid.Grid, key string) ([]string, error) {
	k, err := slot.Decode(key)
	if err != nil {
		return nil, err
	}
	if k.IsUnassigned() {
		return nil, fmt.Errorf("cell %s: use unassigned for the queue", key)
	}
	c, ok := g.Cell(k.TechnicianID, k.Date)
	if !ok {
		return nil, fmt.Errorf("cell %s not in grid", key)
	}
	return ids(c.WorkOrders), nil
}

func conflictKeys(g grid.Grid) []string {
	out := []string{}
	for _, r := range g.Rows {
		for _, c := range r.Cells {
			if c.Conflict {
				out = append(out, c.Key)
			}
		}
	}
	slices.Sort(out)
	return out
}

func ids(ws []model.WorkOrder) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

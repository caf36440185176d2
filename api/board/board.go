package board

import (
	"errors"
	"fmt"
	"net/http"

	coreboard "github.com/kilianp07/dispatchboard/core/board"
	"github.com/kilianp07/dispatchboard/core/grid"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/core/queue"
	"github.com/kilianp07/dispatchboard/core/schedule"
	"github.com/kilianp07/dispatchboard/core/status"
)

type weekResponse struct {
	View        schedule.View    `json:"view"`
	Grid        grid.Grid        `json:"grid"`
	Utilization grid.Utilization `json:"utilization"`
	// Treatments maps each work order on the week to its card style.
	Treatments map[string]status.Treatment `json:"treatments"`
}

type dayResponse struct {
	Date  model.Date    `json:"date"`
	Group grid.Grouping `json:"group"`
	Items any           `json:"items"`
}

type queueResponse struct {
	Emergency  int                         `json:"emergency"`
	Other      int                         `json:"other"`
	WorkOrders []model.WorkOrder           `json:"workOrders"`
	Treatments map[string]status.Treatment `json:"treatments"`
}

func treatments(orders ...[]model.WorkOrder) map[string]status.Treatment {
	out := make(map[string]status.Treatment)
	for _, list := range orders {
		for _, w := range list {
			out[w.ID] = status.TreatmentOf(w)
		}
	}
	return out
}

func weekTreatments(g grid.Grid) map[string]status.Treatment {
	lists := [][]model.WorkOrder{g.Unassigned, g.Unrostered}
	for _, row := range g.Rows {
		for _, c := range row.Cells {
			lists = append(lists, c.WorkOrders)
		}
	}
	return treatments(lists...)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "ok", nil)
}

// dateParam parses the named query parameter, defaulting to today.
func (h *Handler) dateParam(r *http.Request, name string) (model.Date, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return model.DateOf(h.now()), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

// ensure loads the week containing d. Fetch failures are reported by the
// projection that follows.
func (h *Handler) ensure(r *http.Request, d model.Date) {
	if err := h.board.Ensure(r.Context(), grid.WeekRange(d)); err != nil {
		h.log.Warnf("load week of %s: %v", d, err)
	}
}

func (h *Handler) projectionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, coreboard.ErrUnavailable) {
		h.unavailable(w, r, err)
		return
	}
	h.internalServerError(w, r, err)
}

func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	anchor, err := h.dateParam(r, "anchor")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	h.ensure(r, anchor)
	g, err := h.board.Week(anchor)
	if err != nil {
		h.projectionError(w, r, err)
		return
	}
	u, err := h.board.Utilization(anchor)
	if err != nil {
		h.projectionError(w, r, err)
		return
	}
	h.successResponse(w, r, "week loaded", weekResponse{View: h.board.View(), Grid: g, Utilization: u, Treatments: weekTreatments(g)})
}

func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	d, err := h.dateParam(r, "date")
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	group, err := grid.ParseGrouping(r.URL.Query().Get("group"))
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	h.ensure(r, d)
	v, err := h.board.Day(d)
	if err != nil {
		h.projectionError(w, r, err)
		return
	}
	h.successResponse(w, r, "day loaded", dayResponse{Date: d, Group: group, Items: v.Group(group)})
}

func (h *Handler) GetUnassigned(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.board.Unassigned()
	if err != nil {
		h.projectionError(w, r, err)
		return
	}
	emergency, other := queue.Counts(ranked)
	h.successResponse(w, r, "queue loaded", queueResponse{Emergency: emergency, Other: other, WorkOrders: ranked, Treatments: treatments(ranked)})
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "", h.board.View())
}

// Refresh is the manual retry behind the error prompt.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	err := h.board.Refresh(r.Context())
	switch {
	case errors.Is(err, coreboard.ErrNoRange):
		h.conflict(w, r, err)
	case err != nil:
		h.unavailable(w, r, err)
	default:
		h.successResponse(w, r, "refreshed", h.board.View())
	}
}

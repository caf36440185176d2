package board

import (
	"errors"
	"net/http"

	"github.com/kilianp07/dispatchboard/core/dispatch"
)

type beginRequest struct {
	WorkOrderID string `json:"workOrderId" validate:"required"`
}

type dropRequest struct {
	Target string `json:"target" validate:"required"`
}

type dropResponse struct {
	Outcome      string                `json:"outcome"`
	WorkOrderID  string                `json:"workOrderId"`
	From         string                `json:"from,omitempty"`
	To           string                `json:"to,omitempty"`
	Error        string                `json:"error,omitempty"`
	RefreshError string                `json:"refreshError,omitempty"`
	Gesture      dispatch.GestureState `json:"gesture"`
}

func (h *Handler) GetGesture(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "", h.gestures.Gesture())
}

func (h *Handler) BeginGesture(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.gestures.Begin(req.WorkOrderID); err != nil {
		if errors.Is(err, dispatch.ErrGestureActive) {
			h.conflict(w, r, err)
			return
		}
		h.badRequest(w, r, err)
		return
	}
	h.successResponse(w, r, "gesture started", h.gestures.Gesture())
}

func (h *Handler) DropGesture(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := h.readAndValidate(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	res, err := h.gestures.Drop(r.Context(), req.Target)
	switch {
	case errors.Is(err, dispatch.ErrNoGesture):
		h.conflict(w, r, err)
		return
	case errors.Is(err, dispatch.ErrMalformedKey):
		h.badRequest(w, r, err)
		return
	case err != nil:
		h.internalServerError(w, r, err)
		return
	}

	out := dropResponse{
		Outcome:     res.Outcome,
		WorkOrderID: res.WorkOrderID,
		Gesture:     h.gestures.Gesture(),
	}
	if res.Requested() {
		out.From = res.From.String()
		out.To = res.To.String()
	}
	if res.RefreshErr != nil {
		out.RefreshError = res.RefreshErr.Error()
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		h.writeJSON(w, r, http.StatusBadGateway, Response{Success: false, Message: "assignment failed", Data: out})
		return
	}
	h.successResponse(w, r, res.Outcome, out)
}

func (h *Handler) CancelGesture(w http.ResponseWriter, r *http.Request) {
	msg := "no gesture"
	if h.gestures.Cancel() {
		msg = "gesture cancelled"
	}
	h.successResponse(w, r, msg, h.gestures.Gesture())
}

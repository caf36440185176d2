package board

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/dispatchboard/core/audit"
)

// GetAudit lists assignment attempts, filtered by work_order, since
// (RFC 3339) and limit.
func (h *Handler) GetAudit(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{WorkOrderID: r.URL.Query().Get("work_order")}
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			h.badRequest(w, r, fmt.Errorf("invalid since: %w", err))
			return
		}
		q.Since = t
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.badRequest(w, r, fmt.Errorf("invalid limit %q", s))
			return
		}
		q.Limit = n
	}
	recs, err := h.audit.Query(r.Context(), q)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if recs == nil {
		recs = []audit.Record{}
	}
	h.successResponse(w, r, "", recs)
}

package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) guardianSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	guardianID, err := strconv.ParseInt(chi.URLParam(r, "guardian_id"), 10, 64)
	if err != nil {
		ErrorBadRequest(w, "guardian_id must be an integer")
		return
	}

	if err := h.authz.CanAccessGuardian(r.Context(), id, guardianID); err != nil {
		ErrorForbidden(w, "Forbidden")
		return
	}

	from, to, err := SummaryPeriod(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	summary, err := h.status.GuardianSummary(r.Context(), guardianID, from, to)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Payment summary", summary)
}

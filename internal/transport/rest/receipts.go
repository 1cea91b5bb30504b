package rest

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"schoolpay/internal/domain"
)

func (h *Handler) paymentReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	paymentID := chi.URLParam(r, "payment_id")
	studentID, err := h.status.StudentOfPayment(r.Context(), paymentID)
	if err != nil {
		ErrorFromService(w, err)
		return
	}
	if !h.requireStudentAccess(w, r, id, studentID) {
		return
	}

	url, err := h.status.ReceiptByPayment(r.Context(), paymentID)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Receipt", map[string]interface{}{
		"payment_id":  paymentID,
		"receipt_url": url,
	})
}

func (h *Handler) debtReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	debtID, err := strconv.ParseInt(chi.URLParam(r, "debt_id"), 10, 64)
	if err != nil {
		ErrorBadRequest(w, "debt_id must be an integer")
		return
	}

	studentID, err := h.status.StudentOfDebtPayment(r.Context(), debtID)
	if err != nil {
		ErrorFromService(w, err)
		return
	}
	if !h.requireStudentAccess(w, r, id, studentID) {
		return
	}

	url, err := h.status.ReceiptByDebt(r.Context(), debtID)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Receipt", map[string]interface{}{
		"debt_id":     debtID,
		"receipt_url": url,
	})
}

// regenerateReceipt is a staff-only repair switch for corrupted or lost
// artifacts.
func (h *Handler) regenerateReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	if !domain.IsStaffRole(id.Role) {
		ErrorForbidden(w, "Forbidden")
		return
	}

	paymentID := chi.URLParam(r, "payment_id")
	url, err := h.receipts.Regenerate(r.Context(), paymentID)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Receipt regenerated", map[string]interface{}{
		"payment_id":  paymentID,
		"receipt_url": url,
	})
}

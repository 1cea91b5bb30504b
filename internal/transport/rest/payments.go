package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createIntent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	req, err := ValidateIntentRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	if !h.requireStudentAccess(w, r, id, req.StudentID) {
		return
	}

	result, err := h.intents.Create(r.Context(), id.UserID, req.StudentID, req.DebtID, req.Amount)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Payment intent created", map[string]interface{}{
		"provider_intent_id": result.ProviderIntentID,
		"client_secret":      result.ClientSecret,
	})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	req, err := ValidateConfirmRequest(r)
	if err != nil {
		ErrorBadRequest(w, err.Error())
		return
	}

	if !h.requireStudentAccess(w, r, id, req.StudentID) {
		return
	}

	result, err := h.confirms.Confirm(r.Context(), req.ProviderIntentID, req.StudentID, req.DebtID, req.PaymentMethod)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	message := "Payment confirmed"
	if result.AlreadyConfirmed {
		message = "Payment already confirmed"
	}

	Success(w, message, map[string]interface{}{
		"payment_id":          result.PaymentID,
		"debt_status":         result.DebtStatus,
		"receipt_status":      result.ReceiptStatus,
		"receipt_url":         result.ReceiptURL,
		"notification_status": result.NotificationStatus,
	})
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	ref := chi.URLParam(r, "provider_intent_id")
	if ref == "" {
		ErrorBadRequest(w, "provider_intent_id is required")
		return
	}

	// A recorded payment pins the reference to a student; until then any
	// authenticated caller may poll the processor for it.
	studentID, found, err := h.status.OwnerOfReference(r.Context(), ref)
	if err != nil {
		ErrorFromService(w, err)
		return
	}
	if found && !h.requireStudentAccess(w, r, id, studentID) {
		return
	}

	status, err := h.status.Status(r.Context(), ref)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Payment status", map[string]interface{}{
		"provider_intent_id": ref,
		"status":             status,
	})
}

func (h *Handler) notifyPayment(w http.ResponseWriter, r *http.Request) {
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

	status, err := h.notify.NotifyGuardian(r.Context(), paymentID)
	if err != nil {
		ErrorFromService(w, err)
		return
	}

	Success(w, "Notification processed", map[string]interface{}{
		"payment_id": paymentID,
		"status":     status,
	})
}

package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schoolpay/internal/domain"
	"schoolpay/internal/service"
	"schoolpay/internal/transport/auth"
)

type IntentStarter interface {
	Create(ctx context.Context, callerID, studentID, debtID int64, amount float64) (*service.IntentResult, error)
}

type PaymentConfirmer interface {
	Confirm(ctx context.Context, providerIntentID string, studentID int64, debtID *int64, method string) (*service.ConfirmResult, error)
}

type ReceiptRegenerator interface {
	Regenerate(ctx context.Context, paymentID string) (string, error)
}

type GuardianNotifier interface {
	NotifyGuardian(ctx context.Context, paymentID string) (string, error)
}

type StatusProvider interface {
	Status(ctx context.Context, providerIntentID string) (string, error)
	OwnerOfReference(ctx context.Context, providerIntentID string) (int64, bool, error)
	ReceiptByPayment(ctx context.Context, paymentID string) (string, error)
	ReceiptByDebt(ctx context.Context, debtID int64) (string, error)
	StudentOfPayment(ctx context.Context, paymentID string) (int64, error)
	StudentOfDebtPayment(ctx context.Context, debtID int64) (int64, error)
	GuardianSummary(ctx context.Context, guardianID int64, from, to time.Time) (*domain.PaymentSummary, error)
}

type StudentAuthorizer interface {
	CanAccessStudent(ctx context.Context, id auth.Identity, studentID int64) error
	CanAccessGuardian(ctx context.Context, id auth.Identity, guardianID int64) error
}

type Handler struct {
	intents  IntentStarter
	confirms PaymentConfirmer
	receipts ReceiptRegenerator
	notify   GuardianNotifier
	status   StatusProvider
	authz    StudentAuthorizer
}

func NewHandler(
	intents IntentStarter,
	confirms PaymentConfirmer,
	receipts ReceiptRegenerator,
	notify GuardianNotifier,
	status StatusProvider,
	authz StudentAuthorizer,
) *Handler {
	return &Handler{
		intents:  intents,
		confirms: confirms,
		receipts: receipts,
		notify:   notify,
		status:   status,
		authz:    authz,
	}
}

// Routes mounts the payment pipeline endpoints. Everything here sits behind
// the bearer middleware; /health and /ws are wired separately in main.
func (h *Handler) Routes(r chi.Router) {
	r.Use(middleware.Recoverer)

	r.Route("/payments", func(r chi.Router) {
		r.Post("/intent", h.createIntent)
		r.Post("/confirm", h.confirmPayment)
		r.Get("/status/{provider_intent_id}", h.paymentStatus)
		r.Get("/{payment_id}/receipt", h.paymentReceipt)
		r.Post("/{payment_id}/receipt/regenerate", h.regenerateReceipt)
		r.Post("/{payment_id}/notify", h.notifyPayment)
	})

	r.Get("/debts/{debt_id}/receipt", h.debtReceipt)
	r.Get("/guardians/{guardian_id}/payment-summary", h.guardianSummary)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := auth.GetIdentity(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return auth.Identity{}, false
	}
	return id, true
}

func (h *Handler) requireStudentAccess(w http.ResponseWriter, r *http.Request, id auth.Identity, studentID int64) bool {
	if err := h.authz.CanAccessStudent(r.Context(), id, studentID); err != nil {
		ErrorForbidden(w, "Forbidden")
		return false
	}
	return true
}

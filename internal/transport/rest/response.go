package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"schoolpay/internal/domain"
)

type APIResponse struct {
	ErrorCode int         `json:"error_code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func Response(w http.ResponseWriter, message string, data interface{}, errorCode int, status string, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	response := APIResponse{
		ErrorCode: errorCode,
		Status:    status,
		Message:   message,
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("[HTTP] write response error: %v", err)
	}
}

func Success(w http.ResponseWriter, message string, data interface{}) {
	Response(w, message, data, 0, "success", http.StatusOK)
}

func Error(w http.ResponseWriter, message string, errorCode int, httpStatus int) {
	Response(w, message, nil, errorCode, "error", httpStatus)
}

func ErrorBadRequest(w http.ResponseWriter, message string) {
	Error(w, message, 400, http.StatusBadRequest)
}

func ErrorUnauthorized(w http.ResponseWriter, message string) {
	Error(w, message, 401, http.StatusUnauthorized)
}

func ErrorForbidden(w http.ResponseWriter, message string) {
	Error(w, message, 403, http.StatusForbidden)
}

func ErrorNotFound(w http.ResponseWriter, message string) {
	Error(w, message, 404, http.StatusNotFound)
}

func ErrorConflict(w http.ResponseWriter, message string) {
	Error(w, message, 409, http.StatusConflict)
}

func ErrorBadGateway(w http.ResponseWriter, message string) {
	Error(w, message, 502, http.StatusBadGateway)
}

func ErrorInternal(w http.ResponseWriter, message string) {
	Error(w, message, 500, http.StatusInternalServerError)
}

// ErrorFromService maps pipeline errors onto the HTTP taxonomy. Receipt and
// delivery problems never reach this path from confirm; they ride along as
// advisory statuses in a success payload.
func ErrorFromService(w http.ResponseWriter, err error) {
	var provErr *domain.ProviderError

	switch {
	case errors.Is(err, domain.ErrDebtNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrStudentNotFound):
		ErrorNotFound(w, err.Error())
	case errors.Is(err, domain.ErrDebtAlreadyPaid),
		errors.Is(err, domain.ErrIntentMismatch):
		ErrorConflict(w, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		ErrorForbidden(w, "Forbidden")
	case errors.As(err, &provErr):
		ErrorBadGateway(w, provErr.Error())
	default:
		log.Printf("[HTTP] internal error: %v", err)
		ErrorInternal(w, "internal error")
	}
}

package rest

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type IntentRequest struct {
	DebtID    int64
	StudentID int64
	Amount    float64
}

type rawIntentRequest struct {
	DebtID    interface{} `json:"debt_id"`
	StudentID interface{} `json:"student_id"`
	Amount    interface{} `json:"amount"`
}

func ValidateIntentRequest(r *http.Request) (*IntentRequest, error) {
	var raw rawIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	debtID, err := toInt64Ptr(raw.DebtID)
	if err != nil || debtID == nil {
		return nil, &ValidationError{Field: "debt_id", Message: "debt_id is required and must be an integer"}
	}

	studentID, err := toInt64Ptr(raw.StudentID)
	if err != nil || studentID == nil {
		return nil, &ValidationError{Field: "student_id", Message: "student_id is required and must be an integer"}
	}

	amount, err := toFloatPtr(raw.Amount)
	if err != nil || amount == nil {
		return nil, &ValidationError{Field: "amount", Message: "amount is required and must be a number"}
	}
	if *amount <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "amount must be positive"}
	}

	return &IntentRequest{DebtID: *debtID, StudentID: *studentID, Amount: *amount}, nil
}

type ConfirmRequest struct {
	ProviderIntentID string
	StudentID        int64
	DebtID           *int64
	PaymentMethod    string
}

type rawConfirmRequest struct {
	ProviderIntentID interface{} `json:"provider_intent_id"`
	StudentID        interface{} `json:"student_id"`
	DebtID           interface{} `json:"debt_id"`
	PaymentMethod    interface{} `json:"payment_method"`
}

func ValidateConfirmRequest(r *http.Request) (*ConfirmRequest, error) {
	var raw rawConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return nil, err
	}

	ref, err := toStringPtr(raw.ProviderIntentID)
	if err != nil || ref == nil || *ref == "" {
		return nil, &ValidationError{Field: "provider_intent_id", Message: "provider_intent_id is required"}
	}

	studentID, err := toInt64Ptr(raw.StudentID)
	if err != nil || studentID == nil {
		return nil, &ValidationError{Field: "student_id", Message: "student_id is required and must be an integer"}
	}

	debtID, err := toInt64Ptr(raw.DebtID)
	if err != nil {
		return nil, &ValidationError{Field: "debt_id", Message: "debt_id must be an integer or empty"}
	}

	method, err := toStringPtr(raw.PaymentMethod)
	if err != nil {
		return nil, &ValidationError{Field: "payment_method", Message: "payment_method must be a string"}
	}
	methodStr := "card"
	if method != nil && *method != "" {
		methodStr = *method
	}

	return &ConfirmRequest{
		ProviderIntentID: *ref,
		StudentID:        *studentID,
		DebtID:           debtID,
		PaymentMethod:    methodStr,
	}, nil
}

// SummaryPeriod parses from/to query params (YYYY-MM-DD); defaults to the
// current month so far.
func SummaryPeriod(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, &ValidationError{Field: "from", Message: "from must be YYYY-MM-DD"}
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return from, to, &ValidationError{Field: "to", Message: "to must be YYYY-MM-DD"}
		}
		// inclusive end of day
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	if to.Before(from) {
		return from, to, &ValidationError{Field: "to", Message: "to must not be before from"}
	}
	return from, to, nil
}

func toStringPtr(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return &t, nil
	case float64:
		s := strconv.FormatInt(int64(t), 10)
		return &s, nil
	default:
		return nil, &ValidationError{Message: "invalid type for string field"}
	}
}

func toInt64Ptr(v interface{}) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		if t != math.Trunc(t) {
			return nil, &ValidationError{Message: "invalid type for int field"}
		}
		i := int64(t)
		return &i, nil
	case string:
		if t == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, err
		}
		return &i, nil
	default:
		return nil, &ValidationError{Message: "invalid type for int field"}
	}
}

func toFloatPtr(v interface{}) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &t, nil
	case string:
		if t == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, err
		}
		return &f, nil
	default:
		return nil, &ValidationError{Message: "invalid type for number field"}
	}
}

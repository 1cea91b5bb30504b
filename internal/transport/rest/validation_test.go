package rest

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestValidateIntentRequestCoercion(t *testing.T) {
	// numeric fields arrive as numbers or strings depending on the client
	body := `{"debt_id":"7","student_id":10,"amount":"600.50"}`
	req := httptest.NewRequest("POST", "/payments/intent", strings.NewReader(body))

	parsed, err := ValidateIntentRequest(req)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if parsed.DebtID != 7 || parsed.StudentID != 10 || parsed.Amount != 600.50 {
		t.Fatalf("unexpected parse: %+v", parsed)
	}
}

func TestValidateIntentRequestRejects(t *testing.T) {
	cases := map[string]string{
		"empty body":         `{}`,
		"bad debt type":      `{"debt_id":{"x":1},"student_id":10,"amount":5}`,
		"fractional debt id": `{"debt_id":1.5,"student_id":10,"amount":5}`,
		"bad amount":         `{"debt_id":1,"student_id":10,"amount":"abc"}`,
		"zero amount":        `{"debt_id":1,"student_id":10,"amount":0}`,
	}

	for name, body := range cases {
		req := httptest.NewRequest("POST", "/payments/intent", strings.NewReader(body))
		if _, err := ValidateIntentRequest(req); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestValidateConfirmRequestDefaults(t *testing.T) {
	body := `{"provider_intent_id":"pi_1","student_id":10}`
	req := httptest.NewRequest("POST", "/payments/confirm", strings.NewReader(body))

	parsed, err := ValidateConfirmRequest(req)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if parsed.PaymentMethod != "card" {
		t.Fatalf("expected default method card, got %q", parsed.PaymentMethod)
	}
	if parsed.DebtID != nil {
		t.Fatal("debt id should be optional")
	}
}

func TestValidateConfirmRequestWithDebt(t *testing.T) {
	body := `{"provider_intent_id":"pi_1","student_id":10,"debt_id":3,"payment_method":"transfer"}`
	req := httptest.NewRequest("POST", "/payments/confirm", strings.NewReader(body))

	parsed, err := ValidateConfirmRequest(req)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if parsed.DebtID == nil || *parsed.DebtID != 3 {
		t.Fatalf("debt id lost: %+v", parsed)
	}
	if parsed.PaymentMethod != "transfer" {
		t.Fatalf("method lost: %q", parsed.PaymentMethod)
	}
}

func TestValidateConfirmRequestRejectsFractionalDebt(t *testing.T) {
	body := `{"provider_intent_id":"pi_1","student_id":10,"debt_id":3.7}`
	req := httptest.NewRequest("POST", "/payments/confirm", strings.NewReader(body))

	if _, err := ValidateConfirmRequest(req); err == nil {
		t.Fatal("expected an error for a fractional debt id")
	}
}

func TestSummaryPeriodDefaultsToCurrentMonth(t *testing.T) {
	req := httptest.NewRequest("GET", "/guardians/1/payment-summary", nil)

	from, to, err := SummaryPeriod(req)
	if err != nil {
		t.Fatalf("period failed: %v", err)
	}

	now := time.Now()
	if from.Month() != now.Month() || from.Day() != 1 {
		t.Fatalf("expected start of current month, got %s", from)
	}
	if to.Before(from) {
		t.Fatal("to must not precede from")
	}
}

func TestSummaryPeriodExplicitRange(t *testing.T) {
	req := httptest.NewRequest("GET", "/guardians/1/payment-summary?from=2026-01-01&to=2026-01-31", nil)

	from, to, err := SummaryPeriod(req)
	if err != nil {
		t.Fatalf("period failed: %v", err)
	}
	if from.Format("2006-01-02") != "2026-01-01" {
		t.Fatalf("wrong from: %s", from)
	}
	// the end date is inclusive
	if to.Year() != 2026 || to.Month() != time.January || to.Day() != 31 {
		t.Fatalf("wrong to: %s", to)
	}
}

func TestSummaryPeriodRejectsInvertedRange(t *testing.T) {
	req := httptest.NewRequest("GET", "/guardians/1/payment-summary?from=2026-02-01&to=2026-01-01", nil)

	if _, _, err := SummaryPeriod(req); err == nil {
		t.Fatal("expected an error for an inverted range")
	}
}

package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"schoolpay/internal/domain"
)

// Intent statuses reported by the processor. Only "succeeded" ever leads
// to a ledger mutation.
const (
	IntentRequiresPayment = "requires_payment"
	IntentProcessing      = "processing"
	IntentSucceeded       = "succeeded"
	IntentFailed          = "failed"
	IntentCanceled        = "canceled"
)

type ProcessorConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type IntentRequest struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Intent struct {
	ID            string  `json:"id"`
	ClientSecret  string  `json:"client_secret"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	FailureReason string  `json:"failure_reason,omitempty"`
}

type processorAPIError struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// ProcessorClient talks to the external payment processor. Every call is
// bounded by the configured client timeout; failures surface as
// domain.ProviderError and are never retried here.
type ProcessorClient struct {
	http *resty.Client
}

func NewProcessorClient(cfg ProcessorConfig) *ProcessorClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.SecretKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &ProcessorClient{http: c}
}

func (c *ProcessorClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	var (
		out    Intent
		apiErr processorAPIError
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/payment_intents")
	if err != nil {
		return nil, &domain.ProviderError{Op: "create intent", Err: err}
	}

	if resp.IsError() {
		return nil, &domain.ProviderError{
			Op:     "create intent",
			Reason: apiErrorReason(resp.Status(), apiErr),
		}
	}

	if out.ID == "" || out.ClientSecret == "" {
		return nil, &domain.ProviderError{Op: "create intent", Reason: "incomplete response"}
	}

	return &out, nil
}

func (c *ProcessorClient) GetIntent(ctx context.Context, providerIntentID string) (*Intent, error) {
	var (
		out    Intent
		apiErr processorAPIError
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get(fmt.Sprintf("/v1/payment_intents/%s", providerIntentID))
	if err != nil {
		return nil, &domain.ProviderError{Op: "get intent", Err: err}
	}

	if resp.IsError() {
		return nil, &domain.ProviderError{
			Op:     "get intent",
			Reason: apiErrorReason(resp.Status(), apiErr),
		}
	}

	return &out, nil
}

func apiErrorReason(status string, apiErr processorAPIError) string {
	if apiErr.Message != "" {
		if len(apiErr.Errors) > 0 {
			return fmt.Sprintf("%s: %v", apiErr.Message, apiErr.Errors)
		}
		return apiErr.Message
	}
	return fmt.Sprintf("unexpected status %s", status)
}

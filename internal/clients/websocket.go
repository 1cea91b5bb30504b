package clients

import (
	"context"
	"fmt"

	ws "schoolpay/internal/transport/websocket"
)

// WebSocketClient pushes payment events to connected dashboards. All
// notifications are best-effort: a full hub buffer drops the message and
// nothing here ever affects the ledger.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{hub: hub}
}

func (c *WebSocketClient) NotifyPaymentConfirmed(
	ctx context.Context,
	userIDs []int64,
	paymentID string,
	debtID *int64,
	amount float64,
	debtStatus string,
) error {
	if c == nil || c.hub == nil {
		return nil
	}

	data := map[string]interface{}{
		"payment_id":  paymentID,
		"amount":      amount,
		"debt_status": debtStatus,
	}
	if debtID != nil {
		data["debt_id"] = *debtID
	}

	for _, userID := range userIDs {
		message := &ws.Message{
			Type:    "payment_confirmed",
			Channel: fmt.Sprintf("notify_user_of_payment#%d", userID),
			Data:    data,
		}
		c.hub.Broadcast(userID, message)
	}
	return nil
}

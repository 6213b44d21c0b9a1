package events

import (
	"strconv"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

// PaymentPayload is the message body published for a payment event.
type PaymentPayload struct {
	PaymentID  string `json:"payment_id"`
	OrderID    string `json:"order_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	Method     string `json:"method"`
	MethodID   string `json:"method_id,omitempty"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	Link       string `json:"link,omitempty"`
	Email      string `json:"email,omitempty"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

func NewPaymentPayload(event domain.Event) PaymentPayload {
	return PaymentPayload{
		PaymentID:  strconv.FormatInt(int64(event.PaymentID), 10),
		OrderID:    event.OrderID,
		ClientID:   event.ClientID,
		Method:     string(event.Method),
		MethodID:   event.MethodID,
		Status:     string(event.Status),
		Amount:     event.Amount.StringFixed(2),
		Link:       event.Link,
		Email:      event.Email,
		Reason:     event.Reason,
		OccurredAt: event.OccurredAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ToMap converts a payload into an outbox-friendly map.
func (p PaymentPayload) ToMap() map[string]any {
	payload := map[string]any{
		"payment_id":  p.PaymentID,
		"method":      p.Method,
		"status":      p.Status,
		"amount":      p.Amount,
		"occurred_at": p.OccurredAt,
	}
	optional := map[string]string{
		"order_id":  p.OrderID,
		"client_id": p.ClientID,
		"method_id": p.MethodID,
		"link":      p.Link,
		"email":     p.Email,
		"reason":    p.Reason,
	}
	for key, value := range optional {
		if value != "" {
			payload[key] = value
		}
	}
	return payload
}

// DedupeKey identifies one status of one payment for one event type.
func DedupeKey(event domain.Event) string {
	return string(event.Type) + ":" + strconv.FormatInt(int64(event.PaymentID), 10) + ":" + string(event.Status)
}

package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EventType string

const (
	EventPaymentApproved      EventType = "payment.approved"
	EventPaymentRejected      EventType = "payment.rejected"
	EventPaymentLinkGenerated EventType = "payment.link_generated"
)

// Event is a lifecycle message for downstream consumers.
type Event struct {
	Type       EventType
	PaymentID  snowflake.ID
	OrderID    string
	ClientID   string
	Method     Method
	MethodID   string
	Status     Status
	Amount     decimal.Decimal
	Link       string
	Email      string
	Reason     string
	OccurredAt time.Time
}

// Dispatcher hands events to an external collaborator. tx is the transaction
// the triggering state change runs in.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *gorm.DB, event Event) error
}

// NewPaymentEvent fills the payment fields of an event.
func NewPaymentEvent(eventType EventType, payment *Payment, occurredAt time.Time) Event {
	return Event{
		Type:       eventType,
		PaymentID:  payment.ID,
		OrderID:    payment.OrderRef(),
		ClientID:   payment.ClientID,
		Method:     payment.Method,
		MethodID:   payment.ProviderMethodID(),
		Status:     payment.Status,
		Amount:     payment.Amount,
		Link:       payment.LinkValue(),
		Email:      payment.Email,
		OccurredAt: occurredAt,
	}
}

package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Handler implements the provider-specific payment lifecycle.
type Handler interface {
	Method() Method
	// RequestPayment initiates or re-checks a provider-side payment.
	RequestPayment(ctx context.Context, req PaymentRequest) PaymentResult
	// ValidatePayment re-fetches provider truth for a stored payment.
	ValidatePayment(ctx context.Context, payment *Payment) PaymentResult
	ApprovePayment(ctx context.Context, payment *Payment) PaymentResult
	// CancelPayment returns a *DeclinedError when the provider refuses.
	CancelPayment(ctx context.Context, payment *Payment) (PaymentResult, error)
	Fee(amount decimal.Decimal) decimal.Decimal
	EffectiveDate(data MethodData) time.Time
	AllowsDuplicateMethodID() bool
	CFDIPaymentForm() string
}

// WebhookHandler is implemented by handlers that accept provider notifications.
type WebhookHandler interface {
	Handler
	VerifyWebhook(ctx context.Context, req WebhookRequest) VerificationResult
	ProcessWebhook(ctx context.Context, req WebhookRequest, approver Approver) error
}

// Approver is the slice of the manager that webhook processing needs.
type Approver interface {
	FromMethodID(ctx context.Context, method Method, methodID string) (*Payment, error)
	Approve(ctx context.Context, payment *Payment) (PaymentResult, error)
}

package handlers

import (
	"context"
	"errors"

	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
	"github.com/EquidnaMX/stag-herd/internal/payment/verifier"
)

type StripeAPI interface {
	RetrievePayment(ctx context.Context, id string) (*adapters.StripePayment, error)
	Refund(ctx context.Context, id string) error
}

// Stripe confirms wallet payments (GooglePay) charged client-side through
// Stripe. The charge already exists when the payment is requested.
type Stripe struct {
	core
	webhook
	api StripeAPI
}

// NewGooglePay builds the GOOGLEPAY handler.
func NewGooglePay(api StripeAPI, v verifier.Verifier, opts Options) *Stripe {
	return newStripe(domain.MethodGooglePay, api, v, opts)
}

// NewStripe builds the STRIPE handler.
func NewStripe(api StripeAPI, v verifier.Verifier, opts Options) *Stripe {
	return newStripe(domain.MethodStripe, api, v, opts)
}

func newStripe(method domain.Method, api StripeAPI, v verifier.Verifier, opts Options) *Stripe {
	return &Stripe{
		core:    newCore(method, cfdiCard, DefaultStripeFee, opts),
		webhook: webhook{verifier: v},
		api:     api,
	}
}

func (h *Stripe) RequestPayment(_ context.Context, req domain.PaymentRequest) domain.PaymentResult {
	methodID := req.MethodData.PaymentMethodID
	if methodID == "" {
		methodID = randomMethodID()
	}
	return domain.Pending(methodID, "", "")
}

func (h *Stripe) ValidatePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	methodID := payment.ProviderMethodID()
	remote, err := h.api.RetrievePayment(ctx, methodID)
	if err != nil {
		return domain.Declined(err.Error())
	}
	if !remote.Amount.Equal(payment.Amount) {
		return domain.Declined(reasonInvalidAmount)
	}
	if remote.Status == "succeeded" {
		return domain.Success(domain.StatusApproved, methodID, "", nil)
	}
	return domain.Pending(methodID, "", "Stripe Status: "+remote.Status)
}

func (h *Stripe) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *Stripe) CancelPayment(ctx context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	if err := h.api.Refund(ctx, payment.ProviderMethodID()); err != nil {
		return domain.PaymentResult{}, domain.Decline(err.Error())
	}
	return domain.Canceled(""), nil
}

func (h *Stripe) ProcessWebhook(ctx context.Context, req domain.WebhookRequest, approver domain.Approver) error {
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}
	switch doc.String("type") {
	case "payment_intent.succeeded", "charge.succeeded":
	default:
		return nil
	}
	methodID := doc.String("data", "object", "id")
	if methodID == "" {
		return nil
	}
	return approveByMethodID(ctx, approver, h.Method(), methodID)
}

package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
	"github.com/EquidnaMX/stag-herd/internal/payment/verifier"
)

type ConektaAPI interface {
	CreateCashOrder(ctx context.Context, amount decimal.Decimal, description, customerName, customerEmail string) (*adapters.ConektaOrder, error)
}

// Conekta issues OXXO cash references. Payments are confirmed by the
// notification itself, so validation performs no live check.
type Conekta struct {
	core
	webhook
	api ConektaAPI
}

func NewConekta(api ConektaAPI, v verifier.Verifier, opts Options) *Conekta {
	return &Conekta{
		core:    newCore(domain.MethodConekta, cfdiCash, Fee{}, opts),
		webhook: webhook{verifier: v},
		api:     api,
	}
}

func (h *Conekta) RequestPayment(ctx context.Context, req domain.PaymentRequest) domain.PaymentResult {
	name, email := orderCustomer(req.Order)
	order, err := h.api.CreateCashOrder(ctx, req.Amount, orderDescription(req.Order), name, email)
	if err != nil {
		return domain.Declined(err.Error())
	}
	return domain.Success(domain.StatusPending, order.ID, order.PaymentURL(), nil)
}

func (h *Conekta) ValidatePayment(_ context.Context, payment *domain.Payment) domain.PaymentResult {
	return domain.Success(domain.StatusApproved, payment.ProviderMethodID(), "", nil)
}

func (h *Conekta) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *Conekta) CancelPayment(_ context.Context, _ *domain.Payment) (domain.PaymentResult, error) {
	return domain.PaymentResult{}, domain.Decline("Conekta payments cannot be cancelled")
}

func (h *Conekta) ProcessWebhook(ctx context.Context, req domain.WebhookRequest, approver domain.Approver) error {
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}

	var methodID string
	switch eventType := doc.String("type"); {
	case eventType == "order.paid":
		methodID = doc.String("data", "object", "id")
	case eventType == "charge.paid":
		methodID = doc.FirstString("data.object.order_id", "data.object.id")
	case strings.HasPrefix(eventType, "order.") || strings.HasPrefix(eventType, "charge."):
		return nil
	}
	if methodID == "" {
		return nil
	}
	return approveByMethodID(ctx, approver, h.Method(), methodID)
}

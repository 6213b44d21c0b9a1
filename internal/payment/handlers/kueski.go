package handlers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
	"github.com/EquidnaMX/stag-herd/internal/payment/verifier"
)

type KueskiAPI interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, description, orderID string) (*adapters.KueskiPayment, error)
}

// Kueski is the Kueski Pay buy-now-pay-later flow. Like Conekta, the
// approval notification is the confirmation.
type Kueski struct {
	core
	webhook
	api KueskiAPI
}

func NewKueski(api KueskiAPI, v verifier.Verifier, opts Options) *Kueski {
	return &Kueski{
		core:    newCore(domain.MethodKueskiPay, cfdiUndef, Fee{}, opts),
		webhook: webhook{verifier: v},
		api:     api,
	}
}

func (h *Kueski) RequestPayment(ctx context.Context, req domain.PaymentRequest) domain.PaymentResult {
	created, err := h.api.CreatePayment(ctx, req.Amount, orderDescription(req.Order), orderID(req.Order))
	if err != nil {
		return domain.Declined(err.Error())
	}
	return domain.Success(domain.StatusPending, created.ID, created.PaymentURL, nil)
}

func (h *Kueski) ValidatePayment(_ context.Context, payment *domain.Payment) domain.PaymentResult {
	return domain.Success(domain.StatusApproved, payment.ProviderMethodID(), "", nil)
}

func (h *Kueski) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *Kueski) CancelPayment(_ context.Context, _ *domain.Payment) (domain.PaymentResult, error) {
	return domain.PaymentResult{}, domain.Decline("Kueski Pay payments cannot be cancelled")
}

func (h *Kueski) ProcessWebhook(ctx context.Context, req domain.WebhookRequest, approver domain.Approver) error {
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}
	if event := doc.String("event"); event != "" && event != "payment.approved" {
		return nil
	}
	methodID := doc.FirstString("payment_id", "id")
	if methodID == "" {
		return nil
	}
	return approveByMethodID(ctx, approver, h.Method(), methodID)
}

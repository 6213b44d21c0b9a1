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

type OpenpayAPI interface {
	CreateBankCharge(ctx context.Context, amount decimal.Decimal, description, customerName, customerEmail string) (*adapters.OpenpayCharge, error)
	GetCharge(ctx context.Context, chargeID string) (*adapters.OpenpayCharge, error)
	Refund(ctx context.Context, chargeID string, amount decimal.Decimal) error
}

// Openpay issues bank transfer (SPEI) charges.
type Openpay struct {
	core
	webhook
	api OpenpayAPI
}

func NewOpenpay(api OpenpayAPI, v verifier.Verifier, opts Options) *Openpay {
	return &Openpay{
		core:    newCore(domain.MethodOpenpay, cfdiTransfer, Fee{}, opts),
		webhook: webhook{verifier: v},
		api:     api,
	}
}

func (h *Openpay) RequestPayment(ctx context.Context, req domain.PaymentRequest) domain.PaymentResult {
	name, email := orderCustomer(req.Order)
	charge, err := h.api.CreateBankCharge(ctx, req.Amount, orderDescription(req.Order), name, email)
	if err != nil {
		return domain.Declined(err.Error())
	}
	return domain.Success(domain.StatusPending, charge.ID, charge.PaymentMethod.URL, nil)
}

func (h *Openpay) ValidatePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	methodID := payment.ProviderMethodID()
	charge, err := h.api.GetCharge(ctx, methodID)
	if err != nil {
		return domain.Declined(err.Error())
	}
	if !charge.Amount.Equal(payment.Amount) {
		return domain.Declined(reasonInvalidAmount)
	}
	if charge.Status == "completed" {
		return domain.Success(domain.StatusApproved, methodID, "", nil)
	}
	return domain.Pending(methodID, "", "Openpay Status: "+charge.Status)
}

func (h *Openpay) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *Openpay) CancelPayment(ctx context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	if err := h.api.Refund(ctx, payment.ProviderMethodID(), payment.Amount); err != nil {
		return domain.PaymentResult{}, domain.Decline(err.Error())
	}
	return domain.Canceled(""), nil
}

func (h *Openpay) ProcessWebhook(ctx context.Context, req domain.WebhookRequest, approver domain.Approver) error {
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}
	methodID := doc.String("transaction", "id")
	if methodID == "" {
		return nil
	}
	return approveByMethodID(ctx, approver, h.Method(), methodID)
}

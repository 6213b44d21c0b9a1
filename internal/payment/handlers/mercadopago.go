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

type MercadoPagoAPI interface {
	CreatePreference(ctx context.Context, amount decimal.Decimal, description string) (*adapters.MercadoPagoPreference, error)
	GetPayment(ctx context.Context, paymentID string) (*adapters.MercadoPagoPayment, error)
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal) error
}

type MercadoPago struct {
	core
	webhook
	api MercadoPagoAPI
}

func NewMercadoPago(api MercadoPagoAPI, v verifier.Verifier, opts Options) *MercadoPago {
	return &MercadoPago{
		core:    newCore(domain.MethodMercadoPago, cfdiCard, Fee{}, opts),
		webhook: webhook{verifier: v},
		api:     api,
	}
}

func (h *MercadoPago) RequestPayment(ctx context.Context, req domain.PaymentRequest) domain.PaymentResult {
	methodID := req.MethodData.PaymentMethodID

	var (
		status string
		link   string
		err    error
	)
	if methodID != "" {
		var existing *adapters.MercadoPagoPayment
		if existing, err = h.api.GetPayment(ctx, methodID); err == nil {
			status = existing.Status
		}
	}
	if methodID == "" || err != nil {
		pref, err := h.api.CreatePreference(ctx, req.Amount, orderDescription(req.Order))
		if err != nil {
			return domain.Declined(err.Error())
		}
		// A fresh preference has no payment yet.
		methodID, link, status = pref.ID, pref.InitPoint, "pending"
	}

	switch status {
	case "pending", "approved":
		return domain.Success(domain.StatusPending, methodID, link, nil)
	default:
		return domain.Declined("MercadoPago status: " + orUnknown(status))
	}
}

func (h *MercadoPago) ValidatePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	methodID := payment.ProviderMethodID()
	remote, err := h.api.GetPayment(ctx, methodID)
	if err != nil {
		return domain.Declined(err.Error())
	}
	if !remote.TransactionAmount.Equal(payment.Amount) {
		return domain.Declined(reasonInvalidAmount)
	}
	if remote.Status == "approved" {
		return domain.Success(domain.StatusApproved, methodID, "", nil)
	}
	return domain.Pending(methodID, "", "MercadoPago Status: "+remote.Status)
}

func (h *MercadoPago) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *MercadoPago) CancelPayment(ctx context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	if err := h.api.Refund(ctx, payment.ProviderMethodID(), payment.Amount); err != nil {
		return domain.PaymentResult{}, domain.Decline(err.Error())
	}
	return domain.Canceled(""), nil
}

func (h *MercadoPago) ProcessWebhook(ctx context.Context, req domain.WebhookRequest, approver domain.Approver) error {
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}
	methodID := doc.FirstString("data.id", "id")
	if methodID == "" {
		return nil
	}
	return approveByMethodID(ctx, approver, h.Method(), methodID)
}

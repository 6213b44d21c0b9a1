package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

type ClipAPI interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, description string) (*adapters.ClipPayment, error)
	GetPayment(ctx context.Context, paymentID string) (*adapters.ClipPayment, error)
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal) error
}

// Clip has no notification support; payments settle through revalidation.
type Clip struct {
	core
	api ClipAPI
}

func NewClip(api ClipAPI, opts Options) *Clip {
	return &Clip{core: newCore(domain.MethodClip, cfdiCard, Fee{}, opts), api: api}
}

func (h *Clip) RequestPayment(ctx context.Context, req domain.PaymentRequest) domain.PaymentResult {
	methodID := req.MethodData.PaymentMethodID

	var (
		status string
		link   string
		err    error
	)
	if methodID != "" {
		var existing *adapters.ClipPayment
		if existing, err = h.api.GetPayment(ctx, methodID); err == nil {
			status = existing.Status
		}
	}
	if methodID == "" || err != nil {
		created, err := h.api.CreatePayment(ctx, req.Amount, orderDescription(req.Order))
		if err != nil {
			return domain.Declined(err.Error())
		}
		methodID, link, status = created.ID, created.PaymentURL, created.Status
	}

	switch status {
	case "pending", "paid":
		return domain.Success(domain.StatusPending, methodID, link, nil)
	default:
		return domain.Declined("Clip status: " + orUnknown(status))
	}
}

func (h *Clip) ValidatePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	methodID := payment.ProviderMethodID()
	remote, err := h.api.GetPayment(ctx, methodID)
	if err != nil {
		return domain.Declined(err.Error())
	}
	if !remote.Amount.Equal(payment.Amount) {
		return domain.Declined(reasonInvalidAmount)
	}
	if remote.Status == "paid" {
		return domain.Success(domain.StatusApproved, methodID, "", nil)
	}
	return domain.Pending(methodID, "", "Clip Status: "+remote.Status)
}

func (h *Clip) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *Clip) CancelPayment(ctx context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	if err := h.api.Refund(ctx, payment.ProviderMethodID(), payment.Amount); err != nil {
		return domain.PaymentResult{}, domain.Decline(err.Error())
	}
	return domain.Canceled(""), nil
}

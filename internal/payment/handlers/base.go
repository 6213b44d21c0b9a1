package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

// Base serves flows with no provider-side pre-authorization, such as cash.
// Requests stay PENDING until settled outside the system.
type Base struct {
	core
}

func NewBase(method domain.Method, opts Options) *Base {
	if method == "" {
		method = domain.MethodBase
	}
	return &Base{core: newCore(method, cfdiCash, Fee{Fixed: decimal.Zero, Variable: decimal.Zero}, opts)}
}

func (h *Base) RequestPayment(_ context.Context, req domain.PaymentRequest) domain.PaymentResult {
	if req.Order == nil {
		return domain.Declined("Order not loaded")
	}
	methodID := req.MethodData.PaymentMethodID
	if methodID == "" {
		methodID = randomMethodID()
	}
	return domain.Pending(methodID, "", "")
}

func (h *Base) ValidatePayment(_ context.Context, payment *domain.Payment) domain.PaymentResult {
	if payment.OrderID == nil {
		return domain.Declined("Order not loaded")
	}
	if payment.Status != domain.StatusPending {
		return domain.Declined("Payment is not pending validation")
	}
	return domain.Pending(payment.ProviderMethodID(), "", "")
}

func (h *Base) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *Base) CancelPayment(_ context.Context, _ *domain.Payment) (domain.PaymentResult, error) {
	return domain.Canceled(""), nil
}

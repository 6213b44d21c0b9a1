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

// payPalAmountTolerance absorbs the rounding of PayPal's string amounts.
var payPalAmountTolerance = decimal.RequireFromString("0.01")

type PayPalAPI interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, description string) (*adapters.PayPalOrder, error)
	GetOrder(ctx context.Context, orderID string) (*adapters.PayPalOrder, error)
	RefundCapture(ctx context.Context, captureID string, amount decimal.Decimal) error
}

type PayPal struct {
	core
	webhook
	api PayPalAPI
}

func NewPayPal(api PayPalAPI, v verifier.Verifier, opts Options) *PayPal {
	return &PayPal{
		core:    newCore(domain.MethodPayPal, cfdiCard, DefaultPayPalFee, opts),
		webhook: webhook{verifier: v},
		api:     api,
	}
}

// RequestPayment re-reads an existing order when a method id was supplied and
// creates a new order when there is none or the lookup fails.
func (h *PayPal) RequestPayment(ctx context.Context, req domain.PaymentRequest) domain.PaymentResult {
	methodID := req.MethodData.PaymentMethodID

	var (
		order *adapters.PayPalOrder
		err   error
		link  string
	)
	if methodID != "" {
		order, err = h.api.GetOrder(ctx, methodID)
	}
	if methodID == "" || err != nil {
		order, err = h.api.CreateOrder(ctx, req.Amount, orderDescription(req.Order))
		if err != nil {
			return domain.Declined(err.Error())
		}
		methodID = order.ID
		link = order.ApprovalLink()
		if order.Status == "PAYER_ACTION_REQUIRED" {
			order.Status = "PENDING"
		}
	}

	switch order.Status {
	case "PENDING", "COMPLETED", "APPROVED":
		return domain.Success(domain.StatusPending, methodID, link, nil)
	default:
		return domain.Declined("PayPal status: " + orUnknown(order.Status))
	}
}

func (h *PayPal) ValidatePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	methodID := payment.ProviderMethodID()
	order, err := h.api.GetOrder(ctx, methodID)
	if err != nil {
		return domain.Declined(err.Error())
	}

	amount, _ := order.Amount()
	if amount.Sub(payment.Amount).Abs().GreaterThan(payPalAmountTolerance) {
		return domain.Declined(reasonInvalidAmount)
	}

	switch order.Status {
	case "COMPLETED", "APPROVED":
		return domain.Success(domain.StatusApproved, methodID, "", nil)
	default:
		return domain.Pending(methodID, "", "PayPal Status: "+order.Status)
	}
}

func (h *PayPal) ApprovePayment(ctx context.Context, payment *domain.Payment) domain.PaymentResult {
	return h.ValidatePayment(ctx, payment)
}

func (h *PayPal) CancelPayment(ctx context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	if err := h.api.RefundCapture(ctx, payment.ProviderMethodID(), payment.Amount); err != nil {
		return domain.PaymentResult{}, domain.Decline(err.Error())
	}
	return domain.Canceled(""), nil
}

func (h *PayPal) ProcessWebhook(ctx context.Context, req domain.WebhookRequest, approver domain.Approver) error {
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return errors.Join(domain.ErrInvalidPayload, err)
	}

	var methodID string
	switch doc.String("event_type") {
	case "CHECKOUT.ORDER.APPROVED":
		methodID = doc.FirstString(
			"resource.purchase_units.0.payments.captures.0.id",
			"resource.id",
		)
	case "PAYMENT.CAPTURE.COMPLETED":
		methodID = doc.String("resource", "id")
	}
	if methodID == "" {
		return nil
	}
	return approveByMethodID(ctx, approver, h.Method(), methodID)
}

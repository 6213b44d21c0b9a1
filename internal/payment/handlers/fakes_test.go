package handlers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

var errProvider = errors.New("provider unavailable")

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func pendingPayment(method domain.Method, methodID, amount string) *domain.Payment {
	orderID := "ord-1"
	return &domain.Payment{
		ID:       1,
		OrderID:  &orderID,
		Method:   method,
		MethodID: &methodID,
		Amount:   dec(amount),
		Status:   domain.StatusPending,
	}
}

type fakePayPalAPI struct {
	created   *adapters.PayPalOrder
	createErr error
	orders    map[string]*adapters.PayPalOrder
	refundErr error
	creates   int
	refunds   []string
}

func (f *fakePayPalAPI) CreateOrder(_ context.Context, _ decimal.Decimal, _ string) (*adapters.PayPalOrder, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	order := *f.created
	return &order, nil
}

func (f *fakePayPalAPI) GetOrder(_ context.Context, id string) (*adapters.PayPalOrder, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, errProvider
	}
	copied := *order
	return &copied, nil
}

func (f *fakePayPalAPI) RefundCapture(_ context.Context, id string, _ decimal.Decimal) error {
	f.refunds = append(f.refunds, id)
	return f.refundErr
}

func payPalOrder(id, status, amount string) *adapters.PayPalOrder {
	return &adapters.PayPalOrder{
		ID:     id,
		Status: status,
		Links: []adapters.PayPalLink{
			{Href: "https://paypal.test/self", Rel: "self"},
			{Href: "https://paypal.test/approve/" + id, Rel: "approve"},
		},
		PurchaseUnits: []adapters.PayPalPurchaseUnit{{
			Amount: adapters.PayPalAmount{CurrencyCode: "MXN", Value: amount},
		}},
	}
}

type fakeMercadoPagoAPI struct {
	pref      *adapters.MercadoPagoPreference
	prefErr   error
	payments  map[string]*adapters.MercadoPagoPayment
	refundErr error
}

func (f *fakeMercadoPagoAPI) CreatePreference(_ context.Context, _ decimal.Decimal, _ string) (*adapters.MercadoPagoPreference, error) {
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	return f.pref, nil
}

func (f *fakeMercadoPagoAPI) GetPayment(_ context.Context, id string) (*adapters.MercadoPagoPayment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, errProvider
	}
	return payment, nil
}

func (f *fakeMercadoPagoAPI) Refund(_ context.Context, _ string, _ decimal.Decimal) error {
	return f.refundErr
}

type fakeOpenpayAPI struct {
	charge    *adapters.OpenpayCharge
	createErr error
	charges   map[string]*adapters.OpenpayCharge
}

func (f *fakeOpenpayAPI) CreateBankCharge(_ context.Context, _ decimal.Decimal, _, _, _ string) (*adapters.OpenpayCharge, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.charge, nil
}

func (f *fakeOpenpayAPI) GetCharge(_ context.Context, id string) (*adapters.OpenpayCharge, error) {
	charge, ok := f.charges[id]
	if !ok {
		return nil, errProvider
	}
	return charge, nil
}

func (f *fakeOpenpayAPI) Refund(_ context.Context, _ string, _ decimal.Decimal) error { return nil }

type fakeClipAPI struct {
	created  *adapters.ClipPayment
	payments map[string]*adapters.ClipPayment
}

func (f *fakeClipAPI) CreatePayment(_ context.Context, _ decimal.Decimal, _ string) (*adapters.ClipPayment, error) {
	return f.created, nil
}

func (f *fakeClipAPI) GetPayment(_ context.Context, id string) (*adapters.ClipPayment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, errProvider
	}
	return payment, nil
}

func (f *fakeClipAPI) Refund(_ context.Context, _ string, _ decimal.Decimal) error { return nil }

type fakeStripeAPI struct {
	payments  map[string]*adapters.StripePayment
	refundErr error
}

func (f *fakeStripeAPI) RetrievePayment(_ context.Context, id string) (*adapters.StripePayment, error) {
	payment, ok := f.payments[id]
	if !ok {
		return nil, errProvider
	}
	return payment, nil
}

func (f *fakeStripeAPI) Refund(_ context.Context, _ string) error { return f.refundErr }

type fakeKueskiAPI struct{}

func (fakeKueskiAPI) CreatePayment(_ context.Context, _ decimal.Decimal, _, orderID string) (*adapters.KueskiPayment, error) {
	return &adapters.KueskiPayment{ID: "kp_" + orderID, PaymentURL: "https://kueski.test/pay"}, nil
}

type fakeConektaAPI struct{}

func (fakeConektaAPI) CreateCashOrder(_ context.Context, _ decimal.Decimal, _, _, _ string) (*adapters.ConektaOrder, error) {
	order := &adapters.ConektaOrder{ID: "ord_conekta"}
	order.Checkout.URL = "https://pay.conekta.test/ord_conekta"
	return order, nil
}

// recordingApprover stands in for the payment manager.
type recordingApprover struct {
	lookups  []string
	approved []*domain.Payment
	err      error
}

func (r *recordingApprover) FromMethodID(_ context.Context, method domain.Method, methodID string) (*domain.Payment, error) {
	r.lookups = append(r.lookups, string(method)+":"+methodID)
	if r.err != nil {
		return nil, r.err
	}
	return pendingPayment(method, methodID, "100.00"), nil
}

func (r *recordingApprover) Approve(_ context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	r.approved = append(r.approved, payment)
	return domain.Success(domain.StatusApproved, payment.ProviderMethodID(), "", nil), nil
}

package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

var testOrder = &domain.Order{ID: "ord-1", ClientID: "cli-1", ClientName: "Ana", Email: "ana@example.com"}

func TestBaseRequestPayment(t *testing.T) {
	h := NewBase(domain.MethodCash, Options{})
	ctx := context.Background()

	res := h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("10")})
	require.True(t, res.Error)
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, "Order not loaded", res.Reason)

	res = h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("10"), Order: testOrder})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "Always PENDING", res.Reason)
	require.Len(t, res.MethodID, 20)

	res = h.RequestPayment(ctx, domain.PaymentRequest{
		Amount:     dec("10"),
		Order:      testOrder,
		MethodData: domain.MethodData{PaymentMethodID: "ticket-9"},
	})
	require.Equal(t, "ticket-9", res.MethodID)

	canceled, err := h.CancelPayment(ctx, pendingPayment(domain.MethodCash, "ticket-9", "10"))
	require.NoError(t, err)
	require.Equal(t, domain.StatusCanceled, canceled.Result)
	require.Equal(t, domain.MethodCash, h.Method())
	require.Equal(t, "01", h.CFDIPaymentForm())
}

func TestBaseValidateRequiresPending(t *testing.T) {
	h := NewBase("", Options{})
	payment := pendingPayment(domain.MethodBase, "x", "10")

	require.True(t, h.ApprovePayment(context.Background(), payment).IsPending())

	payment.Status = domain.StatusApproved
	res := h.ApprovePayment(context.Background(), payment)
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, "Payment is not pending validation", res.Reason)
}

func TestFeeAndEffectiveDate(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	paypal := NewPayPal(&fakePayPalAPI{}, nil, Options{Clock: clock.NewFakeClock(now)})
	require.True(t, paypal.Fee(dec("100")).Equal(dec("7.95")))

	override := NewFee(1, 0.1)
	custom := NewPayPal(&fakePayPalAPI{}, nil, Options{Fee: &override})
	require.True(t, custom.Fee(dec("50")).Equal(dec("6")))

	google := NewGooglePay(&fakeStripeAPI{}, nil, Options{})
	require.True(t, google.Fee(dec("100")).Equal(dec("5.8")))

	cash := NewBase(domain.MethodCash, Options{})
	require.True(t, cash.Fee(dec("100")).IsZero())

	require.Equal(t, now, paypal.EffectiveDate(domain.MethodData{}))
	effective := time.Date(2024, 4, 30, 18, 0, 0, 0, time.UTC)
	require.Equal(t, effective, paypal.EffectiveDate(domain.MethodData{EffectiveDate: &effective}))
}

func TestPayPalRequestCreatesOrderWhenLookupFails(t *testing.T) {
	api := &fakePayPalAPI{created: payPalOrder("PP-NEW", "PAYER_ACTION_REQUIRED", "100.00")}
	h := NewPayPal(api, nil, Options{})

	res := h.RequestPayment(context.Background(), domain.PaymentRequest{
		Amount:     dec("100"),
		Order:      testOrder,
		MethodData: domain.MethodData{PaymentMethodID: "PP-MISSING"},
	})
	require.False(t, res.Error)
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "PP-NEW", res.MethodID)
	require.Equal(t, "https://paypal.test/approve/PP-NEW", res.Link)
	require.Equal(t, 1, api.creates)
}

func TestPayPalRequestReusesExistingOrder(t *testing.T) {
	api := &fakePayPalAPI{orders: map[string]*adapters.PayPalOrder{
		"PP-1": payPalOrder("PP-1", "APPROVED", "100.00"),
		"PP-2": payPalOrder("PP-2", "VOIDED", "100.00"),
	}}
	h := NewPayPal(api, nil, Options{})

	res := h.RequestPayment(context.Background(), domain.PaymentRequest{
		Amount:     dec("100"),
		MethodData: domain.MethodData{PaymentMethodID: "PP-1"},
	})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "PP-1", res.MethodID)
	require.Empty(t, res.Link)
	require.Zero(t, api.creates)

	res = h.RequestPayment(context.Background(), domain.PaymentRequest{
		Amount:     dec("100"),
		MethodData: domain.MethodData{PaymentMethodID: "PP-2"},
	})
	require.True(t, res.Error)
	require.Equal(t, "PayPal status: VOIDED", res.Reason)
}

func TestPayPalValidateAmountTolerance(t *testing.T) {
	api := &fakePayPalAPI{orders: map[string]*adapters.PayPalOrder{
		"PP-OK":   payPalOrder("PP-OK", "COMPLETED", "100.01"),
		"PP-OFF":  payPalOrder("PP-OFF", "COMPLETED", "100.02"),
		"PP-WAIT": payPalOrder("PP-WAIT", "CREATED", "100.00"),
	}}
	h := NewPayPal(api, nil, Options{})
	ctx := context.Background()

	res := h.ApprovePayment(ctx, pendingPayment(domain.MethodPayPal, "PP-OK", "100.00"))
	require.Equal(t, domain.StatusApproved, res.Result)

	res = h.ApprovePayment(ctx, pendingPayment(domain.MethodPayPal, "PP-OFF", "100.00"))
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, "Invalid amount!", res.Reason)

	res = h.ApprovePayment(ctx, pendingPayment(domain.MethodPayPal, "PP-WAIT", "100.00"))
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "PayPal Status: CREATED", res.Reason)

	res = h.ApprovePayment(ctx, pendingPayment(domain.MethodPayPal, "PP-GONE", "100.00"))
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, errProvider.Error(), res.Reason)
}

func TestPayPalCancelFailureIsDeclinedError(t *testing.T) {
	api := &fakePayPalAPI{refundErr: errors.New("capture already refunded")}
	h := NewPayPal(api, nil, Options{})

	_, err := h.CancelPayment(context.Background(), pendingPayment(domain.MethodPayPal, "CAP-1", "10"))
	require.ErrorIs(t, err, domain.ErrPaymentDeclined)
	require.Equal(t, "capture already refunded", domain.DeclineReason(err))
	require.Equal(t, []string{"CAP-1"}, api.refunds)
}

func TestPayPalProcessWebhook(t *testing.T) {
	h := NewPayPal(&fakePayPalAPI{}, nil, Options{})
	ctx := context.Background()

	cases := []struct {
		body string
		want []string
	}{
		{`{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-1","purchase_units":[{"payments":{"captures":[{"id":"CAP-1"}]}}]}}`, []string{"PAYPAL:CAP-1"}},
		{`{"event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-2"}}`, []string{"PAYPAL:ORDER-2"}},
		{`{"event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-3"}}`, []string{"PAYPAL:CAP-3"}},
		{`{"event_type":"PAYMENT.CAPTURE.DENIED","resource":{"id":"CAP-4"}}`, nil},
	}
	for _, tc := range cases {
		approver := &recordingApprover{}
		err := h.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(tc.body)}, approver)
		require.NoError(t, err)
		require.Equal(t, tc.want, approver.lookups)
		require.Len(t, approver.approved, len(tc.want))
	}

	err := h.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`not json`)}, &recordingApprover{})
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestMercadoPagoRequestPayment(t *testing.T) {
	api := &fakeMercadoPagoAPI{
		pref: &adapters.MercadoPagoPreference{ID: "pref-1", InitPoint: "https://mp.test/init"},
		payments: map[string]*adapters.MercadoPagoPayment{
			"555": {ID: "555", Status: "rejected", TransactionAmount: dec("100")},
		},
	}
	h := NewMercadoPago(api, nil, Options{})

	res := h.RequestPayment(context.Background(), domain.PaymentRequest{Amount: dec("100"), Order: testOrder})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "pref-1", res.MethodID)
	require.Equal(t, "https://mp.test/init", res.Link)

	res = h.RequestPayment(context.Background(), domain.PaymentRequest{
		Amount:     dec("100"),
		MethodData: domain.MethodData{PaymentMethodID: "555"},
	})
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, "MercadoPago status: rejected", res.Reason)
}

func TestMercadoPagoValidateExactAmount(t *testing.T) {
	api := &fakeMercadoPagoAPI{payments: map[string]*adapters.MercadoPagoPayment{
		"555": {ID: "555", Status: "approved", TransactionAmount: dec("100.01")},
		"556": {ID: "556", Status: "approved", TransactionAmount: dec("100")},
		"557": {ID: "557", Status: "in_process", TransactionAmount: dec("100")},
	}}
	h := NewMercadoPago(api, nil, Options{})
	ctx := context.Background()

	res := h.ApprovePayment(ctx, pendingPayment(domain.MethodMercadoPago, "555", "100.00"))
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, "Invalid amount!", res.Reason)

	res = h.ApprovePayment(ctx, pendingPayment(domain.MethodMercadoPago, "556", "100.00"))
	require.Equal(t, domain.StatusApproved, res.Result)

	res = h.ApprovePayment(ctx, pendingPayment(domain.MethodMercadoPago, "557", "100.00"))
	require.True(t, res.IsPending())
	require.Equal(t, "MercadoPago Status: in_process", res.Reason)
}

func TestMercadoPagoProcessWebhook(t *testing.T) {
	h := NewMercadoPago(&fakeMercadoPagoAPI{}, nil, Options{})
	approver := &recordingApprover{}

	require.NoError(t, h.ProcessWebhook(context.Background(), domain.WebhookRequest{Body: []byte(`{"data":{"id":555}}`)}, approver))
	require.NoError(t, h.ProcessWebhook(context.Background(), domain.WebhookRequest{Body: []byte(`{"id":"777"}`)}, approver))
	require.Equal(t, []string{"MERCADOPAGO:555", "MERCADOPAGO:777"}, approver.lookups)

	missing := &recordingApprover{err: domain.ErrPaymentNotFound}
	err := h.ProcessWebhook(context.Background(), domain.WebhookRequest{Body: []byte(`{"data":{"id":1}}`)}, missing)
	require.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestOpenpayHandler(t *testing.T) {
	charge := &adapters.OpenpayCharge{ID: "tr_1", Status: "in_progress", Amount: dec("250")}
	charge.PaymentMethod.URL = "https://openpay.test/spei/tr_1"
	api := &fakeOpenpayAPI{
		charge: charge,
		charges: map[string]*adapters.OpenpayCharge{
			"tr_1": {ID: "tr_1", Status: "completed", Amount: dec("250")},
		},
	}
	h := NewOpenpay(api, nil, Options{})
	ctx := context.Background()

	res := h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("250"), Order: testOrder})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "tr_1", res.MethodID)
	require.Equal(t, "https://openpay.test/spei/tr_1", res.Link)
	require.Equal(t, "03", h.CFDIPaymentForm())

	require.Equal(t, domain.StatusApproved, h.ApprovePayment(ctx, pendingPayment(domain.MethodOpenpay, "tr_1", "250")).Result)

	failing := NewOpenpay(&fakeOpenpayAPI{createErr: errors.New("merchant disabled")}, nil, Options{})
	res = failing.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("250"), Order: testOrder})
	require.Equal(t, domain.StatusDeclined, res.Result)
	require.Equal(t, "merchant disabled", res.Reason)

	approver := &recordingApprover{}
	require.NoError(t, h.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"type":"charge.succeeded","transaction":{"id":"tr_1"}}`)}, approver))
	require.Equal(t, []string{"OPENPAY:tr_1"}, approver.lookups)
}

func TestClipStatusMapping(t *testing.T) {
	api := &fakeClipAPI{
		created: &adapters.ClipPayment{ID: "clip-new", Status: "pending", PaymentURL: "https://clip.test/pay"},
		payments: map[string]*adapters.ClipPayment{
			"clip-paid":   {ID: "clip-paid", Status: "paid", Amount: dec("80")},
			"clip-failed": {ID: "clip-failed", Status: "failed", Amount: dec("80")},
		},
	}
	h := NewClip(api, Options{})
	ctx := context.Background()

	res := h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("80"), Order: testOrder})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "clip-new", res.MethodID)

	res = h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("80"), MethodData: domain.MethodData{PaymentMethodID: "clip-paid"}})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "clip-paid", res.MethodID)

	res = h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("80"), MethodData: domain.MethodData{PaymentMethodID: "clip-failed"}})
	require.Equal(t, "Clip status: failed", res.Reason)

	require.Equal(t, domain.StatusApproved, h.ApprovePayment(ctx, pendingPayment(domain.MethodClip, "clip-paid", "80")).Result)

	var handler domain.Handler = h
	_, ok := handler.(domain.WebhookHandler)
	require.False(t, ok)
}

func TestConektaAndKueskiApproveWithoutLiveCheck(t *testing.T) {
	ctx := context.Background()
	conekta := NewConekta(fakeConektaAPI{}, nil, Options{})
	kueski := NewKueski(fakeKueskiAPI{}, nil, Options{})

	res := conekta.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("99"), Order: testOrder})
	require.Equal(t, "ord_conekta", res.MethodID)
	require.Equal(t, "https://pay.conekta.test/ord_conekta", res.Link)

	res = kueski.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("99"), Order: testOrder})
	require.Equal(t, "kp_ord-1", res.MethodID)

	require.Equal(t, domain.StatusApproved, conekta.ApprovePayment(ctx, pendingPayment(domain.MethodConekta, "ord_conekta", "99")).Result)
	require.Equal(t, domain.StatusApproved, kueski.ApprovePayment(ctx, pendingPayment(domain.MethodKueskiPay, "kp_1", "99")).Result)

	_, err := conekta.CancelPayment(ctx, pendingPayment(domain.MethodConekta, "ord_conekta", "99"))
	require.Equal(t, "Conekta payments cannot be cancelled", domain.DeclineReason(err))
	_, err = kueski.CancelPayment(ctx, pendingPayment(domain.MethodKueskiPay, "kp_1", "99"))
	require.Equal(t, "Kueski Pay payments cannot be cancelled", domain.DeclineReason(err))

	require.Equal(t, "01", conekta.CFDIPaymentForm())
	require.Equal(t, "99", kueski.CFDIPaymentForm())
}

func TestConektaAndKueskiWebhookEvents(t *testing.T) {
	ctx := context.Background()
	conekta := NewConekta(fakeConektaAPI{}, nil, Options{})
	kueski := NewKueski(fakeKueskiAPI{}, nil, Options{})

	approver := &recordingApprover{}
	require.NoError(t, conekta.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"type":"order.paid","data":{"object":{"id":"ord_1"}}}`)}, approver))
	require.NoError(t, conekta.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"type":"charge.paid","data":{"object":{"id":"chr_1","order_id":"ord_2"}}}`)}, approver))
	require.NoError(t, conekta.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"type":"order.canceled","data":{"object":{"id":"ord_3"}}}`)}, approver))
	require.Equal(t, []string{"CONEKTA:ord_1", "CONEKTA:ord_2"}, approver.lookups)

	approver = &recordingApprover{}
	require.NoError(t, kueski.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"event":"payment.approved","payment_id":"kp_1"}`)}, approver))
	require.NoError(t, kueski.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"id":"kp_2"}`)}, approver))
	require.NoError(t, kueski.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"event":"payment.rejected","payment_id":"kp_3"}`)}, approver))
	require.Equal(t, []string{"KUESKIPAY:kp_1", "KUESKIPAY:kp_2"}, approver.lookups)
}

func TestStripeHandler(t *testing.T) {
	api := &fakeStripeAPI{payments: map[string]*adapters.StripePayment{
		"pi_1": {ID: "pi_1", Status: "succeeded", Amount: dec("100")},
		"pi_2": {ID: "pi_2", Status: "processing", Amount: dec("100")},
	}}
	h := NewGooglePay(api, nil, Options{})
	ctx := context.Background()

	res := h.RequestPayment(ctx, domain.PaymentRequest{Amount: dec("100"), MethodData: domain.MethodData{PaymentMethodID: "pi_1"}})
	require.Equal(t, domain.StatusPending, res.Result)
	require.Equal(t, "pi_1", res.MethodID)

	require.Equal(t, domain.StatusApproved, h.ApprovePayment(ctx, pendingPayment(domain.MethodGooglePay, "pi_1", "100.00")).Result)
	require.Equal(t, "Stripe Status: processing", h.ApprovePayment(ctx, pendingPayment(domain.MethodGooglePay, "pi_2", "100")).Reason)
	require.Equal(t, "Invalid amount!", h.ApprovePayment(ctx, pendingPayment(domain.MethodGooglePay, "pi_1", "99.99")).Reason)

	approver := &recordingApprover{}
	require.NoError(t, h.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)}, approver))
	require.NoError(t, h.ProcessWebhook(ctx, domain.WebhookRequest{Body: []byte(`{"id":"evt_2","type":"charge.failed","data":{"object":{"id":"ch_2"}}}`)}, approver))
	require.Equal(t, []string{"GOOGLEPAY:pi_1"}, approver.lookups)

	stripeHandler := NewStripe(api, nil, Options{})
	require.Equal(t, domain.MethodStripe, stripeHandler.Method())

	custom := NewGooglePay(api, nil, Options{Method: "WALLET"})
	require.Equal(t, domain.Method("WALLET"), custom.Method())
}

package verifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func signHex(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(body string, headers map[string]string) domain.WebhookRequest {
	h := http.Header{}
	for key, value := range headers {
		h.Set(key, value)
	}
	return domain.WebhookRequest{Body: []byte(body), Headers: h, Query: url.Values{}}
}

func stripeRequest(secret, body string, ts time.Time) domain.WebhookRequest {
	unix := strconv.FormatInt(ts.Unix(), 10)
	header := fmt.Sprintf("t=%s,v1=%s", unix, signHex(secret, unix+"."+body))
	return webhookRequest(body, map[string]string{"Stripe-Signature": header})
}

func TestStripeVerify(t *testing.T) {
	const (
		secret = "whsec_test"
		body   = `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`
	)
	v := NewStripe(StripeConfig{Secret: secret}, clock.NewFakeClock(testNow))

	res := v.Verify(context.Background(), stripeRequest(secret, body, testNow))
	if !res.Valid {
		t.Fatalf("expected valid signature, got %q", res.Reason)
	}
	if res.EventID != "evt_1" {
		t.Fatalf("expected event id evt_1, got %q", res.EventID)
	}
}

func TestStripeVerifyRejectsMutations(t *testing.T) {
	const (
		secret = "whsec_test"
		body   = `{"id":"evt_1"}`
	)
	v := NewStripe(StripeConfig{Secret: secret}, clock.NewFakeClock(testNow))

	mutatedBody := stripeRequest(secret, body, testNow)
	mutatedBody.Body = []byte(`{"id":"evt_2"}`)

	wrongSecret := stripeRequest("whsec_other", body, testNow)

	unix := strconv.FormatInt(testNow.Unix(), 10)
	sig := []byte(signHex(secret, unix+"."+body))
	if sig[0] == 'a' {
		sig[0] = 'b'
	} else {
		sig[0] = 'a'
	}
	mutatedSig := webhookRequest(body, map[string]string{"Stripe-Signature": "t=" + unix + ",v1=" + string(sig)})

	for name, req := range map[string]domain.WebhookRequest{
		"body":      mutatedBody,
		"secret":    wrongSecret,
		"signature": mutatedSig,
	} {
		res := v.Verify(context.Background(), req)
		if res.Valid {
			t.Fatalf("%s mutation: expected invalid signature", name)
		}
		if res.Reason != "Signature mismatch" {
			t.Fatalf("%s mutation: unexpected reason %q", name, res.Reason)
		}
	}
}

func TestStripeVerifyRejectsOldTimestamp(t *testing.T) {
	const secret = "whsec_test"
	v := NewStripe(StripeConfig{Secret: secret}, clock.NewFakeClock(testNow))

	old := testNow.Add(-DefaultStripeTolerance - time.Second)
	res := v.Verify(context.Background(), stripeRequest(secret, `{"id":"evt_1"}`, old))
	if res.Valid {
		t.Fatalf("expected stale timestamp to be rejected")
	}
	if res.Reason != "Timestamp outside tolerance" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}

	future := testNow.Add(DefaultStripeTolerance + time.Second)
	if res := v.Verify(context.Background(), stripeRequest(secret, `{"id":"evt_1"}`, future)); res.Valid {
		t.Fatalf("expected future timestamp to be rejected")
	}
}

func TestStripeVerifyHeaderErrors(t *testing.T) {
	v := NewStripe(StripeConfig{Secret: "whsec_test"}, clock.NewFakeClock(testNow))

	cases := map[string]struct {
		header string
		reason string
	}{
		"missing":      {"", "Missing signature or secret"},
		"no timestamp": {"v1=abcd", "Malformed signature header"},
		"no signature": {"t=1700000000", "Malformed signature header"},
		"bad pairs":    {"garbage", "Malformed signature header"},
	}
	for name, tc := range cases {
		res := v.Verify(context.Background(), webhookRequest(`{}`, map[string]string{"Stripe-Signature": tc.header}))
		if res.Valid || res.Reason != tc.reason {
			t.Fatalf("%s: expected %q, got valid=%v reason=%q", name, tc.reason, res.Valid, res.Reason)
		}
	}

	noSecret := NewStripe(StripeConfig{}, clock.NewFakeClock(testNow))
	res := noSecret.Verify(context.Background(), stripeRequest("x", `{}`, testNow))
	if res.Valid || res.Reason != "Missing signature or secret" {
		t.Fatalf("expected missing secret failure, got %+v", res)
	}
}

func TestMercadoPagoVerify(t *testing.T) {
	const secret = "mp_secret"
	manifest := "id:555;request-id:req-9;ts:1700000000;"
	req := webhookRequest(`{"data":{"id":555}}`, map[string]string{
		"x-signature":  "ts=1700000000,v1=" + signHex(secret, manifest),
		"x-request-id": "req-9",
	})

	v := NewMercadoPago(MercadoPagoConfig{Secret: secret}, clock.NewFakeClock(testNow))
	res := v.Verify(context.Background(), req)
	if !res.Valid {
		t.Fatalf("expected valid signature, got %q", res.Reason)
	}
	if res.EventID != "555" {
		t.Fatalf("expected event id 555, got %q", res.EventID)
	}
}

func TestMercadoPagoVerifyPrefersQueryDataID(t *testing.T) {
	const secret = "mp_secret"
	manifest := "id:777;request-id:req-1;ts:1700000000;"
	req := webhookRequest(`{"data":{"id":555}}`, map[string]string{
		"x-signature":  "ts=1700000000,v1=" + signHex(secret, manifest),
		"x-request-id": "req-1",
	})
	req.Query.Set("data.id", "777")

	res := NewMercadoPago(MercadoPagoConfig{Secret: secret}, nil).Verify(context.Background(), req)
	if !res.Valid || res.EventID != "777" {
		t.Fatalf("expected query id to be signed and used, got %+v", res)
	}
}

func TestMercadoPagoVerifyFailures(t *testing.T) {
	v := NewMercadoPago(MercadoPagoConfig{Secret: "mp_secret"}, nil)

	missing := v.Verify(context.Background(), webhookRequest(`{}`, map[string]string{"x-signature": "ts=1,v1=aa"}))
	if missing.Reason != "Missing headers or secret" {
		t.Fatalf("unexpected reason %q", missing.Reason)
	}

	malformed := v.Verify(context.Background(), webhookRequest(`{}`, map[string]string{
		"x-signature":  "v1=aa",
		"x-request-id": "req-9",
	}))
	if malformed.Reason != "Malformed x-signature" {
		t.Fatalf("unexpected reason %q", malformed.Reason)
	}

	mismatch := v.Verify(context.Background(), webhookRequest(`{"data":{"id":555}}`, map[string]string{
		"x-signature":  "ts=1700000000,v1=" + signHex("other", "id:555;request-id:req-9;ts:1700000000;"),
		"x-request-id": "req-9",
	}))
	if mismatch.Valid || mismatch.Reason != "Signature mismatch" {
		t.Fatalf("expected mismatch, got %+v", mismatch)
	}
}

func TestConektaVerify(t *testing.T) {
	const (
		secret = "key_conekta"
		body   = `{"id":"evt_conekta","type":"order.paid","data":{"object":{"id":"ord_1"}}}`
	)
	v := NewConekta(ConektaConfig{Secret: secret})

	res := v.Verify(context.Background(), webhookRequest(body, map[string]string{
		"Digest": "sha-256=" + signBase64(secret, body),
	}))
	if !res.Valid || res.EventID != "evt_conekta" {
		t.Fatalf("expected valid digest, got %+v", res)
	}

	cases := map[string]struct {
		digest string
		reason string
	}{
		"missing":  {"", "Missing Digest header"},
		"format":   {"md5=abc", "Invalid Digest format"},
		"mismatch": {"sha-256=" + signBase64("other", body), "Digest mismatch"},
		"encoding": {"sha-256=%%%", "Digest mismatch"},
	}
	for name, tc := range cases {
		res := v.Verify(context.Background(), webhookRequest(body, map[string]string{"Digest": tc.digest}))
		if res.Valid || res.Reason != tc.reason {
			t.Fatalf("%s: expected %q, got %+v", name, tc.reason, res)
		}
	}

	noSecret := NewConekta(ConektaConfig{}).Verify(context.Background(), webhookRequest(body, map[string]string{"Digest": "sha-256=x"}))
	if noSecret.Reason != "Missing Conekta secret" {
		t.Fatalf("unexpected reason %q", noSecret.Reason)
	}
}

func TestKueskiVerify(t *testing.T) {
	const (
		secret = "kueski_secret"
		ts     = "1714564800"
	)
	v := NewKueski(KueskiConfig{Secret: secret}, clock.NewFakeClock(testNow))

	body := `{"event_id":"kev_1","payment_id":"kp_1","status":"approved"}`
	res := v.Verify(context.Background(), webhookRequest(body, map[string]string{
		"X-Kueski-Signature": signHex(secret, ts+body),
		"X-Kueski-Timestamp": ts,
	}))
	if !res.Valid || res.EventID != "kev_1" {
		t.Fatalf("expected valid signature with event id, got %+v", res)
	}

	bare := `{"status":"approved"}`
	res = v.Verify(context.Background(), webhookRequest(bare, map[string]string{
		"X-Kueski-Signature": signHex(secret, ts+bare),
		"X-Kueski-Timestamp": ts,
	}))
	if !res.Valid || res.EventID != ts {
		t.Fatalf("expected timestamp as event id, got %+v", res)
	}

	res = v.Verify(context.Background(), webhookRequest(body, map[string]string{"X-Kueski-Timestamp": ts}))
	if res.Reason != "Missing Kueski Pay headers or secret" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestKueskiVerifyTolerance(t *testing.T) {
	const secret = "kueski_secret"
	v := NewKueski(KueskiConfig{Secret: secret, Tolerance: time.Minute}, clock.NewFakeClock(testNow))

	ts := strconv.FormatInt(testNow.Add(-2*time.Minute).Unix(), 10)
	body := `{"id":"k1"}`
	res := v.Verify(context.Background(), webhookRequest(body, map[string]string{
		"X-Kueski-Signature": signHex(secret, ts+body),
		"X-Kueski-Timestamp": ts,
	}))
	if res.Valid || res.Reason != "Timestamp outside tolerance" {
		t.Fatalf("expected tolerance failure, got %+v", res)
	}
}

func TestOpenpayVerify(t *testing.T) {
	const (
		secret = "openpay_secret"
		body   = `{"type":"charge.succeeded","id":"op_evt","transaction":{"id":"tr_1"}}`
	)
	v := NewOpenpay(OpenpayConfig{Secret: secret}, clock.NewFakeClock(testNow))

	header := "t=1714564800,v1=" + signHex(secret, "1714564800."+body)
	for _, name := range []string{"verification-signature", "signature-digest"} {
		res := v.Verify(context.Background(), webhookRequest(body, map[string]string{name: header}))
		if !res.Valid || res.EventID != "op_evt" {
			t.Fatalf("%s: expected valid signature, got %+v", name, res)
		}
	}

	res := v.Verify(context.Background(), webhookRequest(body, map[string]string{"verification-signature": "t=1714564800"}))
	if res.Reason != "Malformed signature header" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
	res = v.Verify(context.Background(), webhookRequest(body, nil))
	if res.Reason != "Missing signature header or secret" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

type fakePayPalClient struct {
	status string
	err    error
	got    adapters.PayPalVerifyRequest
	calls  int
}

func (f *fakePayPalClient) VerifyWebhookSignature(_ context.Context, req adapters.PayPalVerifyRequest) (string, error) {
	f.calls++
	f.got = req
	return f.status, f.err
}

func payPalHeaders() map[string]string {
	return map[string]string{
		"PAYPAL-AUTH-ALGO":         "SHA256withRSA",
		"PAYPAL-CERT-URL":          "https://api.paypal.com/cert",
		"PAYPAL-TRANSMISSION-ID":   "tx-1",
		"PAYPAL-TRANSMISSION-SIG":  "sig",
		"PAYPAL-TRANSMISSION-TIME": "2024-05-01T12:00:00Z",
	}
}

func TestPayPalVerify(t *testing.T) {
	cfg := PayPalConfig{WebhookID: "WH-1", ClientID: "client", ClientSecret: "secret"}
	body := `{"id":"WH-EVT-1","event_type":"PAYMENT.CAPTURE.COMPLETED"}`

	client := &fakePayPalClient{status: "SUCCESS"}
	res := NewPayPal(cfg, client).Verify(context.Background(), webhookRequest(body, payPalHeaders()))
	if !res.Valid || res.EventID != "WH-EVT-1" {
		t.Fatalf("expected valid verification, got %+v", res)
	}
	if client.got.WebhookID != "WH-1" || client.got.TransmissionID != "tx-1" {
		t.Fatalf("unexpected verification request %+v", client.got)
	}

	failed := NewPayPal(cfg, &fakePayPalClient{status: "FAILURE"}).Verify(context.Background(), webhookRequest(body, payPalHeaders()))
	if failed.Valid || failed.Reason != "FAILURE" {
		t.Fatalf("expected FAILURE, got %+v", failed)
	}
}

func TestPayPalVerifyFailures(t *testing.T) {
	cfg := PayPalConfig{WebhookID: "WH-1", ClientID: "client", ClientSecret: "secret"}
	body := `{"id":"WH-EVT-1"}`

	unconfigured := &fakePayPalClient{status: "SUCCESS"}
	res := NewPayPal(PayPalConfig{WebhookID: "WH-1"}, unconfigured).Verify(context.Background(), webhookRequest(body, payPalHeaders()))
	if res.Reason != "Missing PayPal configuration" || unconfigured.calls != 0 {
		t.Fatalf("expected configuration failure without remote call, got %+v", res)
	}

	headers := payPalHeaders()
	delete(headers, "PAYPAL-CERT-URL")
	res = NewPayPal(cfg, &fakePayPalClient{status: "SUCCESS"}).Verify(context.Background(), webhookRequest(body, headers))
	if res.Reason != "Missing transmission headers" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}

	oauth := &fakePayPalClient{err: fmt.Errorf("%w: status 401", adapters.ErrOAuthFailed)}
	res = NewPayPal(cfg, oauth).Verify(context.Background(), webhookRequest(body, payPalHeaders()))
	if res.Reason != "OAuth token request failed" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}

	apiErr := &fakePayPalClient{err: errors.New("boom")}
	res = NewPayPal(cfg, apiErr).Verify(context.Background(), webhookRequest(body, payPalHeaders()))
	if res.Reason != "Verify signature API error" {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestParseSignatureHeader(t *testing.T) {
	parts := parseSignatureHeader(" t=1 , v1=aa,v1=bb,, junk ,v0= cc ")
	if first(parts, "t") != "1" {
		t.Fatalf("unexpected t %q", first(parts, "t"))
	}
	if got := parts["v1"]; len(got) != 2 || got[1] != "bb" {
		t.Fatalf("unexpected v1 values %v", got)
	}
	if first(parts, "v0") != "cc" {
		t.Fatalf("unexpected v0 %q", first(parts, "v0"))
	}
}

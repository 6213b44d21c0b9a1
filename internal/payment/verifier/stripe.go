package verifier

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

type StripeConfig struct {
	Secret string
	// Tolerance defaults to DefaultStripeTolerance when zero. Use a negative
	// value to disable the timestamp check.
	Tolerance time.Duration
}

// Stripe verifies the Stripe-Signature header (t=<unix>,v1=<hex>) over
// "<t>.<raw body>". GooglePay notifications arrive through Stripe and share it.
type Stripe struct {
	cfg   StripeConfig
	clock clock.Clock
}

func NewStripe(cfg StripeConfig, clk clock.Clock) *Stripe {
	if cfg.Tolerance == 0 {
		cfg.Tolerance = DefaultStripeTolerance
	}
	return &Stripe{cfg: cfg, clock: clockOrSystem(clk)}
}

func (v *Stripe) Verify(_ context.Context, req domain.WebhookRequest) domain.VerificationResult {
	header := req.Header("Stripe-Signature")
	if header == "" || v.cfg.Secret == "" {
		return domain.VerificationFailed("Missing signature or secret")
	}

	parts := parseSignatureHeader(header)
	ts, ok := parseUnix(first(parts, "t"))
	signatures := parts["v1"]
	if !ok || len(signatures) == 0 {
		return domain.VerificationFailed("Malformed signature header")
	}
	if !withinTolerance(v.clock, ts, v.cfg.Tolerance) {
		return domain.VerificationFailed(reasonTimestampSkew)
	}

	expected := webhook.ComputeSignature(ts, req.Body, v.cfg.Secret)
	matched := false
	for _, signature := range signatures {
		if equalHex(expected, signature) {
			matched = true
			break
		}
	}
	if !matched {
		return domain.VerificationFailed(reasonSignatureMismatch)
	}

	doc, _ := payload.Parse(req.Body)
	return domain.Verified(doc.String("id"))
}

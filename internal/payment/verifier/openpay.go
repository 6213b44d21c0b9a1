package verifier

import (
	"context"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

type OpenpayConfig struct {
	Secret    string
	Tolerance time.Duration
}

// Openpay verifies verification-signature (or signature-digest), formatted
// t=<unix>,v1=<hex>, over "<t>.<raw body>". The raw body is signed as
// received; it is never re-encoded.
type Openpay struct {
	cfg   OpenpayConfig
	clock clock.Clock
}

func NewOpenpay(cfg OpenpayConfig, clk clock.Clock) *Openpay {
	return &Openpay{cfg: cfg, clock: clockOrSystem(clk)}
}

func (v *Openpay) Verify(_ context.Context, req domain.WebhookRequest) domain.VerificationResult {
	header := req.Header("verification-signature")
	if header == "" {
		header = req.Header("signature-digest")
	}
	if header == "" || v.cfg.Secret == "" {
		return domain.VerificationFailed("Missing signature header or secret")
	}

	parts := parseSignatureHeader(header)
	ts := first(parts, "t")
	signature := first(parts, "v1")
	if ts == "" || signature == "" {
		return domain.VerificationFailed("Malformed signature header")
	}
	if v.cfg.Tolerance > 0 {
		issued, ok := parseUnix(ts)
		if !ok || !withinTolerance(v.clock, issued, v.cfg.Tolerance) {
			return domain.VerificationFailed(reasonTimestampSkew)
		}
	}

	signed := make([]byte, 0, len(ts)+1+len(req.Body))
	signed = append(signed, ts...)
	signed = append(signed, '.')
	signed = append(signed, req.Body...)
	if !equalHex(computeHMAC(v.cfg.Secret, signed), signature) {
		return domain.VerificationFailed(reasonSignatureMismatch)
	}

	doc, _ := payload.Parse(req.Body)
	return domain.Verified(doc.FirstString("id", "event_id"))
}

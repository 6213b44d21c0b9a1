package verifier

import (
	"context"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

type KueskiConfig struct {
	Secret    string
	Tolerance time.Duration
}

// Kueski verifies X-Kueski-Signature, the hex HMAC of
// X-Kueski-Timestamp immediately followed by the raw body.
type Kueski struct {
	cfg   KueskiConfig
	clock clock.Clock
}

func NewKueski(cfg KueskiConfig, clk clock.Clock) *Kueski {
	return &Kueski{cfg: cfg, clock: clockOrSystem(clk)}
}

func (v *Kueski) Verify(_ context.Context, req domain.WebhookRequest) domain.VerificationResult {
	signature := req.Header("X-Kueski-Signature")
	timestamp := req.Header("X-Kueski-Timestamp")
	if signature == "" || timestamp == "" || v.cfg.Secret == "" {
		return domain.VerificationFailed("Missing Kueski Pay headers or secret")
	}
	if v.cfg.Tolerance > 0 {
		issued, ok := parseUnix(timestamp)
		if !ok || !withinTolerance(v.clock, issued, v.cfg.Tolerance) {
			return domain.VerificationFailed(reasonTimestampSkew)
		}
	}

	signed := append([]byte(timestamp), req.Body...)
	if !equalHex(computeHMAC(v.cfg.Secret, signed), signature) {
		return domain.VerificationFailed(reasonSignatureMismatch)
	}

	eventID := timestamp
	if doc, err := payload.Parse(req.Body); err == nil {
		if id := doc.FirstString("event_id", "id"); id != "" {
			eventID = id
		}
	}
	return domain.Verified(eventID)
}

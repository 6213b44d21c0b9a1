package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

type MercadoPagoConfig struct {
	Secret string
	// Tolerance applies to the ts component of x-signature; zero disables it.
	Tolerance time.Duration
}

// MercadoPago verifies x-signature (ts=<unix>,v1=<hex>) over the manifest
// "id:<data id>;request-id:<x-request-id>;ts:<ts>;".
type MercadoPago struct {
	cfg   MercadoPagoConfig
	clock clock.Clock
}

func NewMercadoPago(cfg MercadoPagoConfig, clk clock.Clock) *MercadoPago {
	return &MercadoPago{cfg: cfg, clock: clockOrSystem(clk)}
}

func (v *MercadoPago) Verify(_ context.Context, req domain.WebhookRequest) domain.VerificationResult {
	signature := req.Header("x-signature")
	requestID := req.Header("x-request-id")
	if signature == "" || requestID == "" || v.cfg.Secret == "" {
		return domain.VerificationFailed("Missing headers or secret")
	}

	parts := parseSignatureHeader(signature)
	ts := first(parts, "ts")
	v1 := first(parts, "v1")
	if ts == "" || v1 == "" {
		return domain.VerificationFailed("Malformed x-signature")
	}
	if v.cfg.Tolerance > 0 {
		issued, ok := parseUnix(ts)
		if !ok || !withinTolerance(v.clock, issued, v.cfg.Tolerance) {
			return domain.VerificationFailed(reasonTimestampSkew)
		}
	}

	dataID := mercadoPagoDataID(req)
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	if !equalHex(computeHMAC(v.cfg.Secret, []byte(manifest)), v1) {
		return domain.VerificationFailed(reasonSignatureMismatch)
	}

	if dataID == "" {
		return domain.Verified(requestID)
	}
	return domain.Verified(dataID)
}

// mercadoPagoDataID resolves the notified resource id from the query string
// first, then from the body.
func mercadoPagoDataID(req domain.WebhookRequest) string {
	if id := req.QueryValue("data.id"); id != "" {
		return id
	}
	if id := req.QueryValue("id"); id != "" {
		return id
	}
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return ""
	}
	return doc.FirstString("data.id", "id")
}

package verifier

import (
	"context"
	"strings"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

const conektaDigestPrefix = "sha-256="

type ConektaConfig struct {
	Secret string
}

// Conekta verifies "Digest: sha-256=<base64 HMAC-SHA256(secret, body)>".
type Conekta struct {
	cfg ConektaConfig
}

func NewConekta(cfg ConektaConfig) *Conekta {
	return &Conekta{cfg: cfg}
}

func (v *Conekta) Verify(_ context.Context, req domain.WebhookRequest) domain.VerificationResult {
	digest := req.Header("Digest")
	if digest == "" {
		return domain.VerificationFailed("Missing Digest header")
	}
	if v.cfg.Secret == "" {
		return domain.VerificationFailed("Missing Conekta secret")
	}
	if !strings.HasPrefix(digest, conektaDigestPrefix) {
		return domain.VerificationFailed("Invalid Digest format")
	}

	provided := strings.TrimPrefix(digest, conektaDigestPrefix)
	if !equalBase64(computeHMAC(v.cfg.Secret, req.Body), provided) {
		return domain.VerificationFailed("Digest mismatch")
	}

	doc, _ := payload.Parse(req.Body)
	return domain.Verified(doc.String("id"))
}

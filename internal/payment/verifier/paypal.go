package verifier

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

const payPalVerificationSuccess = "SUCCESS"

var payPalTransmissionHeaders = []string{
	"PAYPAL-AUTH-ALGO",
	"PAYPAL-CERT-URL",
	"PAYPAL-TRANSMISSION-ID",
	"PAYPAL-TRANSMISSION-SIG",
	"PAYPAL-TRANSMISSION-TIME",
}

// PayPalSignatureClient is the remote verification endpoint.
type PayPalSignatureClient interface {
	VerifyWebhookSignature(ctx context.Context, req adapters.PayPalVerifyRequest) (string, error)
}

type PayPalConfig struct {
	WebhookID    string
	ClientID     string
	ClientSecret string
}

// PayPal delegates verification to PayPal's verify-webhook-signature API.
// Only a SUCCESS verification_status passes.
type PayPal struct {
	cfg    PayPalConfig
	client PayPalSignatureClient
}

func NewPayPal(cfg PayPalConfig, client PayPalSignatureClient) *PayPal {
	return &PayPal{cfg: cfg, client: client}
}

func (v *PayPal) Verify(ctx context.Context, req domain.WebhookRequest) domain.VerificationResult {
	if v.cfg.WebhookID == "" || v.cfg.ClientID == "" || v.cfg.ClientSecret == "" || v.client == nil {
		return domain.VerificationFailed("Missing PayPal configuration")
	}

	values := make([]string, len(payPalTransmissionHeaders))
	for i, name := range payPalTransmissionHeaders {
		values[i] = req.Header(name)
		if values[i] == "" {
			return domain.VerificationFailed("Missing transmission headers")
		}
	}
	if !json.Valid(req.Body) {
		return domain.VerificationFailed(reasonInvalidPayload)
	}

	status, err := v.client.VerifyWebhookSignature(ctx, adapters.PayPalVerifyRequest{
		AuthAlgo:         values[0],
		CertURL:          values[1],
		TransmissionID:   values[2],
		TransmissionSig:  values[3],
		TransmissionTime: values[4],
		WebhookID:        v.cfg.WebhookID,
		WebhookEvent:     json.RawMessage(req.Body),
	})
	switch {
	case errors.Is(err, adapters.ErrOAuthFailed):
		return domain.VerificationFailed("OAuth token request failed")
	case errors.Is(err, adapters.ErrNotConfigured):
		return domain.VerificationFailed("Missing PayPal configuration")
	case err != nil:
		return domain.VerificationFailed("Verify signature API error")
	}

	if status != payPalVerificationSuccess {
		if status == "" {
			status = "Verify signature API error"
		}
		return domain.VerificationFailed(status)
	}

	doc, _ := payload.Parse(req.Body)
	return domain.Verified(doc.String("id"))
}

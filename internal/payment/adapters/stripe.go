package adapters

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

type StripeConfig struct {
	APIKey string
	// BaseURL overrides the Stripe API endpoint.
	BaseURL string
}

// StripePayment is the normalized view of a charge or payment intent.
type StripePayment struct {
	ID     string
	Status string
	// Amount is in major currency units.
	Amount   decimal.Decimal
	Currency string
}

// Stripe retrieves and refunds charges through stripe-go.
type Stripe struct {
	api *client.API
}

func NewStripe(cfg StripeConfig, httpClient *http.Client) *Stripe {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	backendCfg := &stripe.BackendConfig{HTTPClient: httpClient}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)
	api := &client.API{}
	api.Init(cfg.APIKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Stripe{api: api}
}

func isPaymentIntentID(id string) bool {
	return strings.HasPrefix(id, "pi_")
}

// RetrievePayment loads a payment intent (pi_*) or a charge.
func (s *Stripe) RetrievePayment(ctx context.Context, id string) (*StripePayment, error) {
	if isPaymentIntentID(id) {
		params := &stripe.PaymentIntentParams{}
		params.Context = ctx
		intent, err := s.api.PaymentIntents.Get(id, params)
		if err != nil {
			return nil, err
		}
		return &StripePayment{
			ID:       intent.ID,
			Status:   string(intent.Status),
			Amount:   decimal.New(intent.Amount, -2),
			Currency: string(intent.Currency),
		}, nil
	}

	params := &stripe.ChargeParams{}
	params.Context = ctx
	charge, err := s.api.Charges.Get(id, params)
	if err != nil {
		return nil, err
	}
	return &StripePayment{
		ID:       charge.ID,
		Status:   string(charge.Status),
		Amount:   decimal.New(charge.Amount, -2),
		Currency: string(charge.Currency),
	}, nil
}

// Refund issues a full refund for a charge or payment intent.
func (s *Stripe) Refund(ctx context.Context, id string) error {
	params := &stripe.RefundParams{}
	params.Context = ctx
	if isPaymentIntentID(id) {
		params.PaymentIntent = stripe.String(id)
	} else {
		params.Charge = stripe.String(id)
	}
	_, err := s.api.Refunds.New(params)
	return err
}

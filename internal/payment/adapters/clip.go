package adapters

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

const clipURL = "https://api.clip.mx"

type ClipConfig struct {
	APIKey   string
	BaseURL  string
	Currency string
}

type ClipPayment struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	PaymentURL string          `json:"payment_url"`
}

type Clip struct {
	cfg  ClipConfig
	rest restClient
}

func NewClip(cfg ClipConfig, client *http.Client) *Clip {
	if cfg.BaseURL == "" {
		cfg.BaseURL = clipURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "MXN"
	}
	return &Clip{cfg: cfg, rest: newRESTClient("clip", client)}
}

func (c *Clip) auth() (requestOption, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return withBearer(c.cfg.APIKey), nil
}

func (c *Clip) CreatePayment(ctx context.Context, amount decimal.Decimal, description string) (*ClipPayment, error) {
	auth, err := c.auth()
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"amount":      amount.InexactFloat64(),
		"currency":    c.cfg.Currency,
		"description": description,
	}
	var payment ClipPayment
	if err := c.rest.doJSON(ctx, "payment creation", http.MethodPost, joinURL(c.cfg.BaseURL, "/v1/payments"), body, &payment, auth); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Clip) GetPayment(ctx context.Context, paymentID string) (*ClipPayment, error) {
	auth, err := c.auth()
	if err != nil {
		return nil, err
	}
	var payment ClipPayment
	endpoint := joinURL(c.cfg.BaseURL, "/v1/payments", url.PathEscape(paymentID))
	if err := c.rest.doJSON(ctx, "payment details", http.MethodGet, endpoint, nil, &payment, auth); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Clip) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) error {
	auth, err := c.auth()
	if err != nil {
		return err
	}
	endpoint := joinURL(c.cfg.BaseURL, "/v1/payments", url.PathEscape(paymentID), "refund")
	return c.rest.doJSON(ctx, "refund", http.MethodPost, endpoint, map[string]any{"amount": amount.InexactFloat64()}, nil, auth)
}

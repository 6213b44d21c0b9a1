package adapters

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

const conektaURL = "https://api.conekta.io"

type ConektaConfig struct {
	APIKey   string
	BaseURL  string
	Currency string
}

// ConektaOrder is the subset of an order with a hosted checkout.
type ConektaOrder struct {
	ID       string `json:"id"`
	Checkout struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"checkout"`
}

func (o *ConektaOrder) PaymentURL() string {
	if o == nil {
		return ""
	}
	return o.Checkout.URL
}

type Conekta struct {
	cfg  ConektaConfig
	rest restClient
}

func NewConekta(cfg ConektaConfig, client *http.Client) *Conekta {
	if cfg.BaseURL == "" {
		cfg.BaseURL = conektaURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "MXN"
	}
	return &Conekta{cfg: cfg, rest: newRESTClient("conekta", client)}
}

// CreateCashOrder opens an OXXO cash order with a hosted payment page.
func (c *Conekta) CreateCashOrder(ctx context.Context, amount decimal.Decimal, description, customerName, customerEmail string) (*ConektaOrder, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	body := map[string]any{
		"currency": c.cfg.Currency,
		"customer_info": map[string]string{
			"name":  customerName,
			"email": customerEmail,
		},
		"line_items": []map[string]any{{
			"name":       description,
			"unit_price": amount.Shift(2).Round(0).IntPart(),
			"quantity":   1,
		}},
		"checkout": map[string]any{
			"type":                    "HostedPayment",
			"allowed_payment_methods": []string{"cash"},
		},
	}
	var order ConektaOrder
	err := c.rest.doJSON(ctx, "order creation", http.MethodPost, joinURL(c.cfg.BaseURL, "/orders"), body, &order,
		withBearer(c.cfg.APIKey),
		withHeader("Accept", "application/vnd.conekta-v2.1.0+json"),
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

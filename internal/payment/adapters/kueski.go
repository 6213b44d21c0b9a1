package adapters

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

const (
	kueskiSandboxURL = "https://testing.kueskipay.com"
	kueskiLiveURL    = "https://api.kueskipay.com"
)

type KueskiConfig struct {
	APIKey   string
	Sandbox  bool
	BaseURL  string
	Currency string
}

type KueskiPayment struct {
	ID         string `json:"payment_id"`
	PaymentURL string `json:"callback_url"`
	Status     string `json:"status"`
}

type Kueski struct {
	cfg  KueskiConfig
	rest restClient
}

func NewKueski(cfg KueskiConfig, client *http.Client) *Kueski {
	if cfg.BaseURL == "" {
		cfg.BaseURL = kueskiLiveURL
		if cfg.Sandbox {
			cfg.BaseURL = kueskiSandboxURL
		}
	}
	if cfg.Currency == "" {
		cfg.Currency = "MXN"
	}
	return &Kueski{cfg: cfg, rest: newRESTClient("kueski", client)}
}

// CreatePayment registers a pay-later payment and returns the payer redirect.
func (k *Kueski) CreatePayment(ctx context.Context, amount decimal.Decimal, description, orderID string) (*KueskiPayment, error) {
	if k.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	body := map[string]any{
		"order_id":    orderID,
		"description": description,
		"amount": map[string]any{
			"total":    amount.StringFixed(2),
			"currency": k.cfg.Currency,
		},
	}
	var out struct {
		Data KueskiPayment `json:"data"`
	}
	if err := k.rest.doJSON(ctx, "payment creation", http.MethodPost, joinURL(k.cfg.BaseURL, "/v1/payments"), body, &out, withBearer(k.cfg.APIKey)); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

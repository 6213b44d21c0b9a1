package adapters

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

const (
	openpaySandboxURL = "https://sandbox-api.openpay.mx/v1"
	openpayLiveURL    = "https://api.openpay.mx/v1"
)

type OpenpayConfig struct {
	MerchantID string
	PrivateKey string
	Sandbox    bool
	BaseURL    string
}

type OpenpayCharge struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"payment_method"`
}

type Openpay struct {
	cfg  OpenpayConfig
	rest restClient
}

func NewOpenpay(cfg OpenpayConfig, client *http.Client) *Openpay {
	return &Openpay{cfg: cfg, rest: newRESTClient("openpay", client)}
}

func (o *Openpay) merchantURL() (string, error) {
	if o.cfg.MerchantID == "" || o.cfg.PrivateKey == "" {
		return "", ErrNotConfigured
	}
	base := o.cfg.BaseURL
	if base == "" {
		base = openpayLiveURL
		if o.cfg.Sandbox {
			base = openpaySandboxURL
		}
	}
	return joinURL(base, url.PathEscape(o.cfg.MerchantID)), nil
}

// CreateBankCharge opens a bank transfer charge for the customer.
func (o *Openpay) CreateBankCharge(ctx context.Context, amount decimal.Decimal, description, customerName, customerEmail string) (*OpenpayCharge, error) {
	base, err := o.merchantURL()
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"method":      "bank_account",
		"amount":      amount.InexactFloat64(),
		"description": description,
		"customer": map[string]string{
			"name":  customerName,
			"email": customerEmail,
		},
	}
	var charge OpenpayCharge
	if err := o.rest.doJSON(ctx, "charge creation", http.MethodPost, joinURL(base, "charges"), body, &charge, withBasicAuth(o.cfg.PrivateKey, "")); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (o *Openpay) GetCharge(ctx context.Context, chargeID string) (*OpenpayCharge, error) {
	base, err := o.merchantURL()
	if err != nil {
		return nil, err
	}
	var charge OpenpayCharge
	if err := o.rest.doJSON(ctx, "charge details", http.MethodGet, joinURL(base, "charges", url.PathEscape(chargeID)), nil, &charge, withBasicAuth(o.cfg.PrivateKey, "")); err != nil {
		return nil, err
	}
	return &charge, nil
}

func (o *Openpay) Refund(ctx context.Context, chargeID string, amount decimal.Decimal) error {
	base, err := o.merchantURL()
	if err != nil {
		return err
	}
	endpoint := joinURL(base, "charges", url.PathEscape(chargeID), "refund")
	return o.rest.doJSON(ctx, "refund", http.MethodPost, endpoint, map[string]any{"amount": amount.InexactFloat64()}, nil, withBasicAuth(o.cfg.PrivateKey, ""))
}

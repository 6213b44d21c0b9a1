package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

const mercadoPagoURL = "https://api.mercadopago.com"

type MercadoPagoConfig struct {
	AccessToken string
	ReturnURL   string
	BaseURL     string
}

type MercadoPagoPreference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type MercadoPagoPayment struct {
	ID                json.Number     `json:"id"`
	Status            string          `json:"status"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
}

type MercadoPago struct {
	cfg  MercadoPagoConfig
	rest restClient
}

func NewMercadoPago(cfg MercadoPagoConfig, client *http.Client) *MercadoPago {
	if cfg.BaseURL == "" {
		cfg.BaseURL = mercadoPagoURL
	}
	return &MercadoPago{cfg: cfg, rest: newRESTClient("mercadopago", client)}
}

func (m *MercadoPago) auth() (requestOption, error) {
	if m.cfg.AccessToken == "" {
		return nil, ErrNotConfigured
	}
	return withBearer(m.cfg.AccessToken), nil
}

// CreatePreference opens a checkout preference and returns its redirect.
func (m *MercadoPago) CreatePreference(ctx context.Context, amount decimal.Decimal, description string) (*MercadoPagoPreference, error) {
	auth, err := m.auth()
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"items": []map[string]any{{
			"title":      description,
			"quantity":   1,
			"unit_price": amount.InexactFloat64(),
		}},
	}
	if m.cfg.ReturnURL != "" {
		body["back_urls"] = map[string]string{
			"success": m.cfg.ReturnURL,
			"failure": m.cfg.ReturnURL,
			"pending": m.cfg.ReturnURL,
		}
		body["auto_return"] = "approved"
	}
	var pref MercadoPagoPreference
	if err := m.rest.doJSON(ctx, "preference creation", http.MethodPost, joinURL(m.cfg.BaseURL, "/checkout/preferences"), body, &pref, auth); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (m *MercadoPago) GetPayment(ctx context.Context, paymentID string) (*MercadoPagoPayment, error) {
	auth, err := m.auth()
	if err != nil {
		return nil, err
	}
	var payment MercadoPagoPayment
	endpoint := joinURL(m.cfg.BaseURL, "/v1/payments", url.PathEscape(paymentID))
	if err := m.rest.doJSON(ctx, "payment details", http.MethodGet, endpoint, nil, &payment, auth); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (m *MercadoPago) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) error {
	auth, err := m.auth()
	if err != nil {
		return err
	}
	endpoint := joinURL(m.cfg.BaseURL, "/v1/payments", url.PathEscape(paymentID), "refunds")
	return m.rest.doJSON(ctx, "refund", http.MethodPost, endpoint, map[string]any{"amount": amount.InexactFloat64()}, nil, auth)
}

package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	payPalSandboxURL = "https://api-m.sandbox.paypal.com"
	payPalLiveURL    = "https://api-m.paypal.com"

	// tokenSafetyMargin is subtracted from the provider reported expiry.
	tokenSafetyMargin = 60 * time.Second
	tokenFetchTimeout = 15 * time.Second
)

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Sandbox      bool
	// TokenTTL is used when the token response omits expires_in.
	TokenTTL  time.Duration
	ReturnURL string
	// BaseURL overrides the sandbox/live endpoint.
	BaseURL  string
	Currency string
}

type PayPalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type PayPalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PayPalCapture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type PayPalPurchaseUnit struct {
	Amount      PayPalAmount `json:"amount"`
	Description string       `json:"description,omitempty"`
	Payments    *struct {
		Captures []PayPalCapture `json:"captures"`
	} `json:"payments,omitempty"`
}

type PayPalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	Links         []PayPalLink         `json:"links"`
	PurchaseUnits []PayPalPurchaseUnit `json:"purchase_units"`
}

// ApprovalLink returns the payer redirect. PayPal lists it second after the
// self link; the rel names are checked first.
func (o *PayPalOrder) ApprovalLink() string {
	if o == nil {
		return ""
	}
	for _, link := range o.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	if len(o.Links) > 1 {
		return o.Links[1].Href
	}
	return ""
}

// Amount returns the first purchase unit amount.
func (o *PayPalOrder) Amount() (decimal.Decimal, bool) {
	if o == nil || len(o.PurchaseUnits) == 0 {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(strings.TrimSpace(o.PurchaseUnits[0].Amount.Value))
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// PayPalVerifyRequest is the body of /v1/notifications/verify-webhook-signature.
type PayPalVerifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// PayPal talks to the PayPal REST API with a cached OAuth token.
type PayPal struct {
	cfg    PayPalConfig
	rest   restClient
	tokens *cache.TTLCache[string, string]
	group  singleflight.Group
}

func NewPayPal(cfg PayPalConfig, client *http.Client) *PayPal {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 3000 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "MXN"
	}
	return &PayPal{
		cfg:    cfg,
		rest:   newRESTClient("paypal", client),
		tokens: cache.NewTTLCache[string, string](),
	}
}

func (p *PayPal) baseURL() string {
	if p.cfg.BaseURL != "" {
		return p.cfg.BaseURL
	}
	if p.cfg.Sandbox {
		return payPalSandboxURL
	}
	return payPalLiveURL
}

func (p *PayPal) tokenKey() string {
	if p.cfg.Sandbox {
		return "paypal_access_token_sandbox"
	}
	return "paypal_access_token_live"
}

// AccessToken returns a cached client-credentials token, fetching one when
// needed. Concurrent callers share a single fetch.
func (p *PayPal) AccessToken(ctx context.Context) (string, error) {
	if p.cfg.ClientID == "" || p.cfg.ClientSecret == "" {
		return "", ErrNotConfigured
	}
	key := p.tokenKey()
	if token, ok := p.tokens.Get(key); ok {
		return token, nil
	}

	ch := p.group.DoChan(key, func() (any, error) {
		// The shared fetch outlives any single caller so one canceled request
		// does not fail the others waiting on it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()
		if token, ok := p.tokens.Get(key); ok {
			return token, nil
		}
		var out struct {
			AccessToken string `json:"access_token"`
			ExpiresIn   int    `json:"expires_in"`
		}
		form := url.Values{"grant_type": {"client_credentials"}}
		err := p.rest.doForm(fetchCtx, "oauth token", joinURL(p.baseURL(), "/v1/oauth2/token"), form, &out,
			withBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrOAuthFailed, err)
		}
		if out.AccessToken == "" {
			return "", ErrOAuthFailed
		}

		ttl := p.cfg.TokenTTL
		if out.ExpiresIn > 0 {
			ttl = time.Duration(out.ExpiresIn) * time.Second
		}
		if ttl -= tokenSafetyMargin; ttl > 0 {
			p.tokens.Set(key, out.AccessToken, ttl)
		}
		return out.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *PayPal) CreateOrder(ctx context.Context, amount decimal.Decimal, description string) (*PayPalOrder, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": PayPalAmount{
				CurrencyCode: p.cfg.Currency,
				Value:        amount.StringFixed(2),
			},
			"description": description,
		}},
	}
	if p.cfg.ReturnURL != "" {
		body["application_context"] = map[string]string{
			"return_url": p.cfg.ReturnURL,
			"cancel_url": p.cfg.ReturnURL,
		}
	}
	var order PayPalOrder
	if err := p.rest.doJSON(ctx, "order creation", http.MethodPost, joinURL(p.baseURL(), "/v2/checkout/orders"), body, &order, withBearer(token)); err != nil {
		return nil, err
	}
	return &order, nil
}

func (p *PayPal) GetOrder(ctx context.Context, orderID string) (*PayPalOrder, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	var order PayPalOrder
	endpoint := joinURL(p.baseURL(), "/v2/checkout/orders", url.PathEscape(orderID))
	if err := p.rest.doJSON(ctx, "order details", http.MethodGet, endpoint, nil, &order, withBearer(token)); err != nil {
		return nil, err
	}
	return &order, nil
}

func (p *PayPal) RefundCapture(ctx context.Context, captureID string, amount decimal.Decimal) error {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{
		"amount": PayPalAmount{CurrencyCode: p.cfg.Currency, Value: amount.StringFixed(2)},
	}
	endpoint := joinURL(p.baseURL(), "/v2/payments/captures", url.PathEscape(captureID), "refund")
	return p.rest.doJSON(ctx, "refund", http.MethodPost, endpoint, body, nil, withBearer(token))
}

// VerifyWebhookSignature asks PayPal to verify a notification and returns the
// reported verification_status.
func (p *PayPal) VerifyWebhookSignature(ctx context.Context, req PayPalVerifyRequest) (string, error) {
	token, err := p.AccessToken(ctx)
	if err != nil {
		return "", err
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	endpoint := joinURL(p.baseURL(), "/v1/notifications/verify-webhook-signature")
	if err := p.rest.doJSON(ctx, "verify signature", http.MethodPost, endpoint, req, &out, withBearer(token)); err != nil {
		return "", err
	}
	return out.VerificationStatus, nil
}

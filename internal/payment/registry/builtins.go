package registry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/payment/adapters"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/handlers"
	"github.com/EquidnaMX/stag-herd/internal/payment/verifier"
)

// Providers holds the provider clients the built-in handlers talk to.
type Providers struct {
	PayPal       handlers.PayPalAPI
	PayPalVerify verifier.PayPalSignatureClient
	MercadoPago  handlers.MercadoPagoAPI
	Openpay      handlers.OpenpayAPI
	Clip         handlers.ClipAPI
	Conekta      handlers.ConektaAPI
	Kueski       handlers.KueskiAPI
	Stripe       handlers.StripeAPI
}

// NewProviders builds the REST adapters from configuration. client may be nil.
func NewProviders(cfg config.Config, client *http.Client) Providers {
	paypal := adapters.NewPayPal(adapters.PayPalConfig{
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		Sandbox:      cfg.PayPal.Sandbox,
		TokenTTL:     time.Duration(cfg.PayPal.TokenTTL) * time.Second,
		ReturnURL:    cfg.PayPal.ReturnURL,
	}, client)

	return Providers{
		PayPal:       paypal,
		PayPalVerify: paypal,
		MercadoPago: adapters.NewMercadoPago(adapters.MercadoPagoConfig{
			AccessToken: cfg.MercadoPago.AccessToken,
			ReturnURL:   cfg.MercadoPago.ReturnURL,
		}, client),
		Openpay: adapters.NewOpenpay(adapters.OpenpayConfig{
			MerchantID: cfg.Openpay.MerchantID,
			PrivateKey: cfg.Openpay.PrivateKey,
			Sandbox:    cfg.Openpay.Sandbox,
		}, client),
		Clip:    adapters.NewClip(adapters.ClipConfig{APIKey: cfg.Clip.APIKey}, client),
		Conekta: adapters.NewConekta(adapters.ConektaConfig{APIKey: cfg.Conekta.APIKey}, client),
		Kueski: adapters.NewKueski(adapters.KueskiConfig{
			APIKey:  cfg.Kueski.APIKey,
			Sandbox: cfg.Kueski.Sandbox,
		}, client),
		Stripe: adapters.NewStripe(adapters.StripeConfig{APIKey: cfg.Stripe.APIKey}, client),
	}
}

// builtin describes a method implementation that can be registered under its
// own code or reused by a custom method.
type builtin struct {
	method      domain.Method
	description string
	enabled     bool
	build       func(opts handlers.Options) domain.Handler
}

func builtins(cfg config.Config, p Providers, clk clock.Clock) []builtin {
	stripeVerifier := verifier.NewStripe(verifier.StripeConfig{
		Secret:    cfg.Stripe.Secret,
		Tolerance: seconds(cfg.Stripe.Tolerance),
	}, clk)

	return []builtin{
		{
			method: domain.MethodPayPal, description: "PayPal", enabled: cfg.PayPal.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				v := verifier.NewPayPal(verifier.PayPalConfig{
					WebhookID:    cfg.PayPal.WebhookID,
					ClientID:     cfg.PayPal.ClientID,
					ClientSecret: cfg.PayPal.ClientSecret,
				}, p.PayPalVerify)
				return handlers.NewPayPal(p.PayPal, v, opts)
			},
		},
		{
			method: domain.MethodMercadoPago, description: "MercadoPago", enabled: cfg.MercadoPago.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				v := verifier.NewMercadoPago(verifier.MercadoPagoConfig{
					Secret:    cfg.MercadoPago.Secret,
					Tolerance: seconds(cfg.MercadoPago.Tolerance),
				}, opts.Clock)
				return handlers.NewMercadoPago(p.MercadoPago, v, opts)
			},
		},
		{
			method: domain.MethodOpenpay, description: "Openpay (SPEI)", enabled: cfg.Openpay.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				v := verifier.NewOpenpay(verifier.OpenpayConfig{
					Secret:    cfg.Openpay.Secret,
					Tolerance: seconds(cfg.Openpay.Tolerance),
				}, opts.Clock)
				return handlers.NewOpenpay(p.Openpay, v, opts)
			},
		},
		{
			method: domain.MethodClip, description: "Clip", enabled: cfg.Clip.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				return handlers.NewClip(p.Clip, opts)
			},
		},
		{
			method: domain.MethodGooglePay, description: "Google Pay", enabled: cfg.Stripe.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				return handlers.NewGooglePay(p.Stripe, stripeVerifier, opts)
			},
		},
		{
			method: domain.MethodStripe, description: "Stripe", enabled: cfg.Stripe.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				return handlers.NewStripe(p.Stripe, stripeVerifier, opts)
			},
		},
		{
			method: domain.MethodConekta, description: "Conekta (OXXO)", enabled: cfg.Conekta.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				v := verifier.NewConekta(verifier.ConektaConfig{Secret: cfg.Conekta.Secret})
				return handlers.NewConekta(p.Conekta, v, opts)
			},
		},
		{
			method: domain.MethodKueskiPay, description: "Kueski Pay", enabled: cfg.Kueski.Enabled,
			build: func(opts handlers.Options) domain.Handler {
				v := verifier.NewKueski(verifier.KueskiConfig{
					Secret:    cfg.Kueski.WebhookSecret,
					Tolerance: seconds(cfg.Kueski.Tolerance),
				}, opts.Clock)
				return handlers.NewKueski(p.Kueski, v, opts)
			},
		},
		{
			method: domain.MethodCash, description: "Efectivo", enabled: cfg.CashEnabled,
			build: func(opts handlers.Options) domain.Handler {
				return handlers.NewBase(domain.MethodCash, opts)
			},
		},
		{
			method: domain.MethodBase, description: "Base", enabled: false,
			build: func(opts handlers.Options) domain.Handler {
				return handlers.NewBase(domain.MethodBase, opts)
			},
		},
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// feeFor returns the configured fee override for a method code, if any.
func feeFor(cfg config.Config, method domain.Method) *handlers.Fee {
	fc, ok := cfg.Fee(string(method))
	if !ok {
		return nil
	}
	fee := handlers.NewFee(fc.Fixed, fc.Variable)
	return &fee
}

// Build registers the built-in methods, the configured custom methods and any
// extra handlers supplied by the host.
func Build(cfg config.Config, p Providers, clk clock.Clock, extra ...domain.Handler) (*Registry, error) {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	reg := New()

	catalog := make(map[domain.Method]builtin)
	for _, b := range builtins(cfg, p, clk) {
		catalog[b.method] = b
		opts := handlers.Options{Fee: feeFor(cfg, b.method), Clock: clk}
		if err := reg.Register(domain.Descriptor{
			Method:      b.method,
			Description: b.description,
			Enabled:     b.enabled,
			Handler:     b.build(opts),
		}); err != nil {
			return nil, err
		}
	}

	codes := make([]string, 0, len(cfg.CustomMethods))
	for code := range cfg.CustomMethods {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		custom := cfg.CustomMethods[code]
		method := domain.ParseMethod(code)
		base, ok := catalog[domain.ParseMethod(custom.Handler)]
		if !ok {
			return nil, fmt.Errorf("%w: custom method %s uses unknown handler %q", domain.ErrInvalidConfig, method, custom.Handler)
		}
		fee := feeFor(cfg, method)
		if fee == nil {
			fee = feeFor(cfg, base.method)
		}
		description := strings.TrimSpace(custom.Description)
		if description == "" {
			description = base.description
		}
		if err := reg.Register(domain.Descriptor{
			Method:      method,
			Description: description,
			Enabled:     custom.Enabled,
			Handler:     base.build(handlers.Options{Method: method, Fee: fee, Clock: clk}),
		}); err != nil {
			return nil, err
		}
	}

	for _, h := range extra {
		if h == nil {
			continue
		}
		if err := reg.Register(domain.Descriptor{Method: h.Method(), Enabled: true, Handler: h}); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

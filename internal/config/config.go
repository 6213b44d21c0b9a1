package config

import (
	"strings"
	"time"
)

// Config is the full runtime configuration tree. Components receive the
// sub-structs they need at construction time.
type Config struct {
	AppName     string `mapstructure:"app_name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`

	HTTP        HTTPConfig     `mapstructure:"http"`
	RoutePrefix string         `mapstructure:"route_prefix"`
	CashEnabled bool           `mapstructure:"cash_enabled"`
	Database    DatabaseConfig `mapstructure:"database"`

	Stripe      StripeConfig      `mapstructure:"stripe"`
	PayPal      PayPalConfig      `mapstructure:"paypal"`
	MercadoPago MercadoPagoConfig `mapstructure:"mercadopago"`
	Conekta     ConektaConfig     `mapstructure:"conekta"`
	Kueski      KueskiConfig      `mapstructure:"kueski"`
	Openpay     OpenpayConfig     `mapstructure:"openpay"`
	Clip        ClipConfig        `mapstructure:"clip"`

	CustomMethods map[string]CustomMethodConfig `mapstructure:"custom_methods"`
	Fees          map[string]FeeConfig          `mapstructure:"fees"`

	IdempotencyTTL   int    `mapstructure:"idempotency_ttl"`
	IdempotencyStore string `mapstructure:"idempotency_store"`
	WebhookRateLimit int    `mapstructure:"webhook_rate_limit"`
	WebhookRateDecay int    `mapstructure:"webhook_rate_decay"`

	Audit         AuditConfig         `mapstructure:"audit"`
	Cleanup       CleanupConfig       `mapstructure:"cleanup"`
	Events        EventsConfig        `mapstructure:"events"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type HTTPConfig struct {
	Addr            string `mapstructure:"addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	// APIKeys are hex sha256 digests of the bearer keys accepted by the
	// payments API. The API is not mounted when empty.
	APIKeys []string `mapstructure:"api_keys"`
}

type DatabaseConfig struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type StripeConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Secret    string `mapstructure:"secret"`
	APIKey    string `mapstructure:"api_key"`
	Tolerance int    `mapstructure:"tolerance"`
}

type PayPalConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	WebhookID    string `mapstructure:"webhook_id"`
	Sandbox      bool   `mapstructure:"sandbox"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenTTL     int    `mapstructure:"token_ttl"`
	ReturnURL    string `mapstructure:"return_url"`
}

type MercadoPagoConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Secret      string `mapstructure:"secret"`
	AccessToken string `mapstructure:"access_token"`
	ReturnURL   string `mapstructure:"return_url"`
	// Tolerance is the accepted x-signature ts skew in seconds; 0 disables it.
	Tolerance   int    `mapstructure:"tolerance"`
}

type ConektaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	APIKey  string `mapstructure:"api_key"`
}

type KueskiConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	APIKey        string `mapstructure:"api_key"`
	Sandbox       bool   `mapstructure:"sandbox"`
	Tolerance     int    `mapstructure:"tolerance"`
}

type OpenpayConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Secret     string `mapstructure:"secret"`
	MerchantID string `mapstructure:"id"`
	PrivateKey string `mapstructure:"private_key"`
	Sandbox    bool   `mapstructure:"sandbox"`
	Tolerance  int    `mapstructure:"tolerance"`
}

type ClipConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CustomMethodConfig registers an extra method code backed by a built-in handler.
type CustomMethodConfig struct {
	Description string `mapstructure:"description"`
	Enabled     bool   `mapstructure:"enabled"`
	Handler     string `mapstructure:"handler"`
}

type FeeConfig struct {
	Fixed    float64 `mapstructure:"fixed"`
	Variable float64 `mapstructure:"variable"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type CleanupConfig struct {
	Enabled          bool             `mapstructure:"enabled"`
	Interval         time.Duration    `mapstructure:"interval"`
	StalePendingDays int              `mapstructure:"stale_pending_days"`
	StaleStatus      string           `mapstructure:"stale_status"`
	Revalidate       RevalidateConfig `mapstructure:"revalidate"`
}

type RevalidateConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	LookbackHours int      `mapstructure:"lookback_hours"`
	Methods       []string `mapstructure:"methods"`
}

type EventsConfig struct {
	RelayEnabled  bool           `mapstructure:"relay_enabled"`
	RelayInterval time.Duration  `mapstructure:"relay_interval"`
	RelayBatch    int            `mapstructure:"relay_batch"`
	Kafka         KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ      RabbitMQConfig `mapstructure:"rabbitmq"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type ObservabilityConfig struct {
	TracingEnabled   bool    `mapstructure:"tracing_enabled"`
	ExporterEndpoint string  `mapstructure:"exporter_endpoint"`
	ExporterProtocol string  `mapstructure:"exporter_protocol"`
	SamplingRatio    float64 `mapstructure:"sampling_ratio"`
	LogLevel         string  `mapstructure:"log_level"`
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Fee returns the configured fee schedule for a method code.
func (c Config) Fee(method string) (FeeConfig, bool) {
	for key, fee := range c.Fees {
		if strings.EqualFold(key, method) {
			return fee, true
		}
	}
	return FeeConfig{}, false
}

func (c Config) IdempotencyWindow() time.Duration {
	if c.IdempotencyTTL <= 0 {
		return 604800 * time.Second
	}
	return time.Duration(c.IdempotencyTTL) * time.Second
}

func (c Config) RateDecay() time.Duration {
	if c.WebhookRateDecay <= 0 {
		return time.Minute
	}
	return time.Duration(c.WebhookRateDecay) * time.Minute
}

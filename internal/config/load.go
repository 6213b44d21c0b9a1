package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envAliases binds keys to the provider env names used by existing deployments.
var envAliases = map[string][]string{
	"route_prefix":                      {"STAG_HERD_ROUTE_PREFIX"},
	"cash_enabled":                      {"CASH_PAYMENT_ENABLED"},
	"stripe.enabled":                    {"STRIPE_ENABLED"},
	"stripe.secret":                     {"STRIPE_WEBHOOK_SECRET"},
	"stripe.api_key":                    {"STRIPE_SECRET_KEY"},
	"stripe.tolerance":                  {"STRIPE_WEBHOOK_TOLERANCE"},
	"paypal.enabled":                    {"PAYPAL_ENABLED"},
	"paypal.webhook_id":                 {"PAYPAL_WEBHOOK_ID"},
	"paypal.sandbox":                    {"PAYPAL_SANDBOX"},
	"paypal.client_id":                  {"PAYPAL_KEY"},
	"paypal.client_secret":              {"PAYPAL_SECRET"},
	"paypal.token_ttl":                  {"PAYPAL_TOKEN_TTL"},
	"mercadopago.enabled":               {"MERCADOPAGO_ENABLED"},
	"mercadopago.secret":                {"MERCADOPAGO_WEBHOOK_SECRET"},
	"mercadopago.access_token":          {"MERCADOPAGO_ACCESS_TOKEN"},
	"mercadopago.tolerance":             {"MERCADOPAGO_WEBHOOK_TOLERANCE"},
	"conekta.enabled":                   {"CONEKTA_ENABLED"},
	"conekta.secret":                    {"CONEKTA_WEBHOOK_SECRET"},
	"conekta.api_key":                   {"CONEKTA_API_KEY"},
	"kueski.enabled":                    {"KUESKI_ENABLED"},
	"kueski.webhook_secret":             {"KUESKI_WEBHOOK_SECRET"},
	"kueski.api_key":                    {"KUESKI_API_KEY"},
	"kueski.tolerance":                  {"KUESKI_WEBHOOK_TOLERANCE"},
	"openpay.enabled":                   {"OPENPAY_ENABLED"},
	"openpay.secret":                    {"OPENPAY_WEBHOOK_SECRET"},
	"openpay.id":                        {"OPENPAY_ID", "OPENPAY_MERCHANT_ID"},
	"openpay.private_key":               {"OPENPAY_PRIVATE_KEY"},
	"openpay.sandbox":                   {"OPENPAY_SANDBOX"},
	"openpay.tolerance":                 {"OPENPAY_WEBHOOK_TOLERANCE"},
	"clip.enabled":                      {"CLIP_ENABLED"},
	"clip.api_key":                      {"CLIP_API_KEY"},
	"idempotency_ttl":                   {"WEBHOOK_IDEMPOTENCY_TTL"},
	"webhook_rate_limit":                {"WEBHOOK_RATE_LIMIT"},
	"webhook_rate_decay":                {"WEBHOOK_RATE_DECAY"},
	"audit.enabled":                     {"STAG_HERD_AUDIT_ENABLED"},
	"cleanup.enabled":                   {"STAG_HERD_CLEANUP_ENABLED"},
	"cleanup.stale_pending_days":        {"STAG_HERD_STALE_PENDING_DAYS"},
	"cleanup.stale_status":              {"STAG_HERD_STALE_PENDING_STATUS"},
	"cleanup.revalidate.enabled":        {"STAG_HERD_REVALIDATE_ENABLED"},
	"cleanup.revalidate.lookback_hours": {"STAG_HERD_REVALIDATE_LOOKBACK_HOURS"},
	"database.dsn":                      {"DATABASE_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "stag-herd")
	v.SetDefault("environment", "development")
	v.SetDefault("version", "dev")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10)
	v.SetDefault("http.api_keys", []string{})
	v.SetDefault("route_prefix", "stag-herd")
	v.SetDefault("cash_enabled", true)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("stripe.enabled", true)
	v.SetDefault("stripe.secret", "")
	v.SetDefault("stripe.api_key", "")
	v.SetDefault("stripe.tolerance", 300)
	v.SetDefault("paypal.enabled", true)
	v.SetDefault("paypal.webhook_id", "")
	v.SetDefault("paypal.sandbox", true)
	v.SetDefault("paypal.client_id", "")
	v.SetDefault("paypal.client_secret", "")
	v.SetDefault("paypal.token_ttl", 3000)
	v.SetDefault("paypal.return_url", "")
	v.SetDefault("mercadopago.enabled", false)
	v.SetDefault("mercadopago.secret", "")
	v.SetDefault("mercadopago.access_token", "")
	v.SetDefault("mercadopago.return_url", "")
	v.SetDefault("mercadopago.tolerance", 0)
	v.SetDefault("conekta.enabled", false)
	v.SetDefault("conekta.secret", "")
	v.SetDefault("conekta.api_key", "")
	v.SetDefault("kueski.enabled", false)
	v.SetDefault("kueski.webhook_secret", "")
	v.SetDefault("kueski.api_key", "")
	v.SetDefault("kueski.sandbox", true)
	v.SetDefault("kueski.tolerance", 0)
	v.SetDefault("openpay.enabled", false)
	v.SetDefault("openpay.secret", "")
	v.SetDefault("openpay.id", "")
	v.SetDefault("openpay.private_key", "")
	v.SetDefault("openpay.sandbox", true)
	v.SetDefault("openpay.tolerance", 0)
	v.SetDefault("clip.enabled", false)
	v.SetDefault("clip.api_key", "")

	v.SetDefault("fees", map[string]any{
		"PAYPAL": map[string]any{"fixed": 4, "variable": 0.0395},
		"STRIPE": map[string]any{"fixed": 2.9, "variable": 0.029},
	})

	v.SetDefault("idempotency_ttl", 604800)
	v.SetDefault("idempotency_store", "database")
	v.SetDefault("webhook_rate_limit", 60)
	v.SetDefault("webhook_rate_decay", 1)
	v.SetDefault("audit.enabled", true)

	v.SetDefault("cleanup.enabled", true)
	v.SetDefault("cleanup.interval", 24*time.Hour)
	v.SetDefault("cleanup.stale_pending_days", 14)
	v.SetDefault("cleanup.stale_status", "CANCELED")
	v.SetDefault("cleanup.revalidate.enabled", false)
	v.SetDefault("cleanup.revalidate.lookback_hours", 24)
	v.SetDefault("cleanup.revalidate.methods", []string{"MERCADOPAGO", "PAYPAL", "OPENPAY", "GOOGLEPAY", "CLIP"})

	v.SetDefault("events.relay_enabled", false)
	v.SetDefault("events.relay_interval", 5*time.Second)
	v.SetDefault("events.relay_batch", 100)
	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "stag-herd.payments")
	v.SetDefault("events.rabbitmq.url", "")
	v.SetDefault("events.rabbitmq.exchange", "stag-herd.payments")

	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.exporter_endpoint", "")
	v.SetDefault("observability.exporter_protocol", "grpc")
	v.SetDefault("observability.sampling_ratio", 0.1)
	v.SetDefault("observability.log_level", "info")
}

// Load reads .env (when present), an optional YAML file named by
// STAG_HERD_CONFIG and environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STAG_HERD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		args := append([]string{key, "STAG_HERD_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv("STAG_HERD_CONFIG")); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

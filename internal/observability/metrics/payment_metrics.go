package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PaymentMetrics struct {
	webhooksReceived     *prometheus.CounterVec
	webhookDuration      *prometheus.HistogramVec
	verificationFailures *prometheus.CounterVec
	duplicateEvents      *prometheus.CounterVec
	transitions          *prometheus.CounterVec
	cleanupResults       *prometheus.CounterVec
	outboxPublished      *prometheus.CounterVec
}

var (
	paymentMetricsOnce sync.Once
	paymentMetrics     *PaymentMetrics
)

func Payments() *PaymentMetrics {
	return PaymentsWithConfig(Config{})
}

func PaymentsWithConfig(cfg Config) *PaymentMetrics {
	paymentMetricsOnce.Do(func() {
		paymentMetrics = newPaymentMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return paymentMetrics
}

// NewPaymentMetricsForRegistry registers a private set of collectors, for tests.
func NewPaymentMetricsForRegistry(registerer prometheus.Registerer) *PaymentMetrics {
	return newPaymentMetrics(registerer, Config{})
}

func newPaymentMetrics(registerer prometheus.Registerer, cfg Config) *PaymentMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	constLabels := prometheus.Labels{
		"service": cfg.service(),
		"env":     cfg.environment(),
	}

	webhooksReceived := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stagherd_webhooks_received_total",
			Help:        "Webhook deliveries by provider and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"provider", "outcome"}, // see webhook.Outcome
	)

	webhookDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "stagherd_webhook_duration_seconds",
			Help:        "Time spent handling a webhook delivery.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		},
		[]string{"provider"},
	)

	verificationFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stagherd_webhook_verification_failures_total",
			Help:        "Webhook signature verification failures by provider.",
			ConstLabels: constLabels,
		},
		[]string{"provider"},
	)

	duplicateEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stagherd_webhook_duplicates_total",
			Help:        "Webhook deliveries short-circuited by the idempotency store.",
			ConstLabels: constLabels,
		},
		[]string{"provider"},
	)

	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stagherd_payment_transitions_total",
			Help:        "Persisted payment status changes by method and target status.",
			ConstLabels: constLabels,
		},
		[]string{"method", "status"},
	)

	cleanupResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stagherd_cleanup_records_total",
			Help:        "Records touched by the cleanup sweep by step.",
			ConstLabels: constLabels,
		},
		[]string{"step"}, // orphans | revalidated | moved | stale | reservations
	)

	outboxPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "stagherd_outbox_published_total",
			Help:        "Outbox events relayed to brokers.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	registerer.MustRegister(
		webhooksReceived,
		webhookDuration,
		verificationFailures,
		duplicateEvents,
		transitions,
		cleanupResults,
		outboxPublished,
	)

	return &PaymentMetrics{
		webhooksReceived:     webhooksReceived,
		webhookDuration:      webhookDuration,
		verificationFailures: verificationFailures,
		duplicateEvents:      duplicateEvents,
		transitions:          transitions,
		cleanupResults:       cleanupResults,
		outboxPublished:      outboxPublished,
	}
}

func (m *PaymentMetrics) ObserveWebhook(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	provider = strings.ToLower(provider)
	m.webhooksReceived.WithLabelValues(provider, outcome).Inc()
	m.webhookDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *PaymentMetrics) IncVerificationFailure(provider string) {
	if m == nil {
		return
	}
	m.verificationFailures.WithLabelValues(strings.ToLower(provider)).Inc()
}

func (m *PaymentMetrics) IncDuplicate(provider string) {
	if m == nil {
		return
	}
	m.duplicateEvents.WithLabelValues(strings.ToLower(provider)).Inc()
}

func (m *PaymentMetrics) IncTransition(method, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(method, status).Inc()
}

func (m *PaymentMetrics) AddCleanup(step string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.cleanupResults.WithLabelValues(step).Add(float64(count))
}

func (m *PaymentMetrics) AddOutboxPublished(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.outboxPublished.WithLabelValues(result).Add(float64(count))
}

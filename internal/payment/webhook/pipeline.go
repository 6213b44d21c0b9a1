package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	auditdomain "github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/auditcontext"
	"github.com/EquidnaMX/stag-herd/internal/cache"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/idempotency"
	"github.com/EquidnaMX/stag-herd/internal/observability/logger"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/observability/tracing"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

const (
	MessageOK            = "OK"
	MessageDuplicate     = "OK (Idempotent)"
	MessageIgnored       = "Ignored"
	MessageInvalid       = "Invalid provider"
	MessageIncompatible  = "Handler not compatible"
	MessageFailed        = "Error processing"
	messageBadSignature  = "Invalid signature"
	messageInvalidPrefix = "Invalid payload: "
)

// Outcome labels the terminal step a delivery reached.
type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnverified   Outcome = "unverified"
	OutcomeInvalid      Outcome = "invalid_payload"
	OutcomeUnknown      Outcome = "unknown_provider"
	OutcomeIncompatible Outcome = "incompatible"
	OutcomeFailed       Outcome = "failed"
)

// Result is what the HTTP layer writes back to the provider.
type Result struct {
	Status  int
	Message string
	Outcome Outcome
}

// Resolver finds the notification-capable handler of a method.
type Resolver interface {
	Webhook(method domain.Method) (domain.WebhookHandler, error)
}

type Config struct {
	// IdempotencyTTL bounds how long an event id is remembered.
	IdempotencyTTL time.Duration
	// SuspiciousThreshold is the number of signature failures from one IP
	// within SuspiciousWindow that raises a suspicious-activity audit entry.
	SuspiciousThreshold int
	SuspiciousWindow    time.Duration
}

const (
	defaultSuspiciousThreshold = 5
	defaultSuspiciousWindow    = time.Minute
)

var providerAliases = map[string]domain.Method{
	"kueski": domain.MethodKueskiPay,
}

// ProviderMethod maps a webhook path segment to its method code.
func ProviderMethod(provider string) domain.Method {
	key := strings.ToLower(strings.TrimSpace(provider))
	if method, ok := providerAliases[key]; ok {
		return method
	}
	return domain.ParseMethod(key)
}

// Pipeline verifies, deduplicates and dispatches provider notifications.
type Pipeline struct {
	resolver Resolver
	store    idempotency.Store
	approver domain.Approver
	auditSvc auditdomain.Service
	metrics  *metrics.PaymentMetrics
	log      *zap.Logger
	cfg      Config
	tracer   trace.Tracer

	mu       sync.Mutex
	failures *cache.TTLCache[string, *failureCount]
}

func NewPipeline(
	cfg Config,
	resolver Resolver,
	store idempotency.Store,
	approver domain.Approver,
	auditSvc auditdomain.Service,
	m *metrics.PaymentMetrics,
	clk clock.Clock,
	log *zap.Logger,
) *Pipeline {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = idempotency.DefaultTTL
	}
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = defaultSuspiciousThreshold
	}
	if cfg.SuspiciousWindow <= 0 {
		cfg.SuspiciousWindow = defaultSuspiciousWindow
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		resolver: resolver,
		store:    store,
		approver: approver,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log.Named("payment.webhook"),
		cfg:      cfg,
		tracer:   otel.Tracer("stag-herd/webhook"),
		failures: cache.NewTTLCacheWithClock[string, *failureCount](clk.Now),
	}
}

// Handle runs one delivery through the pipeline. Errors never escape: every
// failure becomes a Result with the status the provider should see.
func (p *Pipeline) Handle(ctx context.Context, provider string, req domain.WebhookRequest) Result {
	started := time.Now()
	method := ProviderMethod(provider)
	req.Provider = string(method)

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeProvider), strings.ToLower(string(method)))
	ctx = auditcontext.WithIPAddress(ctx, req.RemoteIP)
	ctx, span := p.tracer.Start(ctx, "webhook.handle",
		trace.WithAttributes(tracing.SafeAttributes(attribute.String("webhook.provider", string(method)))...))
	defer span.End()

	result := p.handle(ctx, method, req)
	span.SetAttributes(attribute.String("webhook.outcome", string(result.Outcome)))
	if result.Status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, result.Message)
	}
	p.metrics.ObserveWebhook(strings.ToLower(string(method)), string(result.Outcome), time.Since(started))
	return result
}

func (p *Pipeline) handle(ctx context.Context, method domain.Method, req domain.WebhookRequest) Result {
	handler, err := p.resolver.Webhook(method)
	switch {
	case errors.Is(err, domain.ErrHandlerNotCompatible):
		return Result{Status: http.StatusInternalServerError, Message: MessageIncompatible, Outcome: OutcomeIncompatible}
	case err != nil:
		return Result{Status: http.StatusNotFound, Message: MessageInvalid, Outcome: OutcomeUnknown}
	}

	provider := strings.ToLower(string(method))
	verification := handler.VerifyWebhook(ctx, req)
	if !verification.Valid {
		reason := verification.Reason
		if reason == "" {
			reason = messageBadSignature
		}
		p.rejectSignature(ctx, provider, req.RemoteIP, reason)
		return Result{Status: http.StatusUnauthorized, Message: reason, Outcome: OutcomeUnverified}
	}
	p.audit(ctx, auditdomain.ActionWebhookVerified, verification.EventID, map[string]any{"provider": provider})

	validation := ValidatePayload(method, req)
	if !validation.Valid {
		p.log.Warn("webhook payload rejected",
			zap.String("provider", provider),
			zap.String("reason", validation.Reason),
		)
		return Result{Status: http.StatusBadRequest, Message: messageInvalidPrefix + validation.Reason, Outcome: OutcomeInvalid}
	}
	if validation.Ignored {
		p.log.Debug("webhook event ignored",
			zap.String("provider", provider),
			zap.String("reason", validation.Reason),
		)
		return Result{Status: http.StatusOK, Message: MessageIgnored, Outcome: OutcomeIgnored}
	}

	if verification.EventID != "" {
		reserved, err := p.store.Reserve(ctx, provider, verification.EventID, p.cfg.IdempotencyTTL)
		if err != nil {
			p.log.Error("webhook reservation failed",
				zap.String("provider", provider),
				zap.String("event_id", verification.EventID),
				zap.Error(err),
			)
			return Result{Status: http.StatusInternalServerError, Message: MessageFailed, Outcome: OutcomeFailed}
		}
		if !reserved {
			p.metrics.IncDuplicate(provider)
			p.log.Info("duplicate webhook event",
				zap.String("provider", provider),
				zap.String("event_id", verification.EventID),
			)
			return Result{Status: http.StatusOK, Message: MessageDuplicate, Outcome: OutcomeDuplicate}
		}
	}

	if err := handler.ProcessWebhook(ctx, req, p.approver); err != nil {
		p.log.Error("webhook processing failed",
			zap.String("provider", provider),
			zap.String("event_id", verification.EventID),
			zap.Error(err),
		)
		p.logPayload(provider, req.Body)
		p.audit(ctx, auditdomain.ActionWebhookProcessingFailed, verification.EventID, map[string]any{
			"provider": provider,
			"error":    err.Error(),
		})
		return Result{Status: http.StatusInternalServerError, Message: MessageFailed, Outcome: OutcomeFailed}
	}
	return Result{Status: http.StatusOK, Message: MessageOK, Outcome: OutcomeProcessed}
}

func (p *Pipeline) rejectSignature(ctx context.Context, provider, ip, reason string) {
	p.metrics.IncVerificationFailure(provider)
	p.log.Warn("webhook verification failed",
		zap.String("provider", provider),
		zap.String("ip", ip),
		zap.String("reason", reason),
	)
	p.audit(ctx, auditdomain.ActionWebhookVerificationFailed, "", map[string]any{
		"provider": provider,
		"reason":   reason,
	})

	if ip == "" {
		return
	}
	if count := p.countFailure(ip); count == p.cfg.SuspiciousThreshold {
		p.log.Warn("repeated webhook verification failures",
			zap.String("ip", ip),
			zap.Int("failures", count),
		)
		p.audit(ctx, auditdomain.ActionWebhookSuspicious, "", map[string]any{
			"provider": provider,
			"failures": count,
		})
	}
}

// countFailure counts signature failures per IP in a fixed window that starts
// at the first failure.
func (p *Pipeline) countFailure(ip string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.failures.Get(ip)
	if !ok {
		p.failures.Purge()
		entry = &failureCount{}
		p.failures.Set(ip, entry, p.cfg.SuspiciousWindow)
	}
	entry.n++
	return entry.n
}

// logPayload writes the masked delivery body at debug level.
func (p *Pipeline) logPayload(provider string, body []byte) {
	if ce := p.log.Check(zap.DebugLevel, "webhook payload"); ce != nil {
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			return
		}
		ce.Write(zap.String("provider", provider), zap.Any("payload", logger.MaskJSON(decoded)))
	}
}

type failureCount struct {
	n int
}

func (p *Pipeline) audit(ctx context.Context, action, eventID string, metadata map[string]any) {
	if p.auditSvc == nil {
		return
	}
	p.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "webhook",
		TargetID:   eventID,
		Metadata:   metadata,
	})
}

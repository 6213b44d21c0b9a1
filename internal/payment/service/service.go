package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/observability/tracing"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Registry   domain.Registry
	Dispatcher domain.Dispatcher       `optional:"true"`
	AuditSvc   auditdomain.Service     `optional:"true"`
	Clock      clock.Clock             `optional:"true"`
	Metrics    *metrics.PaymentMetrics `optional:"true"`
}

// Service drives the payment state machine. Every status change runs in a
// transaction together with the events it emits.
type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	registry   domain.Registry
	dispatcher domain.Dispatcher
	auditSvc   auditdomain.Service
	clock      clock.Clock
	metrics    *metrics.PaymentMetrics
	tracer     trace.Tracer
}

func NewService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.manager"),
		genID:      p.GenID,
		repo:       p.Repo,
		registry:   p.Registry,
		dispatcher: p.Dispatcher,
		auditSvc:   p.AuditSvc,
		clock:      clk,
		metrics:    p.Metrics,
		tracer:     otel.Tracer("stag-herd/payment"),
	}
}

// Request asks the method's handler for a payment and stores it. A declined
// request is never persisted.
func (s *Service) Request(ctx context.Context, req domain.PaymentRequest) (*domain.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payment.request",
		trace.WithAttributes(tracing.SafeAttributes(attribute.String("payment.method", string(req.Method)))...))
	defer span.End()

	handler, err := s.registry.Resolve(req.Method)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	requestedID := strings.TrimSpace(req.MethodData.PaymentMethodID)
	if requestedID != "" && !handler.AllowsDuplicateMethodID() {
		exists, err := s.repo.MethodIDExists(ctx, s.db, handler.Method(), requestedID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrDuplicatePaymentMethodID
		}
	}

	result := handler.RequestPayment(ctx, req)
	if result.Error || result.Result == domain.StatusDeclined {
		s.log.Info("payment request declined",
			zap.String("method", string(handler.Method())),
			zap.String("reason", result.Reason),
		)
		return nil, domain.Decline(result.Reason)
	}

	now := s.clock.Now()
	registeredAt := handler.EffectiveDate(req.MethodData)
	if registeredAt.IsZero() {
		registeredAt = now
	}
	methodData := req.MethodData
	methodData.PaymentMethodID = result.MethodID

	payment := &domain.Payment{
		ID:           s.genID.Generate(),
		Method:       handler.Method(),
		MethodID:     optional(result.MethodID),
		MethodData:   datatypes.NewJSONType(methodData),
		Amount:       req.Amount.Round(2),
		Link:         optional(result.Link),
		Status:       result.Result,
		RegisteredAt: registeredAt,
	}
	if req.Order != nil {
		payment.OrderID = optional(req.Order.ID)
		payment.ClientID = req.Order.ClientID
		payment.Email = req.Order.Email
	}
	if payment.Status.IsTerminal() {
		payment.ExecutedAt = &now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, payment); err != nil {
			return err
		}
		if payment.Link != nil {
			if err := s.dispatch(ctx, tx, domain.EventPaymentLinkGenerated, payment, ""); err != nil {
				return err
			}
		}
		if payment.Status == domain.StatusApproved {
			return s.dispatch(ctx, tx, domain.EventPaymentApproved, payment, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(payment.Method), string(payment.Status))
	s.audit(ctx, auditdomain.ActionPaymentRequested, payment, map[string]any{
		"status": string(payment.Status),
		"amount": payment.Amount.StringFixed(2),
	})
	return payment, nil
}

func (s *Service) FromID(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) FromMethodID(ctx context.Context, method domain.Method, methodID string) (*domain.Payment, error) {
	methodID = strings.TrimSpace(methodID)
	if methodID == "" {
		return nil, domain.ErrPaymentNotFound
	}
	payment, err := s.repo.FindByMethodID(ctx, s.db, method, methodID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// Approve runs the handler's approval path. A PENDING outcome persists
// nothing; any other outcome moves the payment out of PENDING.
func (s *Service) Approve(ctx context.Context, payment *domain.Payment) (domain.PaymentResult, error) {
	if payment == nil {
		return domain.PaymentResult{}, domain.ErrPaymentNotFound
	}
	ctx, span := s.tracer.Start(ctx, "payment.approve",
		trace.WithAttributes(tracing.SafeAttributes(attribute.String("payment.method", string(payment.Method)))...))
	defer span.End()

	handler, err := s.handlerFor(payment.Method)
	if err != nil {
		return domain.PaymentResult{}, err
	}

	result := handler.ApprovePayment(ctx, payment)
	if result.IsPending() {
		return result, nil
	}
	if payment.Status.IsTerminal() {
		s.log.Debug("payment already settled",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		return result, nil
	}

	eventType := domain.EventPaymentRejected
	if result.Result == domain.StatusApproved {
		eventType = domain.EventPaymentApproved
	}
	if err := s.transition(ctx, payment, result.Result, eventType, result.Reason); err != nil {
		return domain.PaymentResult{}, err
	}
	return result, nil
}

// Cancel reverses a payment through its handler. Canceling a canceled payment
// returns it unchanged.
func (s *Service) Cancel(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if payment.Status == domain.StatusCanceled {
		return payment, nil
	}
	if payment.Status != domain.StatusPending && payment.Status != domain.StatusApproved {
		return nil, domain.Decline("Payment can not be canceled - status " + string(payment.Status))
	}

	ctx, span := s.tracer.Start(ctx, "payment.cancel",
		trace.WithAttributes(tracing.SafeAttributes(attribute.String("payment.method", string(payment.Method)))...))
	defer span.End()

	handler, err := s.handlerFor(payment.Method)
	if err != nil {
		return nil, err
	}
	result, err := handler.CancelPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	if result.Result != domain.StatusCanceled {
		return nil, domain.Decline("Payment can not be canceled - " + result.Reason)
	}

	if err := s.transition(ctx, payment, domain.StatusCanceled, "", result.Reason); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) Fee(payment *domain.Payment) (decimal.Decimal, error) {
	handler, err := s.handlerFor(payment.Method)
	if err != nil {
		return decimal.Zero, err
	}
	return handler.Fee(payment.Amount), nil
}

// CFDIPaymentForm returns the invoicing payment form of the payment's method.
func (s *Service) CFDIPaymentForm(payment *domain.Payment) (string, error) {
	handler, err := s.handlerFor(payment.Method)
	if err != nil {
		return "", err
	}
	return handler.CFDIPaymentForm(), nil
}

// handlerFor resolves the handler of a stored payment, whether or not the
// method still accepts new payments.
func (s *Service) handlerFor(method domain.Method) (domain.Handler, error) {
	desc, ok := s.registry.Lookup(method)
	if !ok || desc.Handler == nil {
		return nil, domain.ErrInvalidPaymentMethod
	}
	return desc.Handler, nil
}

// transition persists a status change with compare-and-swap on the current
// status. Losing the race leaves payment reloaded with the winner's state.
func (s *Service) transition(ctx context.Context, payment *domain.Payment, to domain.Status, eventType domain.EventType, reason string) error {
	from, executed := payment.Status, payment.ExecutedAt
	now := s.clock.Now()

	var swapped bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.TransitionStatus(ctx, tx, payment.ID, from, to, &now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		swapped = true

		payment.Status = to
		payment.ExecutedAt = &now
		if eventType == "" {
			return nil
		}
		return s.dispatch(ctx, tx, eventType, payment, reason)
	})
	if err != nil {
		payment.Status = from
		payment.ExecutedAt = executed
		return err
	}

	if !swapped {
		current, err := s.FromID(ctx, payment.ID)
		if err != nil {
			return err
		}
		*payment = *current
		s.log.Info("payment changed concurrently",
			zap.String("payment_id", payment.ID.String()),
			zap.String("expected", string(from)),
			zap.String("current", string(current.Status)),
		)
		if !current.Status.IsTerminal() {
			return domain.ErrConcurrentUpdate
		}
		return nil
	}

	s.metrics.IncTransition(string(payment.Method), string(to))
	s.audit(ctx, auditdomain.ActionPaymentStatusChanged, payment, map[string]any{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	})
	s.log.Info("payment status changed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("method", string(payment.Method)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, eventType domain.EventType, payment *domain.Payment, reason string) error {
	if s.dispatcher == nil {
		return nil
	}
	event := domain.NewPaymentEvent(eventType, payment, s.clock.Now())
	event.Reason = reason
	if err := s.dispatcher.Dispatch(ctx, tx, event); err != nil {
		return fmt.Errorf("dispatch %s: %w", eventType, err)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action string, payment *domain.Payment, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata["method"] = string(payment.Method)
	if methodID := payment.ProviderMethodID(); methodID != "" {
		metadata["method_id"] = methodID
	}
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: "payment",
		TargetID:   payment.ID.String(),
		Metadata:   metadata,
	})
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

var (
	_ domain.Manager  = (*Service)(nil)
	_ domain.Approver = (*Service)(nil)
)

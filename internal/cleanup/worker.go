package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/idempotency"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

const (
	defaultStalePendingDays = 14
	defaultInterval         = 24 * time.Hour
)

var ErrSweepRunning = errors.New("cleanup_sweep_running")

// Config is the sweep configuration derived from config.CleanupConfig.
type Config struct {
	Enabled          bool
	Interval         time.Duration
	StalePendingDays int
	StaleStatus      domain.Status
	Revalidate       bool
	LookbackHours    int
	Methods          []domain.Method
}

// ConfigFrom validates the cleanup section. The stale status must be terminal.
func ConfigFrom(cfg config.CleanupConfig) (Config, error) {
	out := Config{
		Enabled:          cfg.Enabled,
		Interval:         cfg.Interval,
		StalePendingDays: cfg.StalePendingDays,
		StaleStatus:      domain.StatusCanceled,
		Revalidate:       cfg.Revalidate.Enabled,
		LookbackHours:    cfg.Revalidate.LookbackHours,
	}
	if out.Interval <= 0 {
		out.Interval = defaultInterval
	}
	if out.StalePendingDays <= 0 {
		out.StalePendingDays = defaultStalePendingDays
	}
	if out.LookbackHours < 0 {
		out.LookbackHours = 0
	}
	if strings.TrimSpace(cfg.StaleStatus) != "" {
		status, err := domain.ParseStatus(cfg.StaleStatus)
		if err != nil || !status.IsTerminal() {
			return Config{}, fmt.Errorf("%w: stale status %q", domain.ErrInvalidConfig, cfg.StaleStatus)
		}
		out.StaleStatus = status
	}
	for _, method := range cfg.Revalidate.Methods {
		if code := domain.ParseMethod(method); code != "" {
			out.Methods = append(out.Methods, code)
		}
	}
	return out, nil
}

// Options override the configuration for a single run.
type Options struct {
	// Revalidate forces revalidation on or off. Nil follows the configuration.
	Revalidate *bool
}

// Report summarizes one sweep.
type Report struct {
	OrphansDeleted int64
	// RevalidationSkipped is set when revalidation was disabled for the run.
	RevalidationSkipped bool
	// Revalidated counts pending payments re-checked with their provider.
	Revalidated int
	// Moved counts re-checked payments that left PENDING.
	Moved int
	// Failed counts re-checks that errored and were skipped.
	Failed              int
	Canceled            int64
	StaleCutoff         time.Time
	ExpiredReservations int64
}

type Params struct {
	fx.In

	Cfg      config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Approver domain.Approver
	Store    idempotency.Store       `optional:"true"`
	Metrics  *metrics.PaymentMetrics `optional:"true"`
	Clock    clock.Clock             `optional:"true"`
}

// Worker runs the cleanup sweep: orphan removal, optional revalidation of
// recent pending payments and bulk expiry of stale pending payments.
type Worker struct {
	cfg      Config
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	approver domain.Approver
	store    idempotency.Store
	metrics  *metrics.PaymentMetrics
	clock    clock.Clock

	running sync.Mutex
}

func NewWorker(p Params) (*Worker, error) {
	cfg, err := ConfigFrom(p.Cfg.Cleanup)
	if err != nil {
		return nil, err
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Worker{
		cfg:      cfg,
		db:       p.DB,
		log:      p.Log.Named("cleanup"),
		repo:     p.Repo,
		approver: p.Approver,
		store:    p.Store,
		metrics:  p.Metrics,
		clock:    clk,
	}, nil
}

// RunOnce performs one sweep. Cancellation is honored between steps; a step
// that has started runs to completion.
func (w *Worker) RunOnce(ctx context.Context, opts Options) (Report, error) {
	if !w.running.TryLock() {
		return Report{}, ErrSweepRunning
	}
	defer w.running.Unlock()

	var report Report
	step := context.WithoutCancel(ctx)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	deleted, err := w.repo.DeleteOrphans(step, w.db)
	if err != nil {
		return report, fmt.Errorf("delete orphans: %w", err)
	}
	report.OrphansDeleted = deleted
	w.metrics.AddCleanup("orphans", deleted)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := w.revalidate(step, opts, &report); err != nil {
		return report, fmt.Errorf("revalidate: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	now := w.clock.Now()
	report.StaleCutoff = now.AddDate(0, 0, -w.cfg.StalePendingDays)
	canceled, err := w.repo.MarkPendingBefore(step, w.db, report.StaleCutoff, w.cfg.StaleStatus, now)
	if err != nil {
		return report, fmt.Errorf("expire stale: %w", err)
	}
	report.Canceled = canceled
	w.metrics.AddCleanup("stale", canceled)

	if w.store != nil {
		purged, err := w.store.PurgeExpired(step)
		if err != nil {
			w.log.Warn("purge expired reservations failed", zap.Error(err))
		} else {
			report.ExpiredReservations = purged
			w.metrics.AddCleanup("reservations", purged)
		}
	}

	w.log.Info("cleanup sweep finished",
		zap.Int64("orphans_deleted", report.OrphansDeleted),
		zap.Bool("revalidation_skipped", report.RevalidationSkipped),
		zap.Int("revalidated", report.Revalidated),
		zap.Int("moved", report.Moved),
		zap.Int("failed", report.Failed),
		zap.Int64("stale_marked", report.Canceled),
		zap.String("stale_status", string(w.cfg.StaleStatus)),
		zap.Time("stale_cutoff", report.StaleCutoff),
		zap.Int64("expired_reservations", report.ExpiredReservations),
	)
	return report, nil
}

func (w *Worker) revalidate(ctx context.Context, opts Options, report *Report) error {
	enabled := w.cfg.Revalidate
	if opts.Revalidate != nil {
		enabled = *opts.Revalidate
	}
	if !enabled || w.approver == nil {
		report.RevalidationSkipped = true
		return nil
	}
	if w.cfg.LookbackHours == 0 {
		return nil
	}

	since := w.clock.Now().Add(-time.Duration(w.cfg.LookbackHours) * time.Hour)
	pending, err := w.repo.ListPending(ctx, w.db, domain.PendingFilter{Since: &since, Methods: w.cfg.Methods})
	if err != nil {
		return err
	}

	for i := range pending {
		payment := &pending[i]
		result, err := w.revalidateOne(ctx, payment)
		if err != nil {
			report.Failed++
			w.log.Warn("failed to revalidate payment",
				zap.String("payment_id", payment.ID.String()),
				zap.String("method", string(payment.Method)),
				zap.String("method_id", payment.ProviderMethodID()),
				zap.Error(err),
			)
			continue
		}
		report.Revalidated++
		if !result.IsPending() {
			report.Moved++
		}
	}
	w.metrics.AddCleanup("revalidated", int64(report.Moved))
	return nil
}

func (w *Worker) revalidateOne(ctx context.Context, payment *domain.Payment) (result domain.PaymentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.approver.Approve(ctx, payment)
}

// RunForever sweeps every configured interval until ctx is done. It returns
// immediately when the sweep is disabled.
func (w *Worker) RunForever(ctx context.Context) {
	if !w.cfg.Enabled {
		w.log.Info("cleanup sweep disabled")
		return
	}
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx, Options{}); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Error("cleanup sweep failed", zap.Error(err))
			}
		}
	}
}

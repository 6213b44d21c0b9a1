package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
)

const (
	defaultRelayBatch    = 100
	defaultRelayInterval = 5 * time.Second
)

type RelayConfig struct {
	Batch    int
	Interval time.Duration
}

// Relay moves unpublished outbox rows to every configured publisher. A batch
// is marked published only when all publishers accepted it, so consumers must
// tolerate redelivery.
type Relay struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	publishers []Publisher
	metrics    *metrics.PaymentMetrics
	cfg        RelayConfig
}

func NewRelay(db *gorm.DB, log *zap.Logger, clk clock.Clock, m *metrics.PaymentMetrics, cfg RelayConfig, publishers ...Publisher) *Relay {
	if cfg.Batch <= 0 {
		cfg.Batch = defaultRelayBatch
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRelayInterval
	}
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Relay{
		db:         db,
		log:        log.Named("events.relay"),
		clock:      clk,
		publishers: publishers,
		metrics:    m,
		cfg:        cfg,
	}
}

// RunOnce relays one batch and reports how many rows were published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	if len(r.publishers) == 0 {
		return 0, nil
	}

	var rows []OutboxEvent
	err := r.db.WithContext(ctx).
		Where("published = ?", false).
		Order("id ASC").
		Limit(r.cfg.Batch).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	msgs := make([]Message, 0, len(rows))
	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		msg, err := messageFromOutbox(row)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
		ids = append(ids, row.ID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, publisher := range r.publishers {
		g.Go(func() error {
			if err := publisher.Publish(gctx, msgs); err != nil {
				return fmt.Errorf("%s: %w", publisher.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.metrics.AddOutboxPublished("failed", len(rows))
		msg := err.Error()
		if updateErr := r.db.WithContext(ctx).
			Model(&OutboxEvent{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": truncate(msg, 500),
			}).Error; updateErr != nil {
			r.log.Warn("failed to record relay failure", zap.Error(updateErr))
		}
		return 0, err
	}

	now := r.clock.Now()
	if err := r.db.WithContext(ctx).
		Model(&OutboxEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"published":    true,
			"published_at": now,
			"last_error":   nil,
		}).Error; err != nil {
		return 0, err
	}
	r.metrics.AddOutboxPublished("success", len(rows))
	return len(rows), nil
}

// Run relays until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() == nil {
					r.log.Warn("outbox relay failed", zap.Error(err))
				}
				break
			}
			if n < r.cfg.Batch {
				break
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Relay) Close() error {
	var errs []error
	for _, publisher := range r.publishers {
		if err := publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	// Back off to a rune boundary so the stored text stays valid UTF-8.
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

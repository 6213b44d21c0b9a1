package events

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/config"
	"github.com/EquidnaMX/stag-herd/internal/observability/metrics"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

var Module = fx.Module("events",
	fx.Provide(NewOutbox),
	fx.Provide(func(o *Outbox) domain.Dispatcher { return o }),
	fx.Provide(NewPublishers),
	fx.Provide(newRelay),
	fx.Invoke(registerRelay),
)

type relayParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Cfg        config.Config
	Publishers []Publisher
	Metrics    *metrics.PaymentMetrics `optional:"true"`
}

func newRelay(p relayParams) *Relay {
	return NewRelay(p.DB, p.Log, p.Clock, p.Metrics, RelayConfig{
		Batch:    p.Cfg.Events.RelayBatch,
		Interval: p.Cfg.Events.RelayInterval,
	}, p.Publishers...)
}

// NewPublishers connects to the configured brokers. A broker that cannot be
// reached at startup fails the application.
func NewPublishers(cfg config.Config, log *zap.Logger) ([]Publisher, error) {
	var publishers []Publisher
	if len(cfg.Events.Kafka.Brokers) > 0 && strings.TrimSpace(cfg.Events.Kafka.Topic) != "" {
		publishers = append(publishers, NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic))
	}
	if url := strings.TrimSpace(cfg.Events.RabbitMQ.URL); url != "" {
		exchange := strings.TrimSpace(cfg.Events.RabbitMQ.Exchange)
		if exchange == "" {
			exchange = "stag-herd.payments"
		}
		rabbit, err := NewRabbitMQPublisher(url, exchange)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, rabbit)
	}
	if len(publishers) == 0 {
		log.Named("events").Info("no event brokers configured; events stay in the outbox")
	}
	return publishers, nil
}

func registerRelay(lc fx.Lifecycle, cfg config.Config, relay *Relay) {
	if !cfg.Events.RelayEnabled {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return relay.Close() }})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				relay.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return relay.Close()
		},
	})
}

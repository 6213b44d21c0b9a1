package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

// OutboxEvent is a stored event awaiting relay.
type OutboxEvent struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	EventType   string            `gorm:"type:text;not null;index"`
	PaymentID   snowflake.ID      `gorm:"not null;index"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb;not null"`
	DedupeKey   string            `gorm:"type:text;not null;uniqueIndex"`
	Published   bool              `gorm:"not null;default:false;index"`
	PublishedAt *time.Time
	Attempts    int     `gorm:"not null;default:0"`
	LastError   *string `gorm:"type:text"`
	CreatedAt   time.Time
}

// TableName sets the database table name.
func (OutboxEvent) TableName() string { return "payment_outbox" }

// Outbox stores payment events in payment_outbox, in the caller's
// transaction when one is given.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Outbox {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Outbox{db: db, genID: genID, clock: clk}
}

// Dispatch implements domain.Dispatcher.
func (o *Outbox) Dispatch(ctx context.Context, tx *gorm.DB, event domain.Event) error {
	if o == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	db := tx
	if db == nil {
		db = o.db
	}
	if db == nil {
		return errors.New("outbox_unavailable")
	}
	name := strings.TrimSpace(string(event.Type))
	if name == "" {
		return errors.New("missing_event_type")
	}
	if event.PaymentID == 0 {
		return errors.New("invalid_payment_id")
	}

	payload := datatypes.JSONMap(NewPaymentPayload(event).ToMap())
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_outbox (id, event_type, payment_id, payload, dedupe_key, published, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, false, 0, ?)
		 ON CONFLICT (dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		name,
		event.PaymentID,
		payload,
		DedupeKey(event),
		o.clock.Now(),
	).Error
}

var _ domain.Dispatcher = (*Outbox)(nil)

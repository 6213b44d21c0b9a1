package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/EquidnaMX/stag-herd/internal/cache"
	"github.com/EquidnaMX/stag-herd/internal/clock"
	"gorm.io/gorm"
)

// DefaultTTL covers realistic provider retry windows.
const DefaultTTL = 7 * 24 * time.Hour

var ErrInvalidKey = errors.New("invalid_idempotency_key")

// Store admits a provider event at most once per TTL window.
type Store interface {
	// Reserve returns true only for the first reservation of provider:eventID
	// that is still live.
	Reserve(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// Key builds the reservation key for a provider event.
func Key(provider, eventID string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + ":" + strings.TrimSpace(eventID)
}

func normalize(provider, eventID string, ttl time.Duration) (string, time.Duration, error) {
	if strings.TrimSpace(provider) == "" || strings.TrimSpace(eventID) == "" {
		return "", 0, ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Key(provider, eventID), ttl, nil
}

// Reservation is a stored idempotency key.
type Reservation struct {
	Key        string    `gorm:"column:reservation_key;primaryKey;type:text"`
	Provider   string    `gorm:"column:provider;type:text;not null"`
	EventID    string    `gorm:"column:event_id;type:text;not null"`
	ReservedAt time.Time `gorm:"column:reserved_at;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
}

// TableName sets the database table name.
func (Reservation) TableName() string { return "webhook_reservations" }

// GormStore keeps reservations in the webhook_reservations table.
type GormStore struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewGormStore(db *gorm.DB, clk clock.Clock) *GormStore {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &GormStore{db: db, clock: clk}
}

// Reserve inserts the key, or takes over an expired row, in one statement.
func (s *GormStore) Reserve(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error) {
	key, ttl, err := normalize(provider, eventID, ttl)
	if err != nil {
		return false, err
	}
	now := s.clock.Now()
	result := s.db.WithContext(ctx).Exec(
		`INSERT INTO webhook_reservations (reservation_key, provider, event_id, reserved_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (reservation_key) DO UPDATE
		 SET reserved_at = excluded.reserved_at, expires_at = excluded.expires_at
		 WHERE webhook_reservations.expires_at <= ?`,
		key,
		strings.ToLower(strings.TrimSpace(provider)),
		strings.TrimSpace(eventID),
		now,
		now.Add(ttl),
		now,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM webhook_reservations WHERE expires_at <= ?`,
		s.clock.Now(),
	)
	return result.RowsAffected, result.Error
}

// MemoryStore keeps reservations in process memory. Suitable for a single
// instance only.
type MemoryStore struct {
	items *cache.TTLCache[string, struct{}]
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &MemoryStore{items: cache.NewTTLCacheWithClock[string, struct{}](clk.Now)}
}

func (s *MemoryStore) Reserve(_ context.Context, provider, eventID string, ttl time.Duration) (bool, error) {
	key, ttl, err := normalize(provider, eventID, ttl)
	if err != nil {
		return false, err
	}
	return s.items.Add(key, struct{}{}, ttl), nil
}

func (s *MemoryStore) PurgeExpired(context.Context) (int64, error) {
	return int64(s.items.Purge()), nil
}

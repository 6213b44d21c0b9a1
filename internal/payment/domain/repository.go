package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type PendingFilter struct {
	Since   *time.Time
	Before  *time.Time
	Methods []Method
	Limit   int
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByMethodID(ctx context.Context, db *gorm.DB, method Method, methodID string) (*Payment, error)
	MethodIDExists(ctx context.Context, db *gorm.DB, method Method, methodID string) (bool, error)
	// TransitionStatus moves a payment from one status to another and reports
	// whether the row still held the expected status.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from Status, to Status, executedAt *time.Time) (bool, error)
	DeleteOrphans(ctx context.Context, db *gorm.DB) (int64, error)
	ListPending(ctx context.Context, db *gorm.DB, filter PendingFilter) ([]Payment, error)
	MarkPendingBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, status Status, executedAt time.Time) (int64, error)
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ActorType represents who triggered an action.
type ActorType string

const (
	ActorTypeProvider ActorType = "provider"
	ActorTypeSystem   ActorType = "system"
	ActorTypeClient   ActorType = "client"
)

const (
	ActionWebhookVerified           = "webhook.verified"
	ActionWebhookVerificationFailed = "webhook.verification_failed"
	ActionWebhookProcessingFailed   = "webhook.processing_failed"
	ActionWebhookSuspicious         = "webhook.suspicious_activity"
	ActionPaymentRequested          = "payment.requested"
	ActionPaymentStatusChanged      = "payment.status_changed"
)

// AuditLog captures an immutable record of a security or payment action.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorType  string            `gorm:"type:text;not null"`
	ActorID    *string           `gorm:"type:text"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text;index"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	IPAddress  *string           `gorm:"type:text"`
	UserAgent  *string           `gorm:"type:text"`
	RequestID  *string           `gorm:"type:text"`
	CreatedAt  time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

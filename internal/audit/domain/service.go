package domain

import "context"

// Entry is an audit record before actor and request details are attached.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type Service interface {
	// Record stores an entry, taking actor, IP and request id from ctx.
	// Failures are logged, never returned to the payment flow.
	Record(ctx context.Context, entry Entry)
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
}

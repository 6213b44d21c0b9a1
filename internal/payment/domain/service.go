package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Manager drives the payment state machine.
type Manager interface {
	Approver

	Request(ctx context.Context, req PaymentRequest) (*Payment, error)
	FromID(ctx context.Context, id snowflake.ID) (*Payment, error)
	Cancel(ctx context.Context, payment *Payment) (*Payment, error)
	Fee(payment *Payment) (decimal.Decimal, error)
}

// Registry resolves method codes to handlers.
type Registry interface {
	Resolve(method Method) (Handler, error)
	Lookup(method Method) (Descriptor, bool)
	Descriptors() []Descriptor
}

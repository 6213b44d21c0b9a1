package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/clock"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/verifier"
)

const (
	cfdiCash     = "01"
	cfdiCard     = "04"
	cfdiTransfer = "03"
	cfdiUndef    = "99"

	reasonInvalidAmount = "Invalid amount!"
	statusUnknown       = "Unknown"
)

// Fee is a fixed charge plus a rate over the payment amount.
type Fee struct {
	Fixed    decimal.Decimal
	Variable decimal.Decimal
}

func NewFee(fixed, variable float64) Fee {
	return Fee{Fixed: decimal.NewFromFloat(fixed), Variable: decimal.NewFromFloat(variable)}
}

func (f Fee) Apply(amount decimal.Decimal) decimal.Decimal {
	return f.Fixed.Add(amount.Mul(f.Variable))
}

var (
	DefaultPayPalFee = NewFee(4, 0.0395)
	DefaultStripeFee = NewFee(2.9, 0.029)
)

// Options are shared by every handler constructor.
type Options struct {
	// Method overrides the handler's built-in code, for custom methods that
	// reuse a built-in implementation.
	Method domain.Method
	// Fee overrides the provider default.
	Fee   *Fee
	Clock clock.Clock
}

// core carries the behavior every handler shares.
type core struct {
	method domain.Method
	fee    Fee
	cfdi   string
	clock  clock.Clock
}

func newCore(method domain.Method, cfdi string, fee Fee, opts Options) core {
	if opts.Method != "" {
		method = opts.Method
	}
	if opts.Fee != nil {
		fee = *opts.Fee
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return core{method: method, fee: fee, cfdi: cfdi, clock: clk}
}

func (c core) Method() domain.Method { return c.method }

func (c core) Fee(amount decimal.Decimal) decimal.Decimal { return c.fee.Apply(amount) }

func (c core) EffectiveDate(data domain.MethodData) time.Time {
	if data.EffectiveDate != nil && !data.EffectiveDate.IsZero() {
		return data.EffectiveDate.UTC()
	}
	return c.clock.Now()
}

func (c core) AllowsDuplicateMethodID() bool { return false }

func (c core) CFDIPaymentForm() string { return c.cfdi }

// webhook gives a handler signature verification through a verifier.
type webhook struct {
	verifier verifier.Verifier
}

func (w webhook) VerifyWebhook(ctx context.Context, req domain.WebhookRequest) domain.VerificationResult {
	if w.verifier == nil {
		return domain.VerificationFailed("Not implemented")
	}
	return w.verifier.Verify(ctx, req)
}

// approveByMethodID loads the payment a notification refers to and runs it
// through the approval path.
func approveByMethodID(ctx context.Context, approver domain.Approver, method domain.Method, methodID string) error {
	payment, err := approver.FromMethodID(ctx, method, methodID)
	if err != nil {
		return err
	}
	_, err = approver.Approve(ctx, payment)
	return err
}

// randomMethodID stands in for a provider id on flows without one.
func randomMethodID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

func orderDescription(order *domain.Order) string {
	if order == nil {
		return "Order"
	}
	if desc := strings.TrimSpace(order.Description); desc != "" {
		return desc
	}
	return "Order " + order.ID
}

func orderCustomer(order *domain.Order) (name, email string) {
	if order == nil {
		return "", ""
	}
	return order.ClientName, order.Email
}

func orderID(order *domain.Order) string {
	if order == nil {
		return ""
	}
	return order.ID
}

func orUnknown(status string) string {
	if status == "" {
		return statusUnknown
	}
	return status
}

var (
	_ domain.Handler        = (*Base)(nil)
	_ domain.Handler        = (*Clip)(nil)
	_ domain.WebhookHandler = (*PayPal)(nil)
	_ domain.WebhookHandler = (*MercadoPago)(nil)
	_ domain.WebhookHandler = (*Openpay)(nil)
	_ domain.WebhookHandler = (*Conekta)(nil)
	_ domain.WebhookHandler = (*Kueski)(nil)
	_ domain.WebhookHandler = (*Stripe)(nil)
)

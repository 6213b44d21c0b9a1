package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Method is the internal code of a provider or payment flow.
type Method string

const (
	MethodPayPal      Method = "PAYPAL"
	MethodStripe      Method = "STRIPE"
	MethodMercadoPago Method = "MERCADOPAGO"
	MethodOpenpay     Method = "OPENPAY"
	MethodConekta     Method = "CONEKTA"
	MethodKueskiPay   Method = "KUESKIPAY"
	MethodClip        Method = "CLIP"
	MethodGooglePay   Method = "GOOGLEPAY"
	MethodCash        Method = "CASH"
	MethodBase        Method = "BASE"
)

func ParseMethod(value string) Method {
	return Method(strings.ToUpper(strings.TrimSpace(value)))
}

func (m Method) String() string { return string(m) }

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusCanceled Status = "CANCELED"
	StatusDeclined Status = "DECLINED"
)

// IsTerminal reports whether no further transition is defined from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCanceled, StatusDeclined:
		return true
	default:
		return false
	}
}

func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusApproved, StatusRejected, StatusCanceled, StatusDeclined:
		return status, nil
	default:
		return "", ErrInvalidStatus
	}
}

// MethodData is the method-specific blob stored with a payment.
type MethodData struct {
	PaymentMethodID string         `json:"payment_method_id,omitempty"`
	EffectiveDate   *time.Time     `json:"effective_date,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// Payment is the persisted payment record.
type Payment struct {
	ID           snowflake.ID                   `gorm:"column:id_payment;primaryKey"`
	OrderID      *string                        `gorm:"column:id_order;type:text;index"`
	ClientID     string                         `gorm:"column:id_client;type:text"`
	Method       Method                         `gorm:"column:method;type:text;not null;uniqueIndex:ux_payments_method_method_id"`
	MethodID     *string                        `gorm:"column:method_id;type:text;uniqueIndex:ux_payments_method_method_id"`
	MethodData   datatypes.JSONType[MethodData] `gorm:"column:method_data"`
	Amount       decimal.Decimal                `gorm:"column:amount;type:numeric(14,2);not null"`
	Link         *string                        `gorm:"column:link;type:text"`
	Email        string                         `gorm:"column:email;type:text"`
	Status       Status                         `gorm:"column:status;type:text;not null;index"`
	RegisteredAt time.Time                      `gorm:"column:dt_registration;not null"`
	ExecutedAt   *time.Time                     `gorm:"column:dt_executed"`
	CreatedAt    time.Time                      `gorm:"column:created_at"`
	UpdatedAt    time.Time                      `gorm:"column:updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// ProviderMethodID returns the provider identifier or an empty string.
func (p *Payment) ProviderMethodID() string {
	if p == nil || p.MethodID == nil {
		return ""
	}
	return *p.MethodID
}

func (p *Payment) OrderRef() string {
	if p == nil || p.OrderID == nil {
		return ""
	}
	return *p.OrderID
}

func (p *Payment) LinkValue() string {
	if p == nil || p.Link == nil {
		return ""
	}
	return *p.Link
}

// Order is the host-side order a payment settles.
type Order struct {
	ID          string
	ClientID    string
	ClientName  string
	Email       string
	Description string
}

// PaymentRequest is the input of Manager.Request.
type PaymentRequest struct {
	Amount     decimal.Decimal
	Method     Method
	Order      *Order
	MethodData MethodData
}

// Descriptor is a registry entry for a method code.
type Descriptor struct {
	Method      Method
	Description string
	Enabled     bool
	Handler     Handler
}

package domain

import "errors"

var (
	ErrInvalidPaymentMethod     = errors.New("invalid_payment_method")
	ErrPaymentNotFound          = errors.New("payment_not_found")
	ErrPaymentDeclined          = errors.New("payment_declined")
	ErrDuplicatePaymentMethodID = errors.New("duplicate_payment_method_id")
	ErrProviderNotFound         = errors.New("provider_not_found")
	ErrHandlerNotCompatible     = errors.New("handler_not_compatible")
	ErrInvalidPayload           = errors.New("invalid_payload")
	ErrInvalidAmount            = errors.New("invalid_amount")
	ErrInvalidStatus            = errors.New("invalid_status")
	ErrInvalidConfig            = errors.New("invalid_config")
	ErrConcurrentUpdate         = errors.New("concurrent_update")
)

// DeclinedError carries the provider or validation reason for a decline.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	if e.Reason == "" {
		return ErrPaymentDeclined.Error()
	}
	return ErrPaymentDeclined.Error() + ": " + e.Reason
}

func (e *DeclinedError) Unwrap() error { return ErrPaymentDeclined }

func Decline(reason string) error {
	return &DeclinedError{Reason: reason}
}

// DeclineReason extracts the reason of a DeclinedError, if any.
func DeclineReason(err error) string {
	var declined *DeclinedError
	if errors.As(err, &declined) {
		return declined.Reason
	}
	return ""
}

package domain

const (
	reasonAlwaysPending  = "Always PENDING"
	reasonAlwaysCanceled = "Always CANCELED"
)

// PaymentResult is returned by every handler operation.
type PaymentResult struct {
	Error    bool
	Result   Status
	Reason   string
	MethodID string
	Link     string
	Metadata map[string]any
}

func Success(result Status, methodID, link string, metadata map[string]any) PaymentResult {
	return PaymentResult{
		Result:   result,
		MethodID: methodID,
		Link:     link,
		Metadata: metadata,
	}
}

func Pending(methodID, link, reason string) PaymentResult {
	if reason == "" {
		reason = reasonAlwaysPending
	}
	return PaymentResult{
		Result:   StatusPending,
		Reason:   reason,
		MethodID: methodID,
		Link:     link,
	}
}

func Declined(reason string) PaymentResult {
	return PaymentResult{
		Error:  true,
		Result: StatusDeclined,
		Reason: reason,
	}
}

func Canceled(reason string) PaymentResult {
	if reason == "" {
		reason = reasonAlwaysCanceled
	}
	return PaymentResult{
		Result: StatusCanceled,
		Reason: reason,
	}
}

func (r PaymentResult) IsPending() bool { return r.Result == StatusPending }

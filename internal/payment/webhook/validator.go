package webhook

import (
	"bytes"
	"strings"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
	"github.com/EquidnaMX/stag-herd/internal/payment/payload"
)

// Validation is the outcome of the structural payload check that runs after
// signature verification. Ignored marks a well-formed event the handlers do
// not act on.
type Validation struct {
	Valid   bool
	Ignored bool
	Reason  string
}

func accepted() Validation { return Validation{Valid: true} }

func rejected(reason string) Validation { return Validation{Reason: reason} }

func ignored(eventType string) Validation {
	return Validation{Valid: true, Ignored: true, Reason: "Unsupported event type: " + eventType}
}

type rule func(doc payload.Document, req domain.WebhookRequest) Validation

var rules = map[domain.Method]rule{
	domain.MethodStripe:      validateStripe,
	domain.MethodGooglePay:   validateStripe,
	domain.MethodPayPal:      validatePayPal,
	domain.MethodMercadoPago: validateMercadoPago,
	domain.MethodConekta:     validateConekta,
	domain.MethodKueskiPay:   validateKueski,
	domain.MethodOpenpay:     validateOpenpay,
}

var allowedEvents = map[domain.Method]map[string]struct{}{
	domain.MethodStripe: set(
		"payment_intent.succeeded",
		"payment_intent.payment_failed",
		"charge.succeeded",
		"charge.failed",
		"checkout.session.completed",
	),
	domain.MethodPayPal: set(
		"PAYMENT.CAPTURE.COMPLETED",
		"PAYMENT.CAPTURE.DENIED",
		"CHECKOUT.ORDER.APPROVED",
		"CHECKOUT.ORDER.COMPLETED",
	),
	domain.MethodMercadoPago: set("payment", "merchant_order"),
	domain.MethodConekta: set(
		"order.paid",
		"order.pending_payment",
		"order.canceled",
		"charge.paid",
		"charge.pending_payment",
	),
	domain.MethodKueskiPay: set("payment.approved", "payment.rejected", "payment.pending"),
	domain.MethodOpenpay: set(
		"charge.succeeded",
		"charge.failed",
		"charge.cancelled",
		"charge.created",
	),
}

func set(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		out[value] = struct{}{}
	}
	return out
}

func allowed(method domain.Method, eventType string) bool {
	_, ok := allowedEvents[method][eventType]
	return ok
}

// ValidatePayload checks the body of a verified notification against the
// provider's required fields. Methods without a rule are accepted as is.
func ValidatePayload(method domain.Method, req domain.WebhookRequest) Validation {
	check, ok := rules[method]
	if !ok {
		return accepted()
	}
	if method == domain.MethodMercadoPago && len(bytes.TrimSpace(req.Body)) == 0 {
		// IPN deliveries may carry the id in the query string only.
		if req.QueryValue("data.id") != "" || req.QueryValue("id") != "" {
			return accepted()
		}
	}
	doc, err := payload.Parse(req.Body)
	if err != nil {
		return rejected("Body must be a JSON object")
	}
	return check(doc, req)
}

func validateStripe(doc payload.Document, _ domain.WebhookRequest) Validation {
	id := doc.String("id")
	eventType := doc.String("type")
	if id == "" || eventType == "" || !doc.Has("data", "object") {
		return rejected("Missing required fields: id, type, or data.object")
	}
	if !strings.HasPrefix(id, "evt_") {
		return rejected("Invalid event ID format")
	}
	if !allowed(domain.MethodStripe, eventType) {
		return ignored(eventType)
	}
	return accepted()
}

func validatePayPal(doc payload.Document, _ domain.WebhookRequest) Validation {
	id := doc.String("id")
	eventType := doc.String("event_type")
	if id == "" || eventType == "" || !doc.Has("resource") {
		return rejected("Missing required fields: id, event_type, or resource")
	}
	if len(id) < 5 {
		return rejected("Invalid event ID")
	}
	if !allowed(domain.MethodPayPal, eventType) {
		return ignored(eventType)
	}
	return accepted()
}

func validateMercadoPago(doc payload.Document, _ domain.WebhookRequest) Validation {
	dataID := doc.String("data", "id")
	if dataID == "" && doc.String("id") == "" {
		return rejected("Missing required fields: data.id or id")
	}
	if dataID != "" && !isNumeric(dataID) {
		return rejected("Invalid data.id format")
	}
	if eventType := doc.String("type"); eventType != "" && !allowed(domain.MethodMercadoPago, eventType) {
		return ignored(eventType)
	}
	return accepted()
}

func validateConekta(doc payload.Document, _ domain.WebhookRequest) Validation {
	eventType := doc.String("type")
	if eventType == "" || !doc.Has("data", "object") {
		return rejected("Missing required fields: type or data.object")
	}
	if !allowed(domain.MethodConekta, eventType) {
		return ignored(eventType)
	}
	return accepted()
}

func validateKueski(doc payload.Document, _ domain.WebhookRequest) Validation {
	if doc.FirstString("payment_id", "id") == "" {
		return rejected("Missing required fields: payment_id or id")
	}
	if event := doc.String("event"); event != "" && !allowed(domain.MethodKueskiPay, event) {
		return ignored(event)
	}
	return accepted()
}

func validateOpenpay(doc payload.Document, _ domain.WebhookRequest) Validation {
	eventType := doc.String("type")
	if eventType == "" || !doc.Has("transaction") {
		return rejected("Missing required fields: type or transaction")
	}
	if doc.String("transaction", "id") == "" {
		return rejected("Missing transaction.id")
	}
	if !allowed(domain.MethodOpenpay, eventType) {
		return ignored(eventType)
	}
	return accepted()
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

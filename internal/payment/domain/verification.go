package domain

import (
	"net/http"
	"net/url"
	"strings"
)

// VerificationResult is produced by signature verifiers. Reason is set only
// on failure; EventID is the provider notification id used for idempotency.
type VerificationResult struct {
	Valid   bool
	Reason  string
	EventID string
}

func Verified(eventID string) VerificationResult {
	return VerificationResult{Valid: true, EventID: strings.TrimSpace(eventID)}
}

func VerificationFailed(reason string) VerificationResult {
	return VerificationResult{Reason: reason}
}

// WebhookRequest is the raw inbound notification.
type WebhookRequest struct {
	Provider string
	Body     []byte
	Headers  http.Header
	Query    url.Values
	RemoteIP string
}

func (r WebhookRequest) Header(name string) string {
	if r.Headers == nil {
		return ""
	}
	return strings.TrimSpace(r.Headers.Get(name))
}

func (r WebhookRequest) QueryValue(name string) string {
	if r.Query == nil {
		return ""
	}
	return strings.TrimSpace(r.Query.Get(name))
}

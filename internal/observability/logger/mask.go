package logger

import (
	"net/http"
	"net/url"
	"strings"
)

const maskPrefix = "****"

// sensitiveFragments mark JSON keys and query parameters whose values are
// credentials or payer card data.
var sensitiveFragments = []string{
	"secret",
	"token",
	"password",
	"api_key",
	"private_key",
	"authorization",
	"signature",
	"card",
}

// headerMaskers lists the inbound headers that carry credentials. Provider
// signature headers keep their last four characters so deliveries can still
// be correlated with the provider dashboard.
var headerMaskers = map[string]func(string) string{
	"authorization":           MaskAuthorization,
	"x-api-key":               tail4,
	"stripe-signature":        tail4,
	"x-signature":             tail4,
	"digest":                  tail4,
	"x-kueski-signature":      tail4,
	"verification-signature":  tail4,
	"paypal-transmission-sig": tail4,
	"paypal-cert-url":         tail4,
}

// MaskAuthorization keeps the scheme of an Authorization value and masks the
// credential.
func MaskAuthorization(value string) string {
	scheme, credential, found := strings.Cut(strings.TrimSpace(value), " ")
	if !found {
		return tail4(value)
	}
	return scheme + " " + tail4(credential)
}

// MaskHeaders flattens headers for logging with credentials masked.
func MaskHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		joined := strings.Join(values, ",")
		if mask, ok := headerMaskers[strings.ToLower(name)]; ok {
			joined = mask(joined)
		}
		out[name] = joined
	}
	return out
}

// MaskJSON deep-copies a decoded webhook body, masking sensitive keys at any
// depth.
func MaskJSON(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		if isSensitive(key) {
			out[key] = maskScalar(value)
			continue
		}
		out[key] = maskNested(value)
	}
	return out
}

// SafeFieldsFromRequest describes a request for the access log.
func SafeFieldsFromRequest(req *http.Request) map[string]any {
	if req == nil {
		return map[string]any{}
	}
	size := req.ContentLength
	if size < 0 {
		size = 0
	}
	return map[string]any{
		"method":         req.Method,
		"path":           req.URL.Path,
		"query":          maskQuery(req.URL.Query()),
		"content_length": size,
		"headers":        MaskHeaders(req.Header),
	}
}

// maskQuery covers the access_token some providers append to callback URLs.
func maskQuery(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for key, vals := range values {
		joined := strings.Join(vals, ",")
		if isSensitive(key) {
			joined = tail4(joined)
		}
		out[key] = joined
	}
	return out
}

func maskNested(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return MaskJSON(typed)
	case []any:
		items := make([]any, len(typed))
		for i, item := range typed {
			items[i] = maskNested(item)
		}
		return items
	default:
		return value
	}
}

func maskScalar(value any) any {
	if s, ok := value.(string); ok {
		return tail4(s)
	}
	return maskPrefix
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, fragment := range sensitiveFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

func tail4(value string) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return maskPrefix + value
	default:
		return maskPrefix + value[len(value)-4:]
	}
}

package tracing

import (
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// redactedFragments mark attribute keys whose values must never reach an
// exporter: provider credentials, webhook signatures and payer contact data.
var redactedFragments = []string{
	"secret",
	"token",
	"password",
	"authorization",
	"signature",
	"api_key",
	"private_key",
	"email",
	"card",
}

func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := attrs[:0:0]
	for _, attr := range attrs {
		if redacted(string(attr.Key)) {
			continue
		}
		kept = append(kept, attr)
	}
	return kept
}

// SafeError reduces err to the type of its innermost cause. Provider errors
// often echo request bodies or credentials in their messages.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return fmt.Errorf("%T", root)
}

func redacted(key string) bool {
	key = strings.ToLower(key)
	for _, fragment := range redactedFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

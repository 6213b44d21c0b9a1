package metrics

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Config labels every instrument with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

func (c Config) service() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return "stag-herd"
}

func (c Config) environment() string {
	if env := strings.TrimSpace(c.Environment); env != "" {
		return env
	}
	return "unknown"
}

// highCardinalityKeys never become metric attributes.
var highCardinalityKeys = map[string]struct{}{
	"request_id": {},
	"payment_id": {},
	"method_id":  {},
	"event_id":   {},
	"order_id":   {},
	"client_ip":  {},
}

// FilterAttributes drops empty and high-cardinality attributes.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(string(attr.Key))
		if key == "" {
			continue
		}
		if _, skip := highCardinalityKeys[key]; skip {
			continue
		}
		if attr.Value.Type() == attribute.STRING && strings.TrimSpace(attr.Value.AsString()) == "" {
			continue
		}
		out = append(out, attr)
	}
	return out
}

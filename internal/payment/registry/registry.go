package registry

import (
	"fmt"
	"sort"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

// Registry maps method codes to handlers. It is filled at startup and only
// read afterwards.
type Registry struct {
	entries map[domain.Method]domain.Descriptor
}

func New() *Registry {
	return &Registry{entries: make(map[domain.Method]domain.Descriptor)}
}

// Register adds a method. Registering the same code twice is a configuration
// error.
func (r *Registry) Register(desc domain.Descriptor) error {
	if desc.Method == "" || desc.Handler == nil {
		return fmt.Errorf("%w: method %q has no handler", domain.ErrInvalidConfig, desc.Method)
	}
	if _, exists := r.entries[desc.Method]; exists {
		return fmt.Errorf("%w: method %q registered twice", domain.ErrInvalidConfig, desc.Method)
	}
	if desc.Description == "" {
		desc.Description = string(desc.Method)
	}
	r.entries[desc.Method] = desc
	return nil
}

// Resolve returns the handler for an enabled method.
func (r *Registry) Resolve(method domain.Method) (domain.Handler, error) {
	desc, ok := r.entries[method]
	if !ok || !desc.Enabled {
		return nil, domain.ErrInvalidPaymentMethod
	}
	return desc.Handler, nil
}

// Webhook returns the notification-capable handler for a method. Disabled
// methods still accept notifications for payments created while enabled.
func (r *Registry) Webhook(method domain.Method) (domain.WebhookHandler, error) {
	desc, ok := r.entries[method]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	webhook, ok := desc.Handler.(domain.WebhookHandler)
	if !ok {
		return nil, domain.ErrHandlerNotCompatible
	}
	return webhook, nil
}

func (r *Registry) Lookup(method domain.Method) (domain.Descriptor, bool) {
	desc, ok := r.entries[method]
	return desc, ok
}

// Descriptors lists every registered method ordered by code.
func (r *Registry) Descriptors() []domain.Descriptor {
	out := make([]domain.Descriptor, 0, len(r.entries))
	for _, desc := range r.entries {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

var _ domain.Registry = (*Registry)(nil)

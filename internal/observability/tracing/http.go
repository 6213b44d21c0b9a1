package tracing

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WrapHTTPClient returns a copy of client whose requests open a client span
// tagged with peer, the provider the client talks to.
func WrapHTTPClient(client *http.Client, peer string) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	clone := *client
	base := clone.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	clone.Transport = &transport{
		base:   base,
		peer:   strings.ToLower(strings.TrimSpace(peer)),
		tracer: otel.Tracer("stag-herd/provider"),
	}
	return &clone
}

type transport struct {
	base   http.RoundTripper
	peer   string
	tracer trace.Tracer
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "HTTP "+req.Method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	// A RoundTripper must not mutate the caller's request.
	req = req.Clone(ctx)
	injectHeaders(ctx, req.Header)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	span.SetAttributes(SafeAttributes(
		attribute.String("peer.service", t.peer),
		attribute.String("http.method", req.Method),
		attribute.String("http.host", req.URL.Host),
		attribute.Int64("http.client_duration_ms", time.Since(start).Milliseconds()),
	)...)
	if err != nil {
		span.RecordError(SafeError(err))
		span.SetStatus(codes.Error, "transport error")
		return resp, err
	}

	span.SetName("HTTP " + req.Method + " " + req.URL.Path)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "provider error")
	}
	return resp, nil
}

package metrics

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	obsctx "github.com/EquidnaMX/stag-herd/internal/observability/context"
)

// HTTPMetrics holds the OTel server instruments recorded per request.
type HTTPMetrics struct {
	duration    metric.Float64Histogram
	active      metric.Int64UpDownCounter
	requestSize metric.Int64Histogram
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	meter := provider.Meter(cfg.service() + "/http")

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time to answer an inbound request."))
	if err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Requests currently being served."))
	if err != nil {
		return nil, fmt.Errorf("active counter: %w", err)
	}
	requestSize, err := meter.Int64Histogram("http.server.request.body.size",
		metric.WithUnit("By"),
		metric.WithDescription("Declared size of inbound request bodies."))
	if err != nil {
		return nil, fmt.Errorf("body size histogram: %w", err)
	}

	return &HTTPMetrics{duration: duration, active: active, requestSize: requestSize}, nil
}

// GinMiddleware records per-route latency, concurrency and body size. Webhook
// routes carry the provider set by the handler.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx := c.Request.Context()
		routeAttr := metric.WithAttributes(attribute.String("http.route", route))

		m.active.Add(ctx, 1, routeAttr)
		started := time.Now()
		c.Next()
		m.active.Add(ctx, -1, routeAttr)

		attrs := FilterAttributes(
			attribute.String("http.route", route),
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.response.status_class", statusClass(c.Writer.Status())),
			attribute.String("provider", obsctx.ProviderFromContext(c.Request.Context())),
		)
		m.duration.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(attrs...))
		if c.Request.ContentLength > 0 {
			m.requestSize.Record(ctx, c.Request.ContentLength, metric.WithAttributes(attrs...))
		}
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", status/100)
}

package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/EquidnaMX/stag-herd/internal/auditcontext"
	obsctx "github.com/EquidnaMX/stag-herd/internal/observability/context"
)

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got == "" {
		t.Fatalf("expected X-Request-Id header to be set")
	}
}

func TestGinMiddlewarePropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{Logger: zap.New(core), SkipPaths: []string{"/healthz"}}))
	var seen, auditSeen string
	r.POST("/stag-herd/stripe", func(c *gin.Context) {
		seen = obsctx.RequestIDFromGin(c)
		auditSeen = auditcontext.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusUnauthorized)
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/stag-herd/stripe", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	req.Header.Set("Stripe-Signature", "t=1,v1=abcdef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Header().Get(HeaderRequestID) != "req-123" || seen != "req-123" || auditSeen != "req-123" {
		t.Fatalf("request id not propagated: header=%q gin=%q audit=%q", w.Header().Get(HeaderRequestID), seen, auditSeen)
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one access line, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 401, got %s", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-123" {
		t.Fatalf("expected request_id field, got %v", fields["request_id"])
	}
	request, ok := fields["request"].(map[string]any)
	if !ok {
		t.Fatalf("expected request fields, got %T", fields["request"])
	}
	headers, ok := request["headers"].(map[string]string)
	if !ok || headers["Stripe-Signature"] != "****cdef" {
		t.Fatalf("signature header not masked: %v", request["headers"])
	}
}

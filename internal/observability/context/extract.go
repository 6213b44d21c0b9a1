package context

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RequestIDFromGin prefers the request context and falls back to the gin key
// set by the logging middleware.
func RequestIDFromGin(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	if value := RequestIDFromContext(c.Request.Context()); value != "" {
		return value
	}
	return strings.TrimSpace(c.GetString("request_id"))
}

// ProviderFromGin returns the provider of a webhook route, from the request
// context or the gin key set by the route.
func ProviderFromGin(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	if value := ProviderFromContext(c.Request.Context()); value != "" {
		return value
	}
	return strings.TrimSpace(c.GetString("provider"))
}

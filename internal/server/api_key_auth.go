package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/EquidnaMX/stag-herd/internal/audit/domain"
	"github.com/EquidnaMX/stag-herd/internal/auditcontext"
)

const contextAPIKeyIDKey = "api_key_id"

// HashAPIKey returns the digest stored in configuration for a bearer key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// APIKeyRequired authenticates host application calls with a bearer key whose
// digest is listed in http.api_keys.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := HashAPIKey(parts[1])
		matched := ""
		for _, candidate := range s.apiKeys {
			if subtle.ConstantTimeCompare([]byte(candidate), []byte(hash)) == 1 {
				matched = candidate
			}
		}
		if matched == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		// The digest prefix identifies the key in audit entries without exposing it.
		keyID := matched[:12]
		c.Set(contextAPIKeyIDKey, keyID)
		ctx := auditcontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeClient), keyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func normalizeAPIKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		key = strings.ToLower(strings.TrimSpace(key))
		if len(key) != sha256.Size*2 {
			continue
		}
		out = append(out, key)
	}
	return out
}

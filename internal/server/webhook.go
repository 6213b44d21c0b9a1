package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	obsctx "github.com/EquidnaMX/stag-herd/internal/observability/context"
	"github.com/EquidnaMX/stag-herd/internal/observability/logger"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

// maxWebhookBody caps what a provider may post in one delivery.
const maxWebhookBody = 1 << 20

// HandleWebhook returns the endpoint for one provider path segment.
func (s *Server) HandleWebhook(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("provider", provider)
		ctx := obsctx.WithProvider(c.Request.Context(), provider)
		c.Request = c.Request.WithContext(ctx)

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
		if err != nil {
			logger.FromContext(ctx).Warn("read webhook body", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload: unreadable body"})
			return
		}
		if len(body) > maxWebhookBody {
			logger.FromContext(ctx).Warn("webhook body too large", zap.Int("limit", maxWebhookBody))
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Payload too large"})
			return
		}

		result := s.pipeline.Handle(ctx, provider, domain.WebhookRequest{
			Body:     body,
			Headers:  c.Request.Header.Clone(),
			Query:    c.Request.URL.Query(),
			RemoteIP: c.ClientIP(),
		})
		c.JSON(result.Status, gin.H{"message": result.Message})
	}
}

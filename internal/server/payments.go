package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

type createPaymentRequest struct {
	Method          string         `json:"method"`
	Amount          string         `json:"amount"`
	PaymentMethodID string         `json:"payment_method_id"`
	Extra           map[string]any `json:"extra"`
	Order           *orderRequest  `json:"order"`
}

type orderRequest struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id"`
	ClientName  string `json:"client_name"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

type paymentResponse struct {
	ID           string     `json:"id"`
	OrderID      string     `json:"order_id,omitempty"`
	ClientID     string     `json:"client_id,omitempty"`
	Method       string     `json:"method"`
	MethodID     string     `json:"method_id,omitempty"`
	Amount       string     `json:"amount"`
	Link         string     `json:"link,omitempty"`
	Email        string     `json:"email,omitempty"`
	Status       string     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	ExecutedAt   *time.Time `json:"executed_at,omitempty"`
}

func newPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:           p.ID.String(),
		OrderID:      p.OrderRef(),
		ClientID:     p.ClientID,
		Method:       string(p.Method),
		MethodID:     p.ProviderMethodID(),
		Amount:       p.Amount.StringFixed(2),
		Link:         p.LinkValue(),
		Email:        p.Email,
		Status:       string(p.Status),
		RegisteredAt: p.RegisteredAt,
		ExecutedAt:   p.ExecutedAt,
	}
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	method := strings.TrimSpace(req.Method)
	if method == "" {
		AbortWithError(c, newValidationError("method", "required", "method is required"))
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a decimal string"))
		return
	}
	if req.Order == nil || strings.TrimSpace(req.Order.ID) == "" {
		AbortWithError(c, newValidationError("order.id", "required", "order.id is required"))
		return
	}

	payment, err := s.manager.Request(c.Request.Context(), domain.PaymentRequest{
		Amount: amount,
		Method: domain.ParseMethod(method),
		Order: &domain.Order{
			ID:          strings.TrimSpace(req.Order.ID),
			ClientID:    strings.TrimSpace(req.Order.ClientID),
			ClientName:  strings.TrimSpace(req.Order.ClientName),
			Email:       strings.TrimSpace(req.Order.Email),
			Description: strings.TrimSpace(req.Order.Description),
		},
		MethodData: domain.MethodData{
			PaymentMethodID: strings.TrimSpace(req.PaymentMethodID),
			Extra:           req.Extra,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newPaymentResponse(payment)})
}

func (s *Server) GetPayment(c *gin.Context) {
	payment, ok := s.loadPayment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newPaymentResponse(payment)})
}

func (s *Server) CancelPayment(c *gin.Context) {
	payment, ok := s.loadPayment(c)
	if !ok {
		return
	}

	canceled, err := s.manager.Cancel(c.Request.Context(), payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newPaymentResponse(canceled)})
}

func (s *Server) GetPaymentFee(c *gin.Context) {
	payment, ok := s.loadPayment(c)
	if !ok {
		return
	}

	fee, err := s.manager.Fee(payment)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":     payment.ID.String(),
		"method": string(payment.Method),
		"amount": payment.Amount.StringFixed(2),
		"fee":    fee.StringFixed(2),
	}})
}

func (s *Server) loadPayment(c *gin.Context) (*domain.Payment, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid payment id"))
		return nil, false
	}

	payment, err := s.manager.FromID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return payment, true
}

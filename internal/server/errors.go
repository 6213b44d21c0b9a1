package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/EquidnaMX/stag-herd/internal/observability/logger"
	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

// ErrorResponse is the body of every non-webhook error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type validationError struct {
	field   string
	code    string
	message string
}

func (e *validationError) Error() string { return e.message }

func newValidationError(field, code, message string) error {
	return &validationError{field: field, code: code, message: message}
}

func invalidRequestError() error {
	return newValidationError("", "invalid_request", "invalid request")
}

// AbortWithError writes the error response mapped from err and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	status, detail := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: detail})
}

func mapError(err error) (int, ErrorDetail) {
	var validation *validationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, ErrorDetail{
			Type:    "invalid_request_error",
			Code:    validation.code,
			Field:   validation.field,
			Message: validation.message,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, ErrorDetail{Type: "authentication_error", Message: "unauthorized"}
	case errors.Is(err, domain.ErrInvalidPaymentMethod),
		errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, ErrorDetail{Type: "invalid_request_error", Code: err.Error(), Message: err.Error()}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrProviderNotFound):
		return http.StatusNotFound, ErrorDetail{Type: "not_found", Message: "resource not found"}
	case errors.Is(err, domain.ErrDuplicatePaymentMethodID),
		errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, ErrorDetail{Type: "conflict", Code: err.Error(), Message: err.Error()}
	case errors.Is(err, domain.ErrPaymentDeclined):
		message := domain.DeclineReason(err)
		if message == "" {
			message = "payment declined"
		}
		return http.StatusUnprocessableEntity, ErrorDetail{Type: "payment_error", Code: domain.ErrPaymentDeclined.Error(), Message: message}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, ErrorDetail{Type: "rate_limit_error", Message: "Too many requests"}
	default:
		return http.StatusInternalServerError, ErrorDetail{Type: "api_error", Message: "internal error"}
	}
}

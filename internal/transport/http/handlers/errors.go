package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/infra/logger"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse builds an error payload carrying the request correlation id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(logger.RequestIDKey{}).(string); ok {
		return val
	}
	return ""
}

// ErrorCase maps a sentinel error to an HTTP status and client message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError walks the cases in order and writes the first match.
// Unmatched errors are logged and collapsed to a generic 500 so internals
// never leak to clients.
func RespondWithMappedError(c *gin.Context, log *zap.Logger, err error, cases ...ErrorCase) {
	for _, ec := range cases {
		if errors.Is(err, ec.Err) {
			c.JSON(ec.Status, NewErrorResponse(c, ec.Message))
			return
		}
	}

	if log != nil {
		log.Error("unhandled request error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
}

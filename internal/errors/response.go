package errors

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/multitenant-task-api/internal/logger"
	"go.uber.org/zap"
)

// errorEnvelope is the failure half of the response envelope.
type errorEnvelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Details interface{}         `json:"details,omitempty"`
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, err *APIError) {
	c.AbortWithStatusJSON(err.Status(), errorEnvelope{
		Success: false,
		Message: err.Message,
		Code:    err.Code,
		Errors:  err.Fields,
		Details: err.Details,
	})
}

// Respond classifies err and writes it. Unclassified and unexpected errors are
// logged in full and reported to the client with a generic message.
func Respond(c *gin.Context, err error) {
	apiErr, ok := As(err)
	if !ok {
		apiErr = Unexpected(err)
	}

	if apiErr.Kind == KindUnexpected {
		logger.FromContext(c).Error("unexpected error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	RespondWithError(c, apiErr)
}

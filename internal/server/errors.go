package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/jadiazinf/condominio-core/internal/apperr"
	"github.com/jadiazinf/condominio-core/internal/observability/logger"
	"go.uber.org/zap"
)

// ErrNotFound is the generic 404 for routes that must not leak existence.
var ErrNotFound = apperr.NotFound("Not found")

type validationError struct {
	Field   string
	Code    string
	Message string
}

func (e *validationError) Error() string { return e.Message }

func newValidationError(field, code, message string) error {
	return &validationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request body")
}

// AbortWithError translates kinded errors into HTTP status codes and a
// stable error body. Unknown errors become 500 without leaking details.
func AbortWithError(c *gin.Context, err error) {
	if verr, ok := err.(*validationError); ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"message": verr.Message,
				"field":   verr.Field,
				"code":    verr.Code,
			},
		})
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
		message = err.Error()
	case apperr.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	default:
		logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message},
	})
}

// actorID reads the authenticated actor from the X-Actor-Id header set by
// the upstream gateway. Zero means system.
func actorID(c *gin.Context) snowflake.ID {
	raw := strings.TrimSpace(c.GetHeader("X-Actor-Id"))
	if raw == "" {
		return 0
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0
	}
	return id
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"visitor-system-backend/internal/apperr"
	"visitor-system-backend/internal/ctxutil"
)

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrAttachmentLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"detail": ...}. Server-side failures are logged
// and their details withheld from the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", ctxutil.RequestIDFromCtx(c.Request.Context())),
			zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"detail": "internal server error"})
		return
	}

	body := gin.H{"detail": err.Error()}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body["detail"] = ve.Field + ": " + ve.Message
		body["field"] = ve.Field
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, body)
}

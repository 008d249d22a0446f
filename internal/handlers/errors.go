package handlers

import (
	"errors"
	"net/http"

	"project-management-api/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps a service failure to its status code. Anything that is not
// a services.Error is logged and reported as a 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrValidation):
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrPermission):
			status = http.StatusForbidden
		case errors.Is(err, services.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrConflict):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": svcErr.Message})
		return
	}

	_ = c.Error(err)
	h.log.Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// rejectInput answers a request that could not be parsed. A failed access
// check wins, so callers without rights see 403/404 rather than 400.
func (h *Handler) rejectInput(c *gin.Context, access error, msg string) {
	if access != nil {
		h.writeError(c, access)
		return
	}
	badRequest(c, msg)
}

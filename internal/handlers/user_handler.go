package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAllUsers returns all users (protected)
// GET /api/users
func (h *Handler) GetAllUsers(c *gin.Context) {
	all, err := h.users.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Map to safe response payload
	resp := make([]UserResponse, 0, len(all))
	for _, u := range all {
		resp = append(resp, toUser(u))
	}

	c.JSON(http.StatusOK, gin.H{
		"users": resp,
		"count": len(resp),
	})
}

// Package handlers exposes the project and task services over HTTP.
package handlers

import (
	"net/http"

	"project-management-api/internal/realtime"
	"project-management-api/internal/services"
	"project-management-api/internal/users"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler holds the dependencies shared by every endpoint.
type Handler struct {
	projects *services.ProjectService
	tasks    *services.TaskService
	users    *users.Directory
	hub      *realtime.Hub
	log      *zap.Logger
}

func New(projects *services.ProjectService, tasks *services.TaskService, dir *users.Directory, hub *realtime.Hub, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		projects: projects,
		tasks:    tasks,
		users:    dir,
		hub:      hub,
		log:      log,
	}
}

// currentUser returns the authenticated user id, writing a 401 when absent.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in token",
		})
		return "", false
	}
	return userID, true
}

package routes

import (
	"net/http"
	"slices"
	"time"

	"project-management-api/internal/handlers"
	"project-management-api/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "Cache-Control"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// SetupRoutes builds the router. Everything under /api except register and
// login requires a bearer token checked by auth.
func SetupRoutes(h *handlers.Handler, auth gin.HandlerFunc, corsOrigins []string, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery(), middleware.RequestLogger(log))
	ginRouter.Use(cors.New(corsConfig(corsOrigins)))

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Project Management API is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(auth)
	{
		protectedRoutes.GET("/users", h.GetAllUsers)

		// Project endpoints
		protectedRoutes.GET("/projects", h.ListProjects)
		protectedRoutes.POST("/projects", h.CreateProject)
		protectedRoutes.GET("/projects/:id", h.GetProject)
		protectedRoutes.PATCH("/projects/:id", h.UpdateProject)
		protectedRoutes.DELETE("/projects/:id", h.DeleteProject)
		protectedRoutes.POST("/projects/:id/transfer_ownership", h.TransferOwnership)
		protectedRoutes.GET("/projects/:id/members", h.ProjectMembers)
		protectedRoutes.GET("/projects/:id/stats", h.ProjectStats)

		// Task endpoints
		protectedRoutes.GET("/tasks", h.GetTasks)
		protectedRoutes.POST("/tasks", h.CreateTask)
		protectedRoutes.GET("/tasks/:id", h.GetTaskByID)
		protectedRoutes.PATCH("/tasks/:id", h.UpdateTask)
		protectedRoutes.DELETE("/tasks/:id", h.DeleteTask)

		// Realtime event stream
		protectedRoutes.GET("/ws", h.WebSocketHandler)
	}

	return ginRouter
}

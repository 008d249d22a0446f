package handlers

import (
	"errors"
	"net/http"
	"strings"

	"project-management-api/internal/auth"
	"project-management-api/internal/users"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginRequest represents the login and register request payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Register creates an account
// POST /api/register
func (h *Handler) Register(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Username and password are required.")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		badRequest(c, "Username cannot be blank")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		badRequest(c, "Password must be at most 72 bytes")
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	user, err := h.users.Create(c.Request.Context(), username, hash)
	if err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		h.writeError(c, err)
		return
	}

	h.log.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, toUser(user))
}

// Login checks the credentials and issues a token
// POST /api/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request. Username and password are required.")
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		h.writeError(c, err)
		return
	}
	if err != nil || auth.CheckPassword(user.Password, req.Password) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Message:  "Login successful",
	})
}

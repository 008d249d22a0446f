package handlers

import (
	"errors"
	"io"
	"net/http"

	"project-management-api/internal/models"
	"project-management-api/internal/services"

	"github.com/gin-gonic/gin"
)

// MemberRequest names a user and the role they get in a project.
type MemberRequest struct {
	ID   string      `json:"id"`
	Role models.Role `json:"role"`
}

type CreateProjectRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Members     []MemberRequest `json:"members"`
}

// UpdateProjectRequest is a partial update. A present members list replaces
// every membership except the owner's.
type UpdateProjectRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Members     *[]MemberRequest `json:"members"`
}

type TransferOwnershipRequest struct {
	NewOwnerID string `json:"new_owner_id"`
	NewOwner   string `json:"new_owner"`
}

func toMemberSpecs(reqs []MemberRequest) []services.MemberSpec {
	specs := make([]services.MemberSpec, 0, len(reqs))
	for _, m := range reqs {
		specs = append(specs, services.MemberSpec{UserID: m.ID, Role: m.Role})
	}
	return specs
}

// ListProjects handles GET /api/projects
func (h *Handler) ListProjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	projects, err := h.projects.List(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		resp = append(resp, toProject(&projects[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"projects": resp,
		"count":    len(resp),
	})
}

// GetProject handles GET /api/projects/:id
func (h *Handler) GetProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProject(project))
}

// CreateProject handles POST /api/projects
func (h *Handler) CreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	project, err := h.projects.Create(c.Request.Context(), userID, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Members:     toMemberSpecs(req.Members),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toProject(project))
}

// UpdateProject handles PATCH /api/projects/:id
func (h *Handler) UpdateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectInput(c, h.projects.CheckOwner(c.Request.Context(), userID, c.Param("id")), err.Error())
		return
	}
	in := services.UpdateProjectInput{Name: req.Name, Description: req.Description}
	if req.Members != nil {
		specs := toMemberSpecs(*req.Members)
		in.Members = &specs
	}
	project, err := h.projects.Update(c.Request.Context(), userID, c.Param("id"), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProject(project))
}

// DeleteProject handles DELETE /api/projects/:id
func (h *Handler) DeleteProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TransferOwnership handles POST /api/projects/:id/transfer_ownership
func (h *Handler) TransferOwnership(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	// an empty body names no new owner; the service rejects that after its
	// permission check
	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.rejectInput(c, h.projects.CheckOwner(c.Request.Context(), userID, c.Param("id")), err.Error())
		return
	}
	newOwner := req.NewOwnerID
	if newOwner == "" {
		newOwner = req.NewOwner
	}
	project, err := h.projects.TransferOwnership(c.Request.Context(), userID, c.Param("id"), newOwner)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProject(project))
}

// ProjectMembers handles GET /api/projects/:id/members
func (h *Handler) ProjectMembers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	members, err := h.projects.Members(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"members": toMembers(members),
		"count":   len(members),
	})
}

// ProjectStats handles GET /api/projects/:id/stats
func (h *Handler) ProjectStats(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	stats, err := h.tasks.Stats(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

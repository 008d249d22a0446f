package handlers

import (
	"net/http"

	"project-management-api/internal/models"
	"project-management-api/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Project     string              `json:"project"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	Assignees   []string            `json:"assignees"`
	DueDate     string              `json:"due_date"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// An empty due_date clears it; a present assignees list replaces the set.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	Assignees   *[]string            `json:"assignees"`
	DueDate     *string              `json:"due_date"`
}

func toTasks(tasks []models.Task) []TaskResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, toTask(&tasks[i]))
	}
	return resp
}

// GetTasks handles GET /api/tasks
// Optional query params project_id, status, assignee and priority narrow the result.
func (h *Handler) GetTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	tasks, err := h.tasks.List(c.Request.Context(), userID, services.TaskFilter{
		ProjectID:  c.Query("project_id"),
		Status:     models.TaskStatus(c.Query("status")),
		Priority:   models.TaskPriority(c.Query("priority")),
		AssigneeID: c.Query("assignee"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": toTasks(tasks),
		"count": len(tasks),
	})
}

// GetTaskByID handles GET /api/tasks/:id
func (h *Handler) GetTaskByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTask(task))
}

// CreateTask handles POST /api/tasks
func (h *Handler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectInput(c, h.tasks.CheckCreate(c.Request.Context(), userID, req.Project), err.Error())
		return
	}

	in := services.CreateTaskInput{
		ProjectID:   req.Project,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeIDs: req.Assignees,
	}
	if req.DueDate != "" {
		due, ok := parseDateFlexible(req.DueDate)
		if !ok {
			h.rejectInput(c, h.tasks.CheckCreate(c.Request.Context(), userID, req.Project), "Invalid due_date, expected YYYY-MM-DD")
			return
		}
		in.DueDate = &due
	}

	task, err := h.tasks.Create(c.Request.Context(), userID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTask(task))
}

// UpdateTask handles PATCH /api/tasks/:id
func (h *Handler) UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	taskID := c.Param("id")
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectInput(c, h.tasks.CheckMutate(c.Request.Context(), userID, taskID), err.Error())
		return
	}

	in := services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeIDs: req.Assignees,
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			in.ClearDueDate = true
		} else {
			due, ok := parseDateFlexible(*req.DueDate)
			if !ok {
				h.rejectInput(c, h.tasks.CheckMutate(c.Request.Context(), userID, taskID), "Invalid due_date, expected YYYY-MM-DD")
				return
			}
			in.DueDate = &due
		}
	}

	task, err := h.tasks.Update(c.Request.Context(), userID, taskID, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTask(task))
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *Handler) DeleteTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

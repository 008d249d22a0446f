package handlers

import (
	"time"

	"project-management-api/internal/models"
)

const dateLayout = "2006-01-02"

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type MemberResponse struct {
	UserID   string      `json:"userId"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

type ProjectResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       UserResponse     `json:"owner"`
	Members     []MemberResponse `json:"members"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type TaskResponse struct {
	ID          string              `json:"id"`
	ProjectID   string              `json:"projectId"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	CreatedBy   *UserResponse       `json:"createdBy"`
	Assignees   []UserResponse      `json:"assignees"`
	DueDate     *string             `json:"dueDate"`
	CompletedAt *time.Time          `json:"completedAt"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func toUser(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username}
}

func toMember(m models.ProjectMember) MemberResponse {
	return MemberResponse{UserID: m.UserID, Username: m.User.Username, Role: m.Role}
}

func toMembers(ms []models.ProjectMember) []MemberResponse {
	out := make([]MemberResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMember(m))
	}
	return out
}

func toProject(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Owner:       toUser(p.Owner),
		Members:     toMembers(p.Members),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toTask(t *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Assignees:   make([]UserResponse, 0, len(t.Assignees)),
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.CreatedBy != nil {
		u := toUser(*t.CreatedBy)
		resp.CreatedBy = &u
	}
	for _, a := range t.Assignees {
		resp.Assignees = append(resp.Assignees, toUser(a.User))
	}
	if t.DueDate != nil {
		d := t.DueDate.Format(dateLayout)
		resp.DueDate = &d
	}
	return resp
}

// parseDateFlexible accepts the date formats clients commonly send.
func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		dateLayout,    // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		time.RFC3339,  // full RFC3339
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

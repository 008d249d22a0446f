// Package authz decides whether a user may act on a project or task.
//
// Decisions are derived from project ownership and membership rows only.
// A missing membership is a deny, never an error; errors are reserved for
// failing role lookups.
package authz

import (
	"context"

	"project-management-api/internal/models"
)

// RoleLookup resolves a user's role inside a project.
type RoleLookup interface {
	GetRole(ctx context.Context, projectID, userID string) (models.Role, bool, error)
}

// Engine evaluates access rules against a RoleLookup.
type Engine struct {
	roles RoleLookup
}

func NewEngine(roles RoleLookup) *Engine {
	return &Engine{roles: roles}
}

// CanReadProject allows the owner and any member, whatever their role.
func (e *Engine) CanReadProject(ctx context.Context, userID string, project *models.Project) (bool, error) {
	return e.isParticipant(ctx, userID, project)
}

// CanWriteProject allows only the owner to change or delete project metadata.
func (e *Engine) CanWriteProject(userID string, project *models.Project) bool {
	return isOwner(userID, project)
}

// CanCreateTask allows the owner and any member.
func (e *Engine) CanCreateTask(ctx context.Context, userID string, project *models.Project) (bool, error) {
	return e.isParticipant(ctx, userID, project)
}

// CanMutateTask allows the task's creator and the owner of its project.
// task.Project must be loaded.
func (e *Engine) CanMutateTask(userID string, task *models.Task) bool {
	if task == nil || userID == "" {
		return false
	}
	if task.CreatedByID != nil && *task.CreatedByID == userID {
		return true
	}
	return task.Project.OwnerID == userID
}

// CanTransferOwnership allows only the current owner.
func (e *Engine) CanTransferOwnership(userID string, project *models.Project) bool {
	return isOwner(userID, project)
}

func (e *Engine) isParticipant(ctx context.Context, userID string, project *models.Project) (bool, error) {
	if project == nil || userID == "" {
		return false, nil
	}
	if project.OwnerID == userID {
		return true, nil
	}
	_, ok, err := e.roles.GetRole(ctx, project.ID, userID)
	if err != nil {
		return false, err
	}
	return ok, nil
}

func isOwner(userID string, project *models.Project) bool {
	return project != nil && userID != "" && project.OwnerID == userID
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project-management-api/internal/models"

	"gorm.io/gorm"
)

// now is a small indirection to allow test stubbing.
var now = time.Now

func findUser(ctx context.Context, db *gorm.DB, id string) (*models.User, error) {
	var u models.User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("user %s not found", id)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func findProject(ctx context.Context, db *gorm.DB, id string) (*models.Project, error) {
	var p models.Project
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("project not found")
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &p, nil
}

func findTask(ctx context.Context, db *gorm.DB, id string) (*models.Task, error) {
	var t models.Task
	if err := db.WithContext(ctx).Preload("Project").Where("id = ?", id).Take(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("task not found")
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return &t, nil
}

// participants returns the owner and every member of the project.
func participants(ctx context.Context, db *gorm.DB, project *models.Project) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(&models.ProjectMember{}).
		Where("project_id = ?", project.ID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return append(ids, project.OwnerID), nil
}

// visibleProjects restricts a query on projects to those the user owns or belongs to.
func visibleProjects(userID string) (string, []any) {
	return "projects.owner_id = ? OR EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = projects.id AND pm.user_id = ?)",
		[]any{userID, userID}
}

// Package membership persists the (project, user) -> role mapping.
package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"project-management-api/internal/database"
	"project-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicate is returned when a user already holds a role in the project.
var ErrDuplicate = errors.New("user is already a member of this project")

// Store reads and writes project_members rows.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a copy of the store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// GetRole returns the user's role in the project. A missing row is not an error.
func (s *Store) GetRole(ctx context.Context, projectID, userID string) (models.Role, bool, error) {
	var m models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get role: %w", err)
	}
	return m.Role, true, nil
}

// AddMember inserts a new membership row. It does not overwrite an existing one.
func (s *Store) AddMember(ctx context.Context, projectID, userID string, role models.Role) error {
	m := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// SetRole inserts the membership or updates the role of the existing row.
// Callers setting RoleOwner are responsible for demoting the previous owner.
func (s *Store) SetRole(ctx context.Context, projectID, userID string, role models.Role) error {
	m := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// RemoveMembersExcept deletes every membership of the project whose user is not
// in keepUserIDs and whose role is not protected. With no protected roles given,
// owner rows are protected.
func (s *Store) RemoveMembersExcept(ctx context.Context, projectID string, keepUserIDs []string, protected ...models.Role) (int64, error) {
	if len(protected) == 0 {
		protected = []models.Role{models.RoleOwner}
	}
	q := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("role NOT IN ?", protected)
	// NOT IN with an empty list would match nothing in SQL.
	if len(keepUserIDs) > 0 {
		q = q.Where("user_id NOT IN ?", keepUserIDs)
	}
	res := q.Delete(&models.ProjectMember{})
	if res.Error != nil {
		return 0, fmt.Errorf("remove members: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ListMembers returns the project's members with their users loaded, owner
// first, then managers, then members, each group sorted by username.
func (s *Store) ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	sort.SliceStable(members, func(i, j int) bool {
		ri, rj := roleRank[members[i].Role], roleRank[members[j].Role]
		if ri != rj {
			return ri < rj
		}
		return members[i].User.Username < members[j].User.Username
	})
	return members, nil
}

var roleRank = map[models.Role]int{
	models.RoleOwner:   0,
	models.RoleManager: 1,
	models.RoleMember:  2,
}

// DeleteProject removes every membership of the project.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return fmt.Errorf("delete project members: %w", err)
	}
	return nil
}

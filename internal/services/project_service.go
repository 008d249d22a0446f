package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"project-management-api/internal/authz"
	"project-management-api/internal/membership"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberSpec names a user to add to a project and the role to give them.
// An empty role means member.
type MemberSpec struct {
	UserID string
	Role   models.Role
}

type CreateProjectInput struct {
	Name        string
	Description string
	Members     []MemberSpec
}

// UpdateProjectInput carries a partial update. Nil fields are left unchanged;
// a non-nil Members replaces every non-owner membership.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Members     *[]MemberSpec
}

// ProjectService creates, updates, deletes projects and transfers their ownership.
type ProjectService struct {
	db      *gorm.DB
	members *membership.Store
	log     *zap.Logger
	notify  Notifier
}

func NewProjectService(db *gorm.DB, log *zap.Logger, notify Notifier) *ProjectService {
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &ProjectService{
		db:      db,
		members: membership.NewStore(db),
		log:     log,
		notify:  notify,
	}
}

// Create stores a project owned by actorID, with actorID as its owner member
// and the listed users as managers or members.
func (s *ProjectService) Create(ctx context.Context, actorID string, in CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationf("name is required")
	}
	specs, err := normalizeMemberSpecs(in.Members, actorID)
	if err != nil {
		return nil, err
	}

	project := models.Project{Name: name, Description: in.Description, OwnerID: actorID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&project).Error; err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		members := s.members.WithTx(tx)
		if err := members.AddMember(ctx, project.ID, actorID, models.RoleOwner); err != nil {
			return memberErr(err)
		}
		for _, spec := range specs {
			if _, err := findUser(ctx, tx, spec.UserID); err != nil {
				return err
			}
			if err := members.AddMember(ctx, project.ID, spec.UserID, spec.Role); err != nil {
				return memberErr(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("owner_id", actorID),
		zap.Int("members", len(specs)))
	s.publish(ctx, &project, realtime.EventProjectCreated, actorID)
	return s.load(ctx, project.ID)
}

// Update applies attribute changes and, when given, replaces the member list.
// The owner row is never removed by the replacement.
func (s *ProjectService) Update(ctx context.Context, actorID, projectID string, in UpdateProjectInput) (*models.Project, error) {
	var recipients []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		members := s.members.WithTx(tx)
		if !authz.NewEngine(members).CanWriteProject(actorID, project) {
			return permissionf("only the project owner can modify this project")
		}
		// members removed below still hear about the change
		before, err := participants(ctx, tx, project)
		if err != nil {
			return err
		}

		updates := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return validationf("name cannot be blank")
			}
			updates["name"] = name
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if len(updates) > 0 {
			if err := tx.Model(project).Updates(updates).Error; err != nil {
				return fmt.Errorf("update project: %w", err)
			}
		}

		if in.Members != nil {
			specs, err := normalizeMemberSpecs(*in.Members, project.OwnerID)
			if err != nil {
				return err
			}
			keep := make([]string, 0, len(specs))
			for _, spec := range specs {
				if _, err := findUser(ctx, tx, spec.UserID); err != nil {
					return err
				}
				if err := members.SetRole(ctx, project.ID, spec.UserID, spec.Role); err != nil {
					return err
				}
				keep = append(keep, spec.UserID)
			}
			removed, err := members.RemoveMembersExcept(ctx, project.ID, keep, models.RoleOwner)
			if err != nil {
				return err
			}
			s.log.Debug("project members replaced",
				zap.String("project_id", project.ID),
				zap.Int("kept", len(keep)),
				zap.Int64("removed", removed))
		}

		after, err := participants(ctx, tx, project)
		recipients = append(after, before...)
		return err
	})
	if err != nil {
		return nil, err
	}

	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.log.Info("project updated", zap.String("project_id", projectID), zap.String("actor_id", actorID))
	s.notify.Publish(recipients, realtime.Event{Type: realtime.EventProjectUpdated, ProjectID: projectID, ActorID: actorID})
	return project, nil
}

// Delete removes the project together with its members and tasks.
func (s *ProjectService) Delete(ctx context.Context, actorID, projectID string) error {
	var recipients []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		members := s.members.WithTx(tx)
		if !authz.NewEngine(members).CanWriteProject(actorID, project) {
			return permissionf("only the project owner can delete this project")
		}
		if recipients, err = participants(ctx, tx, project); err != nil {
			return err
		}

		tasks := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", project.ID)
		if err := tx.Where("task_id IN (?)", tasks).Delete(&models.TaskAssignee{}).Error; err != nil {
			return fmt.Errorf("delete task assignees: %w", err)
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := members.DeleteProject(ctx, project.ID); err != nil {
			return err
		}
		if err := tx.Delete(project).Error; err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("project deleted", zap.String("project_id", projectID), zap.String("actor_id", actorID))
	s.notify.Publish(recipients, realtime.Event{Type: realtime.EventProjectDeleted, ProjectID: projectID, ActorID: actorID})
	return nil
}

// TransferOwnership hands the project to an existing member. The project's
// owner and both membership roles change in one transaction.
func (s *ProjectService) TransferOwnership(ctx context.Context, actorID, projectID, newOwnerID string) (*models.Project, error) {
	var formerOwnerID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		members := s.members.WithTx(tx)
		if !authz.NewEngine(members).CanTransferOwnership(actorID, project) {
			return permissionf("only the owner can transfer ownership")
		}

		newOwnerID = strings.TrimSpace(newOwnerID)
		if newOwnerID == "" {
			return validationf("new_owner_id is required")
		}
		newOwner, err := findUser(ctx, tx, newOwnerID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return notFoundf("user not found")
			}
			return err
		}
		if _, ok, err := members.GetRole(ctx, project.ID, newOwner.ID); err != nil {
			return err
		} else if !ok {
			return validationf("user must be a member of the project to become owner")
		}

		formerOwnerID = project.OwnerID
		if newOwner.ID == formerOwnerID {
			return nil
		}
		if err := tx.Model(project).Update("owner_id", newOwner.ID).Error; err != nil {
			return fmt.Errorf("update project owner: %w", err)
		}
		if err := members.SetRole(ctx, project.ID, formerOwnerID, models.RoleMember); err != nil {
			return err
		}
		return members.SetRole(ctx, project.ID, newOwner.ID, models.RoleOwner)
	})
	if err != nil {
		return nil, err
	}

	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if formerOwnerID != project.OwnerID {
		s.log.Info("project ownership transferred",
			zap.String("project_id", projectID),
			zap.String("from", formerOwnerID),
			zap.String("to", project.OwnerID))
		s.publish(ctx, project, realtime.EventOwnershipTransfer, actorID)
	}
	return project, nil
}

// CheckOwner returns nil when actorID may modify, delete or transfer the
// project. It fails with NotFoundError or PermissionError otherwise.
func (s *ProjectService) CheckOwner(ctx context.Context, actorID, projectID string) error {
	project, err := findProject(ctx, s.db, projectID)
	if err != nil {
		return err
	}
	if !authz.NewEngine(s.members).CanWriteProject(actorID, project) {
		return permissionf("only the project owner can modify this project")
	}
	return nil
}

// List returns the projects the user owns or is a member of, newest first.
func (s *ProjectService) List(ctx context.Context, actorID string) ([]models.Project, error) {
	query, args := visibleProjects(actorID)
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members.User").
		Where(query, args...).
		Order("projects.created_at DESC").
		Order("projects.id").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get returns a project the user can read. Unreadable projects are reported
// as not found.
func (s *ProjectService) Get(ctx context.Context, actorID, projectID string) (*models.Project, error) {
	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ok, err := authz.NewEngine(s.members).CanReadProject(ctx, actorID, project)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFoundf("project not found")
	}
	return project, nil
}

// Members lists the memberships of a project the user can read.
func (s *ProjectService) Members(ctx context.Context, actorID, projectID string) ([]models.ProjectMember, error) {
	if _, err := s.Get(ctx, actorID, projectID); err != nil {
		return nil, err
	}
	return s.members.ListMembers(ctx, projectID)
}

func (s *ProjectService) load(ctx context.Context, projectID string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("Members.User").
		Where("id = ?", projectID).
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("project not found")
		}
		return nil, fmt.Errorf("load project: %w", err)
	}
	return &p, nil
}

func (s *ProjectService) publish(ctx context.Context, project *models.Project, kind, actorID string) {
	recipients, err := participants(ctx, s.db, project)
	if err != nil {
		s.log.Warn("cannot resolve event recipients", zap.String("project_id", project.ID), zap.Error(err))
		return
	}
	s.notify.Publish(recipients, realtime.Event{Type: kind, ProjectID: project.ID, ActorID: actorID})
}

// normalizeMemberSpecs defaults and validates member specs. The owner and
// duplicate users are rejected: each would break the one-row-per-user rule or
// demote the owner.
func normalizeMemberSpecs(specs []MemberSpec, ownerID string) ([]MemberSpec, error) {
	out := make([]MemberSpec, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		id := strings.TrimSpace(spec.UserID)
		if id == "" {
			return nil, validationf("member id is required")
		}
		role := spec.Role
		if role == "" {
			role = models.RoleMember
		}
		if role != models.RoleMember && role != models.RoleManager {
			return nil, validationf("invalid member role %q: must be member or manager", spec.Role)
		}
		if id == ownerID {
			return nil, validationf("the project owner cannot be listed as a member")
		}
		if _, dup := seen[id]; dup {
			return nil, validationf("user %s is listed more than once", id)
		}
		seen[id] = struct{}{}
		out = append(out, MemberSpec{UserID: id, Role: role})
	}
	return out, nil
}

func memberErr(err error) error {
	if errors.Is(err, membership.ErrDuplicate) {
		return conflictf("%s", err.Error())
	}
	return err
}

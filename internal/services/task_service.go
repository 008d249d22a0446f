package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"project-management-api/internal/authz"
	"project-management-api/internal/membership"
	"project-management-api/internal/models"
	"project-management-api/internal/realtime"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateTaskInput struct {
	ProjectID   string
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	AssigneeIDs []string
	DueDate     *time.Time
}

// UpdateTaskInput carries a partial update; nil fields are left unchanged.
// A non-nil AssigneeIDs replaces the whole assignee set.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
	AssigneeIDs  *[]string
}

// TaskFilter narrows a task listing. Empty fields do not filter.
type TaskFilter struct {
	ProjectID  string
	Status     models.TaskStatus
	Priority   models.TaskPriority
	AssigneeID string
}

// TaskStats counts a project's tasks by status.
type TaskStats struct {
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"inProgress"`
	Done       int64 `json:"done"`
	Total      int64 `json:"total"`
}

// TaskService creates, updates, deletes and lists tasks.
type TaskService struct {
	db      *gorm.DB
	members *membership.Store
	log     *zap.Logger
	notify  Notifier
}

func NewTaskService(db *gorm.DB, log *zap.Logger, notify Notifier) *TaskService {
	if log == nil {
		log = zap.NewNop()
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	return &TaskService{
		db:      db,
		members: membership.NewStore(db),
		log:     log,
		notify:  notify,
	}
}

// Create adds a task to a project the actor owns or belongs to. Assignee ids
// that do not resolve to a user are dropped.
func (s *TaskService) Create(ctx context.Context, actorID string, in CreateTaskInput) (*models.Task, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, validationf("project is required")
	}

	var (
		task       models.Task
		recipients []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := findProject(ctx, tx, projectID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return validationf("invalid project %s", projectID)
			}
			return err
		}
		ok, err := authz.NewEngine(s.members.WithTx(tx)).CanCreateTask(ctx, actorID, project)
		if err != nil {
			return err
		}
		if !ok {
			return permissionf("must be a project member to create tasks")
		}

		title := strings.TrimSpace(in.Title)
		if title == "" {
			return validationf("title is required")
		}
		status := in.Status
		if status == "" {
			status = models.StatusTodo
		}
		if !status.Valid() {
			return validationf("invalid status %q", in.Status)
		}
		priority := in.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		if !priority.Valid() {
			return validationf("invalid priority %q", in.Priority)
		}

		creator := actorID
		task = models.Task{
			ProjectID:   project.ID,
			Title:       title,
			Description: in.Description,
			Status:      status,
			Priority:    priority,
			CreatedByID: &creator,
			DueDate:     in.DueDate,
		}
		if status == models.StatusDone {
			t := now()
			task.CompletedAt = &t
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		if err := replaceAssignees(ctx, tx, task.ID, in.AssigneeIDs); err != nil {
			return err
		}
		recipients, err = participants(ctx, tx, project)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("task created",
		zap.String("task_id", task.ID),
		zap.String("project_id", task.ProjectID),
		zap.String("actor_id", actorID))
	s.notify.Publish(recipients, realtime.Event{Type: realtime.EventTaskCreated, ProjectID: task.ProjectID, TaskID: task.ID, ActorID: actorID})
	return s.load(ctx, task.ID)
}

// Update changes a task. Only its creator and the project owner may do so.
func (s *TaskService) Update(ctx context.Context, actorID, taskID string, in UpdateTaskInput) (*models.Task, error) {
	var (
		projectID  string
		recipients []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !authz.NewEngine(s.members.WithTx(tx)).CanMutateTask(actorID, task) {
			return permissionf("only the task creator or the project owner can modify this task")
		}
		projectID = task.ProjectID

		updates := map[string]any{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return validationf("title cannot be blank")
			}
			updates["title"] = title
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Status != nil {
			if !in.Status.Valid() {
				return validationf("invalid status %q", *in.Status)
			}
			updates["status"] = *in.Status
			switch {
			case *in.Status == models.StatusDone && task.Status != models.StatusDone:
				updates["completed_at"] = now()
			case *in.Status != models.StatusDone:
				updates["completed_at"] = nil
			}
		}
		if in.Priority != nil {
			if !in.Priority.Valid() {
				return validationf("invalid priority %q", *in.Priority)
			}
			updates["priority"] = *in.Priority
		}
		if in.ClearDueDate {
			updates["due_date"] = nil
		} else if in.DueDate != nil {
			updates["due_date"] = *in.DueDate
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Task{ID: task.ID}).Updates(updates).Error; err != nil {
				return fmt.Errorf("update task: %w", err)
			}
		}
		if in.AssigneeIDs != nil {
			if err := replaceAssignees(ctx, tx, task.ID, *in.AssigneeIDs); err != nil {
				return err
			}
		}
		recipients, err = participants(ctx, tx, &task.Project)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("task updated", zap.String("task_id", taskID), zap.String("actor_id", actorID))
	s.notify.Publish(recipients, realtime.Event{Type: realtime.EventTaskUpdated, ProjectID: projectID, TaskID: taskID, ActorID: actorID})
	return s.load(ctx, taskID)
}

// CheckCreate returns nil when actorID may add tasks to the project. An
// unknown project is a ValidationError, as in Create.
func (s *TaskService) CheckCreate(ctx context.Context, actorID, projectID string) error {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return validationf("project is required")
	}
	project, err := findProject(ctx, s.db, projectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return validationf("invalid project %s", projectID)
		}
		return err
	}
	ok, err := authz.NewEngine(s.members).CanCreateTask(ctx, actorID, project)
	if err != nil {
		return err
	}
	if !ok {
		return permissionf("must be a project member to create tasks")
	}
	return nil
}

// CheckMutate returns nil when actorID may update or delete the task. It
// fails with NotFoundError or PermissionError otherwise.
func (s *TaskService) CheckMutate(ctx context.Context, actorID, taskID string) error {
	task, err := findTask(ctx, s.db, taskID)
	if err != nil {
		return err
	}
	if !authz.NewEngine(s.members).CanMutateTask(actorID, task) {
		return permissionf("only the task creator or the project owner can modify this task")
	}
	return nil
}

// Delete removes a task. Only its creator and the project owner may do so.
func (s *TaskService) Delete(ctx context.Context, actorID, taskID string) error {
	var (
		projectID  string
		recipients []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := findTask(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if !authz.NewEngine(s.members.WithTx(tx)).CanMutateTask(actorID, task) {
			return permissionf("only the task creator or the project owner can delete this task")
		}
		projectID = task.ProjectID
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskAssignee{}).Error; err != nil {
			return fmt.Errorf("delete task assignees: %w", err)
		}
		if err := tx.Delete(&models.Task{ID: task.ID}).Error; err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		recipients, err = participants(ctx, tx, &task.Project)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("task deleted", zap.String("task_id", taskID), zap.String("actor_id", actorID))
	s.notify.Publish(recipients, realtime.Event{Type: realtime.EventTaskDeleted, ProjectID: projectID, TaskID: taskID, ActorID: actorID})
	return nil
}

// List returns the tasks of every project the actor owns or belongs to,
// narrowed by each non-empty filter field. Newest first.
func (s *TaskService) List(ctx context.Context, actorID string, f TaskFilter) ([]models.Task, error) {
	visible, args := visibleProjects(actorID)
	q := s.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("EXISTS (SELECT 1 FROM projects WHERE projects.id = tasks.project_id AND ("+visible+"))", args...)
	if f.ProjectID != "" {
		q = q.Where("tasks.project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		q = q.Where("tasks.status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("tasks.priority = ?", f.Priority)
	}
	if f.AssigneeID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM task_assignees ta WHERE ta.task_id = tasks.id AND ta.user_id = ?)", f.AssigneeID)
	}

	var tasks []models.Task
	err := withTaskRelations(q).
		Order("tasks.created_at DESC").
		Order("tasks.id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Get returns a task whose project the actor can read.
func (s *TaskService) Get(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ok, err := authz.NewEngine(s.members).CanReadProject(ctx, actorID, &task.Project)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFoundf("task not found")
	}
	return task, nil
}

// Stats counts the tasks of a readable project by status.
func (s *TaskService) Stats(ctx context.Context, actorID, projectID string) (TaskStats, error) {
	project, err := findProject(ctx, s.db, projectID)
	if err != nil {
		return TaskStats{}, err
	}
	ok, err := authz.NewEngine(s.members).CanReadProject(ctx, actorID, project)
	if err != nil {
		return TaskStats{}, err
	}
	if !ok {
		return TaskStats{}, notFoundf("project not found")
	}

	type row struct {
		Status models.TaskStatus
		Count  int64
	}
	var rows []row
	err = s.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", project.ID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return TaskStats{}, fmt.Errorf("compute task stats: %w", err)
	}

	var stats TaskStats
	for _, r := range rows {
		switch r.Status {
		case models.StatusTodo:
			stats.Todo = r.Count
		case models.StatusInProgress:
			stats.InProgress = r.Count
		case models.StatusDone:
			stats.Done = r.Count
		}
		stats.Total += r.Count
	}
	return stats, nil
}

func (s *TaskService) load(ctx context.Context, taskID string) (*models.Task, error) {
	var t models.Task
	err := withTaskRelations(s.db.WithContext(ctx)).Where("tasks.id = ?", taskID).Take(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("task not found")
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	return &t, nil
}

func withTaskRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Project").
		Preload("CreatedBy").
		Preload("Assignees", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, user_id") }).
		Preload("Assignees.User")
}

// replaceAssignees sets the task's assignees to the users among ids that exist.
// Unknown and repeated ids are ignored.
func replaceAssignees(ctx context.Context, tx *gorm.DB, taskID string, ids []string) error {
	if err := tx.WithContext(ctx).Where("task_id = ?", taskID).Delete(&models.TaskAssignee{}).Error; err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}

	wanted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		wanted = append(wanted, id)
	}
	if len(wanted) == 0 {
		return nil
	}

	var found []string
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("id IN ?", wanted).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("resolve assignees: %w", err)
	}
	if len(found) == 0 {
		return nil
	}
	rows := make([]models.TaskAssignee, 0, len(found))
	for _, id := range found {
		rows = append(rows, models.TaskAssignee{TaskID: taskID, UserID: id})
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("assign users: %w", err)
	}
	return nil
}

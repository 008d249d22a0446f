package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task
type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task represents a task inside a project
type Task struct {
	ID          string         `gorm:"primaryKey"`
	ProjectID   string         `gorm:"not null;index"`
	Project     Project        `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Title       string         `gorm:"not null"`
	Description string
	Status      TaskStatus     `gorm:"not null;default:'TODO';index"`
	Priority    TaskPriority   `gorm:"not null;default:'MEDIUM'"`
	CreatedByID *string        `gorm:"column:created_by_id;index"`
	CreatedBy   *User          `gorm:"foreignKey:CreatedByID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Assignees   []TaskAssignee `gorm:"foreignKey:TaskID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	DueDate     *time.Time     `gorm:"column:due_date"`
	CompletedAt *time.Time     `gorm:"column:completed_at"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// CreatedByUserID returns the creator's id, or "" once the creator is gone.
func (t *Task) CreatedByUserID() string {
	if t.CreatedByID == nil {
		return ""
	}
	return *t.CreatedByID
}

// TaskAssignee is the task/user join row. Assignees need not be project members.
type TaskAssignee struct {
	TaskID    string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey;index"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time
}

// TableName specifies the table name for TaskAssignee Model
func (TaskAssignee) TableName() string {
	return "task_assignees"
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&TaskAssignee{},
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a project-scoped capability level held by a member
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleMember:
		return true
	}
	return false
}

// Project represents a project owned by a single user and shared with members.
// The owner is mirrored in OwnerID and in exactly one ProjectMember row with RoleOwner.
type Project struct {
	ID          string          `gorm:"primaryKey"`
	Name        string          `gorm:"not null"`
	Description string
	OwnerID     string          `gorm:"not null;index"`
	Owner       User            `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Members     []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProjectMember grants a user a role inside a project. (ProjectID, UserID) is unique.
type ProjectMember struct {
	ID        string `gorm:"primaryKey"`
	ProjectID string `gorm:"not null;uniqueIndex:idx_project_user"`
	UserID    string `gorm:"not null;uniqueIndex:idx_project_user"`
	Role      Role   `gorm:"not null;default:'member'"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName specifies the table name for ProjectMember Model
func (ProjectMember) TableName() string {
	return "project_members"
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

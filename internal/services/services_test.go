package services

import (
	"context"
	"sync"
	"testing"

	"project-management-api/internal/models"
	"project-management-api/internal/realtime"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []realtime.Event
	to     [][]string
}

func (n *recordingNotifier) Publish(userIDs []string, evt realtime.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
	n.to = append(n.to, userIDs)
}

func (n *recordingNotifier) last() (realtime.Event, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1], n.to[len(n.to)-1]
}

type fixture struct {
	db       *gorm.DB
	projects *ProjectService
	tasks    *TaskService
	notify   *recordingNotifier
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	db := testutil.MustDB(t)
	for _, id := range users {
		testutil.SeedUser(t, db, id, "user-"+id)
	}
	n := &recordingNotifier{}
	return &fixture{
		db:       db,
		projects: NewProjectService(db, nil, n),
		tasks:    NewTaskService(db, nil, n),
		notify:   n,
	}
}

func (f *fixture) role(t *testing.T, projectID, userID string) (models.Role, bool) {
	t.Helper()
	role, ok, err := f.projects.members.GetRole(context.Background(), projectID, userID)
	require.NoError(t, err)
	return role, ok
}

func (f *fixture) ownerRows(t *testing.T, projectID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ?", projectID, models.RoleOwner).
		Count(&n).Error)
	return n
}

func (f *fixture) mustProject(t *testing.T, owner string, members ...MemberSpec) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, CreateProjectInput{Name: "P", Members: members})
	require.NoError(t, err)
	return p
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func idsOf(tasks []models.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func assigneeIDs(t *models.Task) []string {
	ids := make([]string, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		ids = append(ids, a.UserID)
	}
	return ids
}

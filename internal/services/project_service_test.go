package services

import (
	"context"
	"testing"

	"project-management-api/internal/models"
	"project-management-api/internal/realtime"

	"github.com/stretchr/testify/require"
)

func TestCreateProject_SeedsOwnerMembership(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	p := f.mustProject(t, "u1",
		MemberSpec{UserID: "u2", Role: models.RoleManager},
		MemberSpec{UserID: "u3"},
	)

	require.Equal(t, "u1", p.OwnerID)
	require.Equal(t, "user-u1", p.Owner.Username)
	require.Len(t, p.Members, 3)

	role, ok := f.role(t, p.ID, "u1")
	require.True(t, ok)
	require.Equal(t, models.RoleOwner, role)
	require.EqualValues(t, 1, f.ownerRows(t, p.ID))

	role, _ = f.role(t, p.ID, "u3")
	require.Equal(t, models.RoleMember, role)

	evt, to := f.notify.last()
	require.Equal(t, realtime.EventProjectCreated, evt.Type)
	require.ElementsMatch(t, []string{"u1", "u2", "u3", "u1"}, to)
}

func TestCreateProject_Validation(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	ctx := context.Background()

	cases := map[string]CreateProjectInput{
		"missing name":      {Name: "  "},
		"creator again":     {Name: "P", Members: []MemberSpec{{UserID: "u1"}}},
		"duplicate members": {Name: "P", Members: []MemberSpec{{UserID: "u2"}, {UserID: "u2", Role: models.RoleManager}}},
		"owner role":        {Name: "P", Members: []MemberSpec{{UserID: "u2", Role: models.RoleOwner}}},
		"unknown role":      {Name: "P", Members: []MemberSpec{{UserID: "u2", Role: "admin"}}},
		"blank member id":   {Name: "P", Members: []MemberSpec{{UserID: ""}}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.projects.Create(ctx, "u1", in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	var n int64
	require.NoError(t, f.db.Model(&models.Project{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestCreateProject_UnknownMemberRollsBack(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	_, err := f.projects.Create(context.Background(), "u1", CreateProjectInput{
		Name:    "P",
		Members: []MemberSpec{{UserID: "u2"}, {UserID: "ghost"}},
	})
	require.ErrorIs(t, err, ErrNotFound)

	var projects, members int64
	require.NoError(t, f.db.Model(&models.Project{}).Count(&projects).Error)
	require.NoError(t, f.db.Model(&models.ProjectMember{}).Count(&members).Error)
	require.Zero(t, projects)
	require.Zero(t, members)
}

func TestUpdateProject_OnlyOwner(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2", Role: models.RoleManager})
	ctx := context.Background()

	for _, actor := range []string{"u2", "u3"} {
		_, err := f.projects.Update(ctx, actor, p.ID, UpdateProjectInput{Name: strPtr("Hacked")})
		require.ErrorIs(t, err, ErrPermission)
		require.ErrorIs(t, f.projects.Delete(ctx, actor, p.ID), ErrPermission)
	}

	updated, err := f.projects.Update(ctx, "u1", p.ID, UpdateProjectInput{
		Name:        strPtr("Renamed"),
		Description: strPtr("new description"),
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "new description", updated.Description)
	require.Len(t, updated.Members, 2)
}

func TestUpdateProject_UnknownProject(t *testing.T) {
	f := newFixture(t, "u1")
	_, err := f.projects.Update(context.Background(), "u1", "missing", UpdateProjectInput{Name: strPtr("x")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProject_ReplaceMembersKeepsOwner(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3", "u4")
	p := f.mustProject(t, "u1",
		MemberSpec{UserID: "u2", Role: models.RoleManager},
		MemberSpec{UserID: "u3"},
	)
	ctx := context.Background()

	// owner omitted from the replacement list on purpose
	_, err := f.projects.Update(ctx, "u1", p.ID, UpdateProjectInput{
		Members: &[]MemberSpec{{UserID: "u3", Role: models.RoleManager}, {UserID: "u4"}},
	})
	require.NoError(t, err)

	role, ok := f.role(t, p.ID, "u1")
	require.True(t, ok)
	require.Equal(t, models.RoleOwner, role)
	_, ok = f.role(t, p.ID, "u2")
	require.False(t, ok)
	role, _ = f.role(t, p.ID, "u3")
	require.Equal(t, models.RoleManager, role)
	role, _ = f.role(t, p.ID, "u4")
	require.Equal(t, models.RoleMember, role)

	// the removed member is notified as well
	evt, to := f.notify.last()
	require.Equal(t, realtime.EventProjectUpdated, evt.Type)
	require.Contains(t, to, "u2")

	// replacing with an empty list leaves only the owner
	_, err = f.projects.Update(ctx, "u1", p.ID, UpdateProjectInput{Members: &[]MemberSpec{}})
	require.NoError(t, err)
	members, err := f.projects.Members(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "u1", members[0].UserID)
}

func TestUpdateProject_ReplacementIsIdempotent(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	p := f.mustProject(t, "u1")
	ctx := context.Background()
	specs := []MemberSpec{{UserID: "u2"}, {UserID: "u3", Role: models.RoleManager}}

	for i := 0; i < 2; i++ {
		_, err := f.projects.Update(ctx, "u1", p.ID, UpdateProjectInput{Members: &specs})
		require.NoError(t, err)
	}
	members, err := f.projects.Members(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
}

func TestUpdateProject_UnknownMemberRollsBack(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2"})
	ctx := context.Background()

	_, err := f.projects.Update(ctx, "u1", p.ID, UpdateProjectInput{
		Name:    strPtr("Renamed"),
		Members: &[]MemberSpec{{UserID: "u3"}, {UserID: "ghost"}},
	})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := f.projects.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Equal(t, "P", got.Name)
	_, ok := f.role(t, p.ID, "u2")
	require.True(t, ok)
	_, ok = f.role(t, p.ID, "u3")
	require.False(t, ok)
}

func TestUpdateProject_OwnerCannotBeListed(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	p := f.mustProject(t, "u1")
	_, err := f.projects.Update(context.Background(), "u1", p.ID, UpdateProjectInput{
		Members: &[]MemberSpec{{UserID: "u1", Role: models.RoleMember}},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.EqualValues(t, 1, f.ownerRows(t, p.ID))
}

func TestDeleteProject_Cascades(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2"})
	ctx := context.Background()
	_, err := f.tasks.Create(ctx, "u2", CreateTaskInput{ProjectID: p.ID, Title: "T", AssigneeIDs: []string{"u1"}})
	require.NoError(t, err)

	require.NoError(t, f.projects.Delete(ctx, "u1", p.ID))

	for _, m := range []any{&models.Project{}, &models.ProjectMember{}, &models.Task{}, &models.TaskAssignee{}} {
		var n int64
		require.NoError(t, f.db.Model(m).Count(&n).Error)
		require.Zero(t, n)
	}
	evt, to := f.notify.last()
	require.Equal(t, realtime.EventProjectDeleted, evt.Type)
	require.Contains(t, to, "u2")

	require.ErrorIs(t, f.projects.Delete(ctx, "u1", p.ID), ErrNotFound)
}

func TestTransferOwnership_Success(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2", Role: models.RoleManager})

	got, err := f.projects.TransferOwnership(context.Background(), "u1", p.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, "u2", got.OwnerID)

	role, _ := f.role(t, p.ID, "u1")
	require.Equal(t, models.RoleMember, role)
	role, _ = f.role(t, p.ID, "u2")
	require.Equal(t, models.RoleOwner, role)
	require.EqualValues(t, 1, f.ownerRows(t, p.ID))

	evt, _ := f.notify.last()
	require.Equal(t, realtime.EventOwnershipTransfer, evt.Type)

	// the former owner lost write access
	_, err = f.projects.Update(context.Background(), "u1", p.ID, UpdateProjectInput{Name: strPtr("x")})
	require.ErrorIs(t, err, ErrPermission)
}

func TestTransferOwnership_Failures(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3", "u4")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2"}, MemberSpec{UserID: "u3", Role: models.RoleManager})
	ctx := context.Background()

	cases := []struct {
		name     string
		actor    string
		newOwner string
		kind     error
	}{
		{"member is not owner", "u2", "u3", ErrPermission},
		{"outsider is not owner", "u4", "u2", ErrPermission},
		{"missing new owner", "u1", " ", ErrValidation},
		{"unknown user", "u1", "ghost", ErrNotFound},
		{"valid user but not a member", "u1", "u4", ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.projects.TransferOwnership(ctx, tc.actor, p.ID, tc.newOwner)
			require.ErrorIs(t, err, tc.kind)
		})
	}

	got, err := f.projects.Get(ctx, "u1", p.ID)
	require.NoError(t, err)
	require.Equal(t, "u1", got.OwnerID)
	require.EqualValues(t, 1, f.ownerRows(t, p.ID))
}

func TestTransferOwnership_ToSelfIsNoop(t *testing.T) {
	f := newFixture(t, "u1")
	p := f.mustProject(t, "u1")
	got, err := f.projects.TransferOwnership(context.Background(), "u1", p.ID, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", got.OwnerID)
	role, _ := f.role(t, p.ID, "u1")
	require.Equal(t, models.RoleOwner, role)
}

func TestListAndGetProjects_Visibility(t *testing.T) {
	f := newFixture(t, "u1", "u2", "u3")
	ctx := context.Background()
	shared := f.mustProject(t, "u1", MemberSpec{UserID: "u2"})
	private := f.mustProject(t, "u1")
	own := f.mustProject(t, "u2")

	list, err := f.projects.List(ctx, "u2")
	require.NoError(t, err)
	var ids []string
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	require.ElementsMatch(t, []string{shared.ID, own.ID}, ids)

	_, err = f.projects.Get(ctx, "u2", private.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.projects.Members(ctx, "u3", shared.ID)
	require.ErrorIs(t, err, ErrNotFound)

	list, err = f.projects.List(ctx, "u3")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestMemberErr_MapsDuplicateToConflict(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2"})
	err := memberErr(f.projects.members.AddMember(context.Background(), p.ID, "u2", models.RoleMember))
	require.ErrorIs(t, err, ErrConflict)
}

func TestProjectCheckOwner(t *testing.T) {
	f := newFixture(t, "u1", "u2")
	p := f.mustProject(t, "u1", MemberSpec{UserID: "u2", Role: models.RoleManager})
	ctx := context.Background()

	require.NoError(t, f.projects.CheckOwner(ctx, "u1", p.ID))
	require.ErrorIs(t, f.projects.CheckOwner(ctx, "u2", p.ID), ErrPermission)
	require.ErrorIs(t, f.projects.CheckOwner(ctx, "u1", "missing"), ErrNotFound)
}

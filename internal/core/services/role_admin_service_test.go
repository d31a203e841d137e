package services

import (
	"context"
	"testing"

	"student-portal/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAdminService_Promote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := claimsOf(f.createUser(t, "root@x.com", "ROOT", domain.RoleSuperAdmin))
	student := f.createUser(t, "a@x.com", "M1", domain.RoleStudent)

	user, err := f.admin.Promote(ctx, root, "A@X.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	stored, _ := f.users.GetByID(ctx, student.ID)
	assert.Equal(t, domain.RoleAdmin, stored.Role)

	_, err = f.admin.Promote(ctx, root, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrAlreadyAdmin)
	assert.Equal(t, 409, domain.StatusCode(err))

	_, err = f.admin.Promote(ctx, root, "root@x.com")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.admin.Promote(ctx, root, "ghost@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRoleAdminService_RequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := claimsOf(f.createUser(t, "admin@x.com", "ADM", domain.RoleAdmin))
	student := f.createUser(t, "a@x.com", "M1", domain.RoleStudent)

	_, err := f.admin.Promote(ctx, admin, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrRoleForbidden)

	_, err = f.admin.Demote(ctx, admin, student.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.admin.SetActive(ctx, admin, student.ID, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.admin.Promote(ctx, nil, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRoleAdminService_Demote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rootUser := f.createUser(t, "root@x.com", "ROOT", domain.RoleSuperAdmin)
	otherRoot := f.createUser(t, "root2@x.com", "ROOT2", domain.RoleSuperAdmin)
	admin := f.createUser(t, "admin@x.com", "ADM", domain.RoleAdmin)
	root := claimsOf(rootUser)

	user, err := f.admin.Demote(ctx, root, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, user.Role)

	_, err = f.admin.Demote(ctx, root, otherRoot.ID)
	assert.ErrorIs(t, err, domain.ErrSuperAdminTarget)
	assert.Equal(t, 403, domain.StatusCode(err))

	_, err = f.admin.Demote(ctx, root, rootUser.ID)
	assert.ErrorIs(t, err, domain.ErrSelfDemotion)
	assert.Equal(t, 403, domain.StatusCode(err))

	_, err = f.admin.Demote(ctx, root, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRoleAdminService_SetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rootUser := f.createUser(t, "root@x.com", "ROOT", domain.RoleSuperAdmin)
	otherRoot := f.createUser(t, "root2@x.com", "ROOT2", domain.RoleSuperAdmin)
	student := f.createUser(t, "a@x.com", "M1", domain.RoleStudent)
	root := claimsOf(rootUser)

	user, err := f.admin.SetActive(ctx, root, student.ID, false)
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	_, err = f.sessions.Authenticate(ctx, "a@x.com", "password123")
	assert.ErrorIs(t, err, domain.ErrUserSuspended)

	_, err = f.admin.SetActive(ctx, root, student.ID, true)
	require.NoError(t, err)
	_, err = f.sessions.Authenticate(ctx, "a@x.com", "password123")
	assert.NoError(t, err)

	_, err = f.admin.SetActive(ctx, root, otherRoot.ID, false)
	assert.ErrorIs(t, err, domain.ErrSuperAdminTarget)

	_, err = f.admin.SetActive(ctx, root, rootUser.ID, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRoleAdminService_ListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := claimsOf(f.createUser(t, "admin@x.com", "ADM", domain.RoleAdmin))
	student := f.createUser(t, "a@x.com", "M1", domain.RoleStudent)
	f.createUser(t, "b@x.com", "M2", domain.RoleStudent)

	users, total, err := f.admin.ListUsers(ctx, admin, ListUsersInput{Role: domain.RoleStudent, Offset: 0, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, users, 1)
	assert.Equal(t, student.ID, users[0].ID)

	_, _, err = f.admin.ListUsers(ctx, claimsOf(student), ListUsersInput{Limit: 10})
	assert.ErrorIs(t, err, domain.ErrRoleForbidden)

	_, _, err = f.admin.ListUsers(ctx, admin, ListUsersInput{Role: "owner", Limit: 10})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

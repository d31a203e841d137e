package services

import (
	"context"
	"testing"

	"student-portal/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() CreateUserInput {
	return CreateUserInput{
		FullName:         "Ada Lovelace",
		Email:            "Ada@Example.com",
		MatricNumber:     "m100",
		Password:         "secret123",
		MembershipStatus: domain.MembershipMember,
		Role:             domain.RoleStudent,
	}
}

func TestCredentialService_CreateAndVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.credentials.Create(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "M100", user.MatricNumber)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.True(t, user.IsActive)

	got, err := f.credentials.VerifyCredentials(ctx, "ADA@example.COM", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.credentials.VerifyCredentials(ctx, "ada@example.com", "wrong-pass1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.credentials.VerifyCredentials(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCredentialService_CreateConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.credentials.Create(ctx, validInput())
	require.NoError(t, err)

	dupEmail := validInput()
	dupEmail.MatricNumber = "M200"
	_, err = f.credentials.Create(ctx, dupEmail)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	dupMatric := validInput()
	dupMatric.Email = "other@example.com"
	_, err = f.credentials.Create(ctx, dupMatric)
	assert.ErrorIs(t, err, domain.ErrMatricTaken)
}

func TestCredentialService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*CreateUserInput)
		want   error
	}{
		{"super admin role", func(in *CreateUserInput) { in.Role = domain.RoleSuperAdmin }, domain.ErrInvalidRole},
		{"pending membership", func(in *CreateUserInput) { in.MembershipStatus = domain.MembershipPending }, domain.ErrInvalidMembership},
		{"bad email", func(in *CreateUserInput) { in.Email = "not-an-email" }, domain.ErrValidation},
		{"display name email", func(in *CreateUserInput) { in.Email = "Ada <ada@example.com>" }, domain.ErrValidation},
		{"missing matric", func(in *CreateUserInput) { in.MatricNumber = " " }, domain.ErrValidation},
		{"weak password", func(in *CreateUserInput) { in.Password = "short" }, domain.ErrValidation},
		{"missing name", func(in *CreateUserInput) { in.FullName = "" }, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := f.credentials.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 400, domain.StatusCode(err))
		})
	}
}

func TestCredentialService_AdminCreationAllowed(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Role = domain.RoleAdmin

	user, err := f.credentials.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestCredentialService_CheckExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.createUser(t, "s@x.com", "M1", domain.RoleStudent)

	status, err := f.credentials.CheckExists(ctx, "S@X.com")
	require.NoError(t, err)
	assert.Equal(t, &UserStatus{Exists: true, IsActive: true}, status)

	require.NoError(t, f.users.UpdateFields(ctx, u.ID, map[string]interface{}{"is_active": false}))
	status, err = f.credentials.CheckExists(ctx, "s@x.com")
	require.NoError(t, err)
	assert.False(t, status.IsActive)

	status, err = f.credentials.CheckExists(ctx, "missing@x.com")
	require.NoError(t, err)
	assert.False(t, status.Exists)
}

func TestCredentialService_StoreUnavailable(t *testing.T) {
	f := newFixture(t)
	f.users.Err = domain.ErrServiceUnavailable

	_, err := f.credentials.CheckExists(context.Background(), "s@x.com")
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 503, domain.StatusCode(err))
}

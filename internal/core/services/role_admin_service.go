package services

import (
	"context"
	"errors"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
)

// RoleAdminService handles privileged role and status changes.
// Writes are last-writer-wins; there is no version check between the read
// of the target and the update.
type RoleAdminService struct {
	users   repositories.UserRepository
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewRoleAdminService creates a new role admin service
func NewRoleAdminService(users repositories.UserRepository, log *logger.Logger, m *metrics.Metrics) *RoleAdminService {
	return &RoleAdminService{users: users, log: log, metrics: m}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Role   domain.Role
	Offset int
	Limit  int
}

func (s *RoleAdminService) target(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError("get user", err)
	}
	return user, nil
}

func (s *RoleAdminService) update(ctx context.Context, user *models.User, fields map[string]interface{}) error {
	if err := s.users.UpdateFields(ctx, user.ID, fields); err != nil {
		return storeError("update user", err)
	}
	return nil
}

// Promote makes a student an admin
func (s *RoleAdminService) Promote(ctx context.Context, caller *domain.Claims, email string) (*models.User, error) {
	if err := domain.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storeError("get user", err)
	}
	if user.Role == domain.RoleAdmin || user.Role == domain.RoleSuperAdmin {
		return nil, domain.ErrAlreadyAdmin
	}

	if err := s.update(ctx, user, map[string]interface{}{"role": domain.RoleAdmin}); err != nil {
		return nil, err
	}
	user.Role = domain.RoleAdmin

	s.metrics.RoleChange("promote")
	s.log.Info("user promoted", "user_id", user.ID, "by", caller.ID)
	return user, nil
}

// Demote returns an admin to student
func (s *RoleAdminService) Demote(ctx context.Context, caller *domain.Claims, userID uint) (*models.User, error) {
	if err := domain.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if userID == caller.ID {
		return nil, domain.ErrSelfDemotion
	}

	user, err := s.target(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, domain.ErrSuperAdminTarget
	}

	if err := s.update(ctx, user, map[string]interface{}{"role": domain.RoleStudent}); err != nil {
		return nil, err
	}
	user.Role = domain.RoleStudent

	s.metrics.RoleChange("demote")
	s.log.Info("user demoted", "user_id", user.ID, "by", caller.ID)
	return user, nil
}

// SetActive suspends or reinstates a user
func (s *RoleAdminService) SetActive(ctx context.Context, caller *domain.Claims, userID uint, active bool) (*models.User, error) {
	if err := domain.RequireRole(caller, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if userID == caller.ID {
		return nil, domain.ErrSelfSuspension
	}

	user, err := s.target(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, domain.ErrSuperAdminTarget
	}

	if err := s.update(ctx, user, map[string]interface{}{"is_active": active}); err != nil {
		return nil, err
	}
	user.IsActive = active

	action := "suspend"
	if active {
		action = "reinstate"
	}
	s.metrics.RoleChange(action)
	s.log.Info("user status changed", "user_id", user.ID, "active", active, "by", caller.ID)
	return user, nil
}

// ListUsers lists users for admins
func (s *RoleAdminService) ListUsers(ctx context.Context, caller *domain.Claims, input ListUsersInput) ([]*models.UserResponse, int64, error) {
	if err := domain.RequireRole(caller, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return nil, 0, err
	}
	if input.Role != "" && !input.Role.Valid() {
		return nil, 0, validationError("unknown role filter")
	}

	users, total, err := s.users.List(ctx, input.Role, input.Offset, input.Limit)
	if err != nil {
		return nil, 0, storeError("list users", err)
	}

	out := make([]*models.UserResponse, len(users))
	for i, u := range users {
		out[i] = u.ToResponse()
	}
	return out, total, nil
}

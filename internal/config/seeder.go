package config

import (
	"context"
	"errors"
	"fmt"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/password"
)

// Seeder handles database seeding
type Seeder struct {
	users  repositories.UserRepository
	hasher *password.Hasher
	admin  SuperAdminConfig
	log    *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(users repositories.UserRepository, hasher *password.Hasher, admin SuperAdminConfig, log *logger.Logger) *Seeder {
	return &Seeder{users: users, hasher: hasher, admin: admin, log: log}
}

// Run executes all seeders
func (s *Seeder) Run(ctx context.Context) error {
	s.log.Info("running database seeders")

	if err := s.seedSuperAdmin(ctx); err != nil {
		return fmt.Errorf("super admin seeder: %w", err)
	}

	s.log.Info("database seeding completed")
	return nil
}

// seedSuperAdmin creates the bootstrap super admin from SUPERADMIN_*.
// Super admins are never created through registration or promotion,
// so this is the only way one comes into existence.
func (s *Seeder) seedSuperAdmin(ctx context.Context) error {
	if s.admin.Email == "" {
		s.log.Debug("SUPERADMIN_EMAIL not set, skipping super admin seed")
		return nil
	}

	count, err := s.users.CountByRole(ctx, domain.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if _, err := s.users.GetByEmail(ctx, s.admin.Email); err == nil {
		s.log.Warn("super admin seed email already belongs to another account", "email", domain.NormalizeEmail(s.admin.Email))
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(s.admin.Password)
	if err != nil {
		return err
	}

	admin := &models.User{
		FullName:         s.admin.Name,
		Email:            s.admin.Email,
		MatricNumber:     s.admin.Matric,
		PasswordHash:     hash,
		Role:             domain.RoleSuperAdmin,
		MembershipStatus: domain.MembershipNonMember,
		IsActive:         true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	s.log.Info("super admin created", "user_id", admin.ID, "email", admin.Email)
	return nil
}

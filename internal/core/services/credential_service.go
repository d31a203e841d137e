package services

import (
	"context"
	"errors"
	"strings"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/password"
)

var errAccountExists = domain.NewError(domain.ErrConflict, "email or matric number already registered")

// CredentialService owns user identity records
type CredentialService struct {
	users  repositories.UserRepository
	hasher *password.Hasher
	log    *logger.Logger
}

// NewCredentialService creates a new credential service
func NewCredentialService(users repositories.UserRepository, hasher *password.Hasher, log *logger.Logger) *CredentialService {
	return &CredentialService{users: users, hasher: hasher, log: log}
}

// CreateUserInput represents a new user
type CreateUserInput struct {
	FullName         string
	Email            string
	MatricNumber     string
	Password         string
	MembershipStatus domain.MembershipStatus
	Role             domain.Role
}

// UserStatus is the lightweight existence check result
type UserStatus struct {
	Exists   bool `json:"exists"`
	IsActive bool `json:"isActive"`
}

// Validate checks input shape before any store access
func (in *CreateUserInput) Validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return validationError("full name is required")
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validateMatric(in.MatricNumber); err != nil {
		return err
	}
	if !password.ValidatePassword(in.Password) {
		return validationError("password must be 8-72 characters and contain a letter and a digit")
	}
	if in.Role != domain.RoleStudent && in.Role != domain.RoleAdmin {
		return domain.ErrInvalidRole
	}
	if in.MembershipStatus != domain.MembershipMember && in.MembershipStatus != domain.MembershipNonMember {
		return domain.ErrInvalidMembership
	}
	return nil
}

// Create stores a new user with a hashed password
func (s *CredentialService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeError("check email", err)
	}
	if exists {
		return nil, domain.ErrEmailTaken
	}

	exists, err = s.users.ExistsByMatricNumber(ctx, in.MatricNumber)
	if err != nil {
		return nil, storeError("check matric number", err)
	}
	if exists {
		return nil, domain.ErrMatricTaken
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FullName:         strings.TrimSpace(in.FullName),
		Email:            domain.NormalizeEmail(in.Email),
		MatricNumber:     domain.NormalizeMatric(in.MatricNumber),
		PasswordHash:     hash,
		Role:             in.Role,
		MembershipStatus: in.MembershipStatus,
		IsActive:         true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errAccountExists
		}
		return nil, storeError("create user", err)
	}

	s.log.Info("user created", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return user, nil
}

// VerifyCredentials returns the user when password matches.
// Unknown email and wrong password are indistinguishable to the caller.
// The active flag is not checked here.
func (s *CredentialService) VerifyCredentials(ctx context.Context, email, pw string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storeError("get user", err)
	}
	if !s.hasher.Verify(pw, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// CheckExists reports existence and active flag for an email
func (s *CredentialService) CheckExists(ctx context.Context, email string) (*UserStatus, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return &UserStatus{}, nil
		}
		return nil, storeError("get user", err)
	}
	return &UserStatus{Exists: true, IsActive: user.IsActive}, nil
}

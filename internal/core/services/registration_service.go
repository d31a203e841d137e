package services

import (
	"context"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
)

// RegistrationOptions holds registration policy
type RegistrationOptions struct {
	// RequireRosterMatch rejects pairs the roster does not know.
	// When false an unmatched student registers as a non-member.
	RequireRosterMatch bool
	RequireOTP         bool
}

// RegistrationService orchestrates self-service student registration
type RegistrationService struct {
	credentials *CredentialService
	roster      *RosterService
	otp         *OTPService
	opts        RegistrationOptions
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	credentials *CredentialService,
	roster *RosterService,
	otp *OTPService,
	opts RegistrationOptions,
	log *logger.Logger,
	m *metrics.Metrics,
) *RegistrationService {
	return &RegistrationService{
		credentials: credentials,
		roster:      roster,
		otp:         otp,
		opts:        opts,
		log:         log,
		metrics:     m,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	MatricNumber string `json:"matricNumber"`
	Password     string `json:"password"`
}

// Register creates a student account after roster and email checks.
// Membership is taken from the roster, never from the request.
func (s *RegistrationService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	create := CreateUserInput{
		FullName:         input.FullName,
		Email:            input.Email,
		MatricNumber:     input.MatricNumber,
		Password:         input.Password,
		Role:             domain.RoleStudent,
		MembershipStatus: domain.MembershipNonMember,
	}
	if err := create.Validate(); err != nil {
		s.metrics.Registration("invalid")
		return nil, err
	}

	// 1. Roster
	membership, err := s.roster.VerifyMembership(ctx, input.Email, input.MatricNumber)
	if err != nil {
		return nil, err
	}
	if !membership.Matched && s.opts.RequireRosterMatch {
		s.metrics.Registration("not_on_roster")
		return nil, domain.ErrStudentNotOnRoster
	}
	if membership.IsMember {
		create.MembershipStatus = domain.MembershipMember
	}

	// 2. Email ownership
	if s.opts.RequireOTP {
		verified, err := s.otp.IsVerified(ctx, input.Email)
		if err != nil {
			return nil, err
		}
		if !verified {
			s.metrics.Registration("email_not_verified")
			return nil, domain.ErrEmailNotVerified
		}
	}

	// 3. Create
	user, err := s.credentials.Create(ctx, create)
	if err != nil {
		s.metrics.Registration("rejected")
		return nil, err
	}

	// 4. The verified code has done its job
	if s.opts.RequireOTP {
		if err := s.otp.Consume(ctx, user.Email); err != nil {
			s.log.Warn("failed to consume otp after registration", "email", user.Email, "error", err)
		}
	}

	s.metrics.Registration("success")
	s.log.Info("user registered", "user_id", user.ID, "membership", user.MembershipStatus)
	return user, nil
}

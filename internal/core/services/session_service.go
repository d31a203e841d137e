package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/jwt"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
)

// DefaultSessionTTL is the fixed session lifetime
const DefaultSessionTTL = 30 * time.Minute

// SessionOptions configures session minting
type SessionOptions struct {
	Secret string
	TTL    time.Duration
	Now    Clock
}

// SessionService authenticates users and mints stateless sessions
type SessionService struct {
	credentials *CredentialService
	secret      string
	ttl         time.Duration
	now         Clock
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// NewSessionService creates a new session service
func NewSessionService(credentials *CredentialService, opts SessionOptions, log *logger.Logger, m *metrics.Metrics) *SessionService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	return &SessionService{
		credentials: credentials,
		secret:      opts.Secret,
		ttl:         opts.TTL,
		now:         opts.Now.orDefault(),
		log:         log,
		metrics:     m,
	}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate verifies credentials and returns the claim set.
// A suspended account is reported as its own error, and only once the
// password has been verified.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (*domain.Claims, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, validationError("email and password are required")
	}

	user, err := s.credentials.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.metrics.Login("invalid")
			s.log.Info("login failed", "email", domain.NormalizeEmail(email))
		}
		return nil, err
	}

	if !user.IsActive {
		s.metrics.Login("suspended")
		s.log.Warn("login blocked for suspended account", "user_id", user.ID)
		return nil, domain.ErrUserSuspended
	}

	claims := user.Claims()
	return &claims, nil
}

// Mint signs a session for claims with a fixed absolute expiry
func (s *SessionService) Mint(claims domain.Claims) (*domain.Session, error) {
	token, expiresAt, err := jwt.GenerateSessionToken(claims, s.secret, s.now(), s.ttl)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, ExpiresAt: expiresAt, Claims: claims}, nil
}

// Login authenticates and mints in one step
func (s *SessionService) Login(ctx context.Context, input *LoginInput) (*domain.Session, error) {
	claims, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	session, err := s.Mint(*claims)
	if err != nil {
		return nil, err
	}

	s.metrics.Login("success")
	s.log.Info("user logged in", "user_id", claims.ID, "role", claims.Role)
	return session, nil
}

// Resolve decodes a session token into claims without touching the store.
// Role changes made after minting are not visible until the session is reminted.
func (s *SessionService) Resolve(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, domain.ErrSessionMissing
	}
	tc, err := jwt.ValidateSessionToken(token, s.secret, s.now())
	if err != nil {
		return nil, domain.ErrSessionInvalid
	}
	claims := tc.Domain()
	return &claims, nil
}

// TTL returns the session lifetime
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/adapters/persistence/repositories"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"
	"student-portal/internal/pkg/metrics"
)

// ============================================================
// OTP Service - email ownership codes
// ============================================================

// OTPOptions configures code issuance and verification
type OTPOptions struct {
	Length         int
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
	// VerifiedWindow is how long a verified code keeps authorising registration
	VerifiedWindow time.Duration
	// Retention is how long expired records are kept before the sweep deletes them
	Retention time.Duration
	Now       Clock
}

// OTPService issues and verifies one-time codes
type OTPService struct {
	repo    repositories.OTPRepository
	mailer  Mailer
	opts    OTPOptions
	now     Clock
	log     *logger.Logger
	metrics *metrics.Metrics
}

// IssueResult describes an issued code (never the code itself)
type IssueResult struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewOTPService creates a new OTP service
func NewOTPService(repo repositories.OTPRepository, mailer Mailer, opts OTPOptions, log *logger.Logger, m *metrics.Metrics) *OTPService {
	if opts.Length <= 0 {
		opts.Length = 6
	}
	if opts.MaxAttempts <= 0 || opts.MaxAttempts > 5 {
		opts.MaxAttempts = 5
	}
	return &OTPService{
		repo:    repo,
		mailer:  mailer,
		opts:    opts,
		now:     opts.Now.orDefault(),
		log:     log,
		metrics: m,
	}
}

// Issue generates a code for email, stores it and delivers it.
// If delivery fails the stored record is discarded and nothing is left
// that could be verified.
func (s *OTPService) Issue(ctx context.Context, email string) (*IssueResult, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	email = domain.NormalizeEmail(email)
	now := s.now()

	// Check rate limit
	latest, err := s.repo.GetLatestByEmail(ctx, email)
	switch {
	case err == nil:
		if s.opts.ResendCooldown > 0 && now.Sub(latest.CreatedAt) < s.opts.ResendCooldown {
			s.metrics.OTPIssued("cooldown")
			return nil, domain.ErrOTPCooldown
		}
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, storeError("get otp", err)
	}

	code, err := generateSecureOTP(s.opts.Length)
	if err != nil {
		return nil, err
	}

	record := &models.OTPRecord{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(s.opts.TTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, storeError("create otp", err)
	}

	if err := s.mailer.SendOTP(ctx, email, code, s.opts.TTL); err != nil {
		s.log.Error("otp delivery failed", "email", email, "error", err)
		// detached so a cancelled request still cleans up
		if derr := s.repo.Discard(context.WithoutCancel(ctx), record); derr != nil {
			s.log.Error("failed to discard undelivered otp", "email", email, "otp_id", record.ID, "error", derr)
		}
		s.metrics.OTPIssued("delivery_failed")
		return nil, domain.ErrOTPDelivery
	}

	// The new record already wins as the latest; expiring the rest keeps
	// the table honest for anything reading it directly.
	if err := s.repo.ExpireOthers(ctx, email, record.ID, now); err != nil {
		s.log.Warn("failed to expire superseded otps", "email", email, "error", err)
	}

	s.metrics.OTPIssued("sent")
	s.log.Info("otp issued", "email", email, "otp_id", record.ID, "expires_at", record.ExpiresAt)
	return &IssueResult{Email: email, ExpiresAt: record.ExpiresAt}, nil
}

// Verify checks code against the latest record for email.
// The compare-and-increment happens in one conditional store write.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if !isNumeric(code) {
		return validationError("verification code must be numeric")
	}
	email = domain.NormalizeEmail(email)
	now := s.now()

	record, err := s.repo.GetLatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.metrics.OTPAttempt("not_found")
			return domain.ErrOTPNotFound
		}
		return storeError("get otp", err)
	}

	// Expiry is final, even for a record that was already verified.
	if record.IsExpired(now) {
		s.metrics.OTPAttempt("expired")
		return domain.ErrOTPExpired
	}
	// Verified records are dead: the right code is an idempotent success,
	// anything else fails without touching attempts.
	if record.Verified {
		return s.alreadyVerified(record, code)
	}
	if record.Attempts >= s.opts.MaxAttempts {
		s.metrics.OTPAttempt("locked")
		return domain.ErrOTPLockedOut
	}

	outcome, err := s.repo.ConsumeAttempt(ctx, record, code, s.opts.MaxAttempts, now)
	if err != nil {
		return storeError("consume otp attempt", err)
	}
	s.metrics.OTPAttempt(outcome.String())

	switch outcome {
	case repositories.AttemptVerified:
		s.log.Info("otp verified", "email", email, "otp_id", record.ID)
		return nil
	case repositories.AttemptMismatch:
		s.log.Info("otp mismatch", "email", email, "otp_id", record.ID, "attempts", record.Attempts+1)
		return domain.ErrOTPInvalidCode
	case repositories.AttemptLocked:
		return domain.ErrOTPLockedOut
	case repositories.AttemptExpired:
		return domain.ErrOTPExpired
	case repositories.AttemptAlreadyVerified:
		return s.alreadyVerified(record, code)
	}
	return domain.ErrOTPNotFound
}

func (s *OTPService) alreadyVerified(record *models.OTPRecord, code string) error {
	if record.Code == code {
		s.metrics.OTPAttempt("already_verified")
		return nil
	}
	return domain.ErrOTPInvalidCode
}

// IsVerified reports whether email holds a verified code still inside the
// registration window
func (s *OTPService) IsVerified(ctx context.Context, email string) (bool, error) {
	record, err := s.repo.GetLatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, storeError("get otp", err)
	}
	if !record.Verified || record.VerifiedAt == nil {
		return false, nil
	}
	return !s.now().After(record.VerifiedAt.Add(s.opts.VerifiedWindow)), nil
}

// Consume removes every code for email once it has been used
func (s *OTPService) Consume(ctx context.Context, email string) error {
	if err := s.repo.DeleteByEmail(ctx, email); err != nil {
		return storeError("delete otp", err)
	}
	return nil
}

// Sweep deletes records that expired more than Retention ago.
// Verification never relies on this having run.
func (s *OTPService) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.opts.Retention)
	n, err := s.repo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, storeError("sweep otp", err)
	}
	s.metrics.OTPSwept(n)
	return n, nil
}

// generateSecureOTP generates a cryptographically secure random OTP
func generateSecureOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

package services

import (
	"context"
	"testing"
	"time"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/metrics"
	"student-portal/internal/pkg/password"
	"student-portal/internal/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

type fixture struct {
	clock  *testutil.Clock
	users  *testutil.UserRepo
	roster *testutil.RosterRepo
	otps   *testutil.OTPRepo
	mailer *testutil.Mailer

	credentials  *CredentialService
	rosterSvc    *RosterService
	otp          *OTPService
	sessions     *SessionService
	admin        *RoleAdminService
	registration *RegistrationService
}

func newFixture(t *testing.T, rosterEntries ...models.StudentRosterEntry) *fixture {
	t.Helper()
	log := testutil.NoopLogger()
	m := metrics.New("test", prometheus.NewRegistry())

	f := &fixture{
		clock:  testutil.NewClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		users:  testutil.NewUserRepo(),
		roster: testutil.NewRosterRepo(rosterEntries...),
		otps:   testutil.NewOTPRepo(),
		mailer: &testutil.Mailer{},
	}

	f.credentials = NewCredentialService(f.users, password.NewHasher(bcrypt.MinCost), log)
	f.rosterSvc = NewRosterService(f.roster, log, m)
	f.otp = NewOTPService(f.otps, f.mailer, OTPOptions{
		Length:         6,
		TTL:            10 * time.Minute,
		MaxAttempts:    5,
		ResendCooldown: time.Minute,
		VerifiedWindow: 30 * time.Minute,
		Retention:      24 * time.Hour,
		Now:            f.clock.Now,
	}, log, m)
	f.sessions = NewSessionService(f.credentials, SessionOptions{
		Secret: testSecret,
		TTL:    30 * time.Minute,
		Now:    f.clock.Now,
	}, log, m)
	f.admin = NewRoleAdminService(f.users, log, m)
	f.registration = NewRegistrationService(f.credentials, f.rosterSvc, f.otp, RegistrationOptions{
		RequireRosterMatch: true,
		RequireOTP:         true,
	}, log, m)
	return f
}

// createUser stores a user directly with the given role
func (f *fixture) createUser(t *testing.T, email, matric string, role domain.Role) *models.User {
	t.Helper()
	hash, err := password.NewHasher(bcrypt.MinCost).Hash("password123")
	require.NoError(t, err)
	u := &models.User{
		FullName:         "Test " + matric,
		Email:            email,
		MatricNumber:     matric,
		PasswordHash:     hash,
		Role:             role,
		MembershipStatus: domain.MembershipNonMember,
		IsActive:         true,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func claimsOf(u *models.User) *domain.Claims {
	c := u.Claims()
	return &c
}

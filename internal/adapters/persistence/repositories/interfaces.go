package repositories

import (
	"context"
	"time"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"

	"gorm.io/gorm"
)

// Conn hands out the shared record-store handle.
// Implementations may connect lazily on first use.
type Conn interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

// StaticConn wraps an already opened *gorm.DB.
type StaticConn struct {
	db *gorm.DB
}

// NewStaticConn creates a Conn around an open handle
func NewStaticConn(db *gorm.DB) *StaticConn {
	return &StaticConn{db: db}
}

// DB returns the wrapped handle
func (c *StaticConn) DB(context.Context) (*gorm.DB, error) {
	return c.db, nil
}

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByMatricNumber(ctx context.Context, matric string) (bool, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, role domain.Role, offset, limit int) ([]*models.User, int64, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
}

// RosterRepository defines student roster repository interface
type RosterRepository interface {
	FindByEmailAndMatric(ctx context.Context, email, matric string) (*models.StudentRosterEntry, error)
	Upsert(ctx context.Context, entry *models.StudentRosterEntry) error
}

// AttemptOutcome is the result of one atomic verification attempt.
type AttemptOutcome int

const (
	AttemptMissing AttemptOutcome = iota
	AttemptVerified
	AttemptMismatch
	AttemptLocked
	AttemptExpired
	AttemptAlreadyVerified
)

func (o AttemptOutcome) String() string {
	switch o {
	case AttemptVerified:
		return "verified"
	case AttemptMismatch:
		return "mismatch"
	case AttemptLocked:
		return "locked"
	case AttemptExpired:
		return "expired"
	case AttemptAlreadyVerified:
		return "already_verified"
	}
	return "missing"
}

// OTPRepository defines one-time code storage.
// ConsumeAttempt must compare the code and either flip verified or
// increment attempts as one conditional write against the store.
type OTPRepository interface {
	Create(ctx context.Context, record *models.OTPRecord) error
	GetLatestByEmail(ctx context.Context, email string) (*models.OTPRecord, error)
	ConsumeAttempt(ctx context.Context, record *models.OTPRecord, code string, maxAttempts int, now time.Time) (AttemptOutcome, error)
	Discard(ctx context.Context, record *models.OTPRecord) error
	ExpireOthers(ctx context.Context, email string, keepID uint, now time.Time) error
	DeleteByEmail(ctx context.Context, email string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

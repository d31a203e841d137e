package repositories

import (
	"context"
	"errors"
	"time"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"

	"gorm.io/gorm"
)

// otpRepository implements OTPRepository on the record store
type otpRepository struct {
	conn Conn
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(conn Conn) OTPRepository {
	return &otpRepository{conn: conn}
}

// Create stores a newly issued code
func (r *otpRepository) Create(ctx context.Context, record *models.OTPRecord) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	record.Email = domain.NormalizeEmail(record.Email)
	return translate(db.WithContext(ctx).Create(record).Error)
}

// GetLatestByEmail returns the most recently issued record for an email
func (r *otpRepository) GetLatestByEmail(ctx context.Context, email string) (*models.OTPRecord, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	var record models.OTPRecord
	err = db.WithContext(ctx).
		Where("email = ?", domain.NormalizeEmail(email)).
		Order("id DESC").
		Take(&record).Error
	if err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

// ConsumeAttempt flips verified on a matching code or increments attempts on
// a mismatch. Each branch is a single guarded UPDATE so concurrent callers
// can never push attempts past maxAttempts or verify a locked record.
func (r *otpRepository) ConsumeAttempt(ctx context.Context, record *models.OTPRecord, code string, maxAttempts int, now time.Time) (AttemptOutcome, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return AttemptMissing, err
	}
	db = db.WithContext(ctx)

	res := db.Model(&models.OTPRecord{}).
		Where("id = ? AND verified = ? AND attempts < ? AND expires_at >= ? AND code = ?",
			record.ID, false, maxAttempts, now, code).
		Updates(map[string]interface{}{
			"verified":    true,
			"verified_at": now,
		})
	if res.Error != nil {
		return AttemptMissing, res.Error
	}
	if res.RowsAffected == 1 {
		return AttemptVerified, nil
	}

	res = db.Model(&models.OTPRecord{}).
		Where("id = ? AND verified = ? AND attempts < ? AND expires_at >= ? AND code <> ?",
			record.ID, false, maxAttempts, now, code).
		UpdateColumn("attempts", gorm.Expr("attempts + ?", 1))
	if res.Error != nil {
		return AttemptMissing, res.Error
	}
	if res.RowsAffected == 1 {
		return AttemptMismatch, nil
	}

	// Neither guard matched: classify from the current row.
	var current models.OTPRecord
	if err := db.Where("id = ?", record.ID).Take(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AttemptMissing, nil
		}
		return AttemptMissing, err
	}
	return classify(&current, maxAttempts, now), nil
}

// Discard removes a single record (used when delivery fails)
func (r *otpRepository) Discard(ctx context.Context, record *models.OTPRecord) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Delete(&models.OTPRecord{}, record.ID).Error
}

// ExpireOthers expires every other unverified record for the email
func (r *otpRepository) ExpireOthers(ctx context.Context, email string, keepID uint, now time.Time) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&models.OTPRecord{}).
		Where("email = ? AND id <> ? AND verified = ? AND expires_at > ?",
			domain.NormalizeEmail(email), keepID, false, now).
		UpdateColumn("expires_at", now).Error
}

// DeleteByEmail deletes all records for an email (after registration)
func (r *otpRepository) DeleteByEmail(ctx context.Context, email string) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("email = ?", domain.NormalizeEmail(email)).
		Delete(&models.OTPRecord{}).Error
}

// DeleteExpiredBefore deletes records that expired before cutoff (cleanup job)
func (r *otpRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&models.OTPRecord{})
	return res.RowsAffected, res.Error
}

// classify derives why an attempt could not be applied
func classify(record *models.OTPRecord, maxAttempts int, now time.Time) AttemptOutcome {
	switch {
	case record.IsExpired(now):
		return AttemptExpired
	case record.Verified:
		return AttemptAlreadyVerified
	case record.Attempts >= maxAttempts:
		return AttemptLocked
	}
	return AttemptMismatch
}

package repositories

import (
	"context"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"

	"gorm.io/gorm/clause"
)

// rosterRepository implements RosterRepository interface.
// The roster is ground truth maintained outside the portal; the only
// write path is the idempotent reconciliation upsert.
type rosterRepository struct {
	conn Conn
}

// NewRosterRepository creates a new roster repository
func NewRosterRepository(conn Conn) RosterRepository {
	return &rosterRepository{conn: conn}
}

// FindByEmailAndMatric finds the roster entry matching both fields
func (r *rosterRepository) FindByEmailAndMatric(ctx context.Context, email, matric string) (*models.StudentRosterEntry, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	var entry models.StudentRosterEntry
	err = db.WithContext(ctx).
		Where("email = ? AND matric_number = ?", domain.NormalizeEmail(email), domain.NormalizeMatric(matric)).
		Take(&entry).Error
	if err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

// Upsert inserts the entry or updates the existing one with the same email
func (r *rosterRepository) Upsert(ctx context.Context, entry *models.StudentRosterEntry) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	entry.Email = domain.NormalizeEmail(entry.Email)
	entry.MatricNumber = domain.NormalizeMatric(entry.MatricNumber)

	return translate(db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "matric_number", "department", "level", "member", "updated_at"}),
		}).
		Create(entry).Error)
}

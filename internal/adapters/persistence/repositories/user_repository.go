package repositories

import (
	"context"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"
)

// userRepository implements UserRepository interface
type userRepository struct {
	conn Conn
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn Conn) UserRepository {
	return &userRepository{conn: conn}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	user.Email = domain.NormalizeEmail(user.Email)
	user.MatricNumber = domain.NormalizeMatric(user.MatricNumber)
	return translate(db.WithContext(ctx).Create(user).Error)
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByEmail gets a user by email (case-insensitive)
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	err = db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).Take(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ExistsByEmail checks if email exists
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	err = db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", domain.NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

// ExistsByMatricNumber checks if matric number exists
func (r *userRepository) ExistsByMatricNumber(ctx context.Context, matric string) (bool, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return false, err
	}
	var count int64
	err = db.WithContext(ctx).Model(&models.User{}).
		Where("matric_number = ?", domain.NormalizeMatric(matric)).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields updates selected columns of a user (last writer wins)
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return err
	}
	return translate(db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields).Error)
}

// List lists users with pagination, optionally filtered by role
func (r *userRepository) List(ctx context.Context, role domain.Role, offset, limit int) ([]*models.User, int64, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*models.User
	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// CountByRole counts users holding a role
func (r *userRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	db, err := r.conn.DB(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

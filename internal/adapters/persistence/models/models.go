package models

import (
	"time"

	"student-portal/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Identity
// ============================================================

// User represents users table
type User struct {
	ID               uint                    `gorm:"primaryKey" json:"id"`
	FullName         string                  `gorm:"size:150;not null" json:"fullName"`
	Email            string                  `gorm:"uniqueIndex;size:191;not null" json:"email"`
	MatricNumber     string                  `gorm:"uniqueIndex;size:50;not null" json:"matricNumber"`
	PasswordHash     string                  `gorm:"size:255;not null" json:"-"`
	Role             domain.Role             `gorm:"size:20;default:'student';index" json:"role"`
	MembershipStatus domain.MembershipStatus `gorm:"size:20;default:'non-member'" json:"membershipStatus"`
	IsActive         bool                    `gorm:"default:true" json:"isActive"`
	CreatedAt        time.Time               `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time               `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID               uint                    `json:"id"`
	FullName         string                  `json:"fullName"`
	Email            string                  `json:"email"`
	MatricNumber     string                  `json:"matricNumber"`
	Role             domain.Role             `json:"role"`
	MembershipStatus domain.MembershipStatus `json:"membershipStatus"`
	IsActive         bool                    `json:"isActive"`
	CreatedAt        time.Time               `json:"createdAt"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:               u.ID,
		FullName:         u.FullName,
		Email:            u.Email,
		MatricNumber:     u.MatricNumber,
		Role:             u.Role,
		MembershipStatus: u.MembershipStatus,
		IsActive:         u.IsActive,
		CreatedAt:        u.CreatedAt,
	}
}

// Claims builds the session claim set for this user.
func (u *User) Claims() domain.Claims {
	return domain.Claims{
		ID:               u.ID,
		Email:            u.Email,
		Role:             u.Role,
		MembershipStatus: u.MembershipStatus,
		FullName:         u.FullName,
		MatricNumber:     u.MatricNumber,
	}
}

// ============================================================
// Roster (externally maintained, upserted by reconciliation)
// ============================================================

// StudentRosterEntry represents student_roster table
type StudentRosterEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:150" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email"`
	MatricNumber string    `gorm:"index;size:50;not null" json:"matricNumber"`
	Department   string    `gorm:"size:150" json:"department"`
	Level        string    `gorm:"size:20" json:"level"`
	Member       bool      `gorm:"not null;default:false" json:"member"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (StudentRosterEntry) TableName() string {
	return "student_roster"
}

// ============================================================
// OTP
// ============================================================

// OTPRecord represents otp_records table.
// Only the most recent unverified, unexpired record per email is active.
type OTPRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"size:191;not null;index:idx_otp_email_created,priority:1" json:"email"`
	Code       string     `gorm:"size:12;not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expiresAt"`
	Verified   bool       `gorm:"not null;default:false" json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index:idx_otp_email_created,priority:2" json:"createdAt"`
}

func (OTPRecord) TableName() string {
	return "otp_records"
}

// IsExpired reports whether the code window has passed at t.
func (o *OTPRecord) IsExpired(t time.Time) bool {
	return t.After(o.ExpiresAt)
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&StudentRosterEntry{},
		&OTPRecord{},
	)
}

package domain

import (
	"strings"
	"time"
)

// Role represents user role in the system
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// MembershipStatus represents association membership of a student
type MembershipStatus string

const (
	MembershipMember    MembershipStatus = "member"
	MembershipNonMember MembershipStatus = "non-member"
	MembershipPending   MembershipStatus = "pending"
)

// Claims is the identity snapshot embedded in a session at mint time.
// Role and membership are trusted as of mint time until the session expires.
type Claims struct {
	ID               uint             `json:"id"`
	Email            string           `json:"email"`
	Role             Role             `json:"role"`
	MembershipStatus MembershipStatus `json:"membershipStatus"`
	FullName         string           `json:"fullName"`
	MatricNumber     string           `json:"matricNumber"`
}

// Session is a minted session token and its absolute expiry.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Claims    Claims    `json:"user"`
}

// RequireRole checks claims against an allow-list of roles.
// Missing claims is Unauthorized; a role outside the list is Forbidden.
func RequireRole(claims *Claims, allowed ...Role) error {
	if claims == nil {
		return ErrSessionMissing
	}
	for _, r := range allowed {
		if claims.Role == r {
			return nil
		}
	}
	return ErrRoleForbidden
}

// NormalizeEmail lower-cases and trims an email for case-insensitive matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeMatric upper-cases and trims a matric number.
func NormalizeMatric(matric string) string {
	return strings.ToUpper(strings.TrimSpace(matric))
}

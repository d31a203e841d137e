package password

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost is the default bcrypt cost
	DefaultCost = 12

	// MinLength is the minimum accepted password length
	MinLength = 8

	// maxLength is bcrypt's input limit in bytes
	maxLength = 72
)

// Hasher hashes passwords with a fixed bcrypt cost
type Hasher struct {
	cost int
}

// NewHasher creates a hasher; cost outside bcrypt's range falls back to DefaultCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash hashes a password using bcrypt
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func (h *Hasher) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Hash hashes a password using the default cost
func Hash(password string) (string, error) {
	return NewHasher(DefaultCost).Hash(password)
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	return NewHasher(DefaultCost).Verify(password, hash)
}

// ValidatePassword checks if password meets requirements
func ValidatePassword(password string) bool {
	if len(password) < MinLength || len(password) > maxLength {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

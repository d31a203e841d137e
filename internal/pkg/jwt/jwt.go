package jwt

import (
	"errors"
	"strconv"
	"time"

	"student-portal/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "student-portal"

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims represents the session JWT claims
type Claims struct {
	UserID           uint                    `json:"uid"`
	Email            string                  `json:"email"`
	Role             domain.Role             `json:"role"`
	MembershipStatus domain.MembershipStatus `json:"membership"`
	FullName         string                  `json:"name"`
	MatricNumber     string                  `json:"matric"`
	jwt.RegisteredClaims
}

// Domain converts token claims to the domain claim set
func (c *Claims) Domain() domain.Claims {
	return domain.Claims{
		ID:               c.UserID,
		Email:            c.Email,
		Role:             c.Role,
		MembershipStatus: c.MembershipStatus,
		FullName:         c.FullName,
		MatricNumber:     c.MatricNumber,
	}
}

// GenerateSessionToken signs a session token that expires at issuedAt+ttl.
// The expiry is fixed at mint time.
func GenerateSessionToken(claims domain.Claims, secret string, issuedAt time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := issuedAt.Add(ttl)
	tc := Claims{
		UserID:           claims.ID,
		Email:            claims.Email,
		Role:             claims.Role,
		MembershipStatus: claims.MembershipStatus,
		FullName:         claims.FullName,
		MatricNumber:     claims.MatricNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(claims.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateSessionToken validates a session token at time now and returns claims
func ValidateSessionToken(tokenString, secret string, now time.Time) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenInvalid
}

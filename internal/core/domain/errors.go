package domain

import (
	"errors"
	"net/http"
)

// Error kinds. Every error returned by the core unwraps to exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource conflict")
	ErrExpired            = errors.New("resource expired")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Error is a domain error carrying a client-safe message and its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError creates a domain error of the given kind.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Credential errors
var (
	ErrInvalidCredentials = NewError(ErrUnauthorized, "invalid email or password")
	ErrUserSuspended      = NewError(ErrAccountSuspended, "account has been suspended")
	ErrUserNotFound       = NewError(ErrNotFound, "user not found")
	ErrEmailTaken         = NewError(ErrConflict, "email already registered")
	ErrMatricTaken        = NewError(ErrConflict, "matric number already registered")
	ErrInvalidRole        = NewError(ErrValidation, "role must be student or admin")
	ErrInvalidMembership  = NewError(ErrValidation, "membership status must be member or non-member")
)

// Session errors
var (
	ErrSessionMissing = NewError(ErrUnauthorized, "session required")
	ErrSessionInvalid = NewError(ErrUnauthorized, "invalid or expired session")
	ErrRoleForbidden  = NewError(ErrForbidden, "you don't have permission to access this resource")
)

// OTP errors
var (
	ErrOTPNotFound    = NewError(ErrNotFound, "no verification code found, please request a new one")
	ErrOTPExpired     = NewError(ErrExpired, "verification code has expired, please request a new one")
	ErrOTPLockedOut   = NewError(ErrTooManyRequests, "too many incorrect attempts, please request a new code")
	ErrOTPInvalidCode = NewError(ErrValidation, "incorrect verification code")
	ErrOTPCooldown    = NewError(ErrTooManyRequests, "please wait before requesting another code")
	ErrOTPDelivery    = NewError(ErrExternalService, "failed to deliver verification code")
)

// Registration errors
var (
	ErrStudentNotOnRoster = NewError(ErrNotFound, "email and matric number do not match any student on the roster")
	ErrEmailNotVerified   = NewError(ErrValidation, "email address has not been verified")
)

// Role administration errors
var (
	ErrAlreadyAdmin     = NewError(ErrConflict, "user is already an admin")
	ErrSuperAdminTarget = NewError(ErrForbidden, "super admin accounts cannot be modified")
	ErrSelfDemotion     = NewError(ErrForbidden, "you cannot demote yourself")
	ErrSelfSuspension   = NewError(ErrForbidden, "you cannot change your own status")
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrAccountSuspended, http.StatusForbidden},
	{ErrForbidden, http.StatusForbidden},
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrExpired, http.StatusGone},
	{ErrTooManyRequests, http.StatusTooManyRequests},
	{ErrExternalService, http.StatusInternalServerError},
	{ErrServiceUnavailable, http.StatusServiceUnavailable},
}

// StatusCode maps an error to its HTTP status code.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, s := range statusByKind {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show to clients.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	for _, s := range statusByKind {
		if errors.Is(err, s.kind) {
			return s.kind.Error()
		}
	}
	return "internal server error"
}

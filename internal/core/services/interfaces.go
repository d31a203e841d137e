package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"strings"
	"time"

	"student-portal/internal/core/domain"
)

// Mailer delivers verification codes. Implemented by mail.SMTPMailer.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

// Clock returns the current time
type Clock func() time.Time

func (c Clock) orDefault() Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// storeError reports a record-store failure. Timeouts and network failures
// are ErrServiceUnavailable; anything else is an external service error.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, context.Canceled) {
		return err
	}
	if unreachable(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrServiceUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrExternalService, err)
}

// unreachable reports whether err means the store could not be reached in time
func unreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func validationError(msg string) error {
	return domain.NewError(domain.ErrValidation, msg)
}

// validateEmail checks that s is a bare address (no display name)
func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return validationError("email is required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return validationError("email is not a valid address")
	}
	return nil
}

func validateMatric(s string) error {
	if strings.TrimSpace(s) == "" {
		return validationError("matric number is required")
	}
	return nil
}

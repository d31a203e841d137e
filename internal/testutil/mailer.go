package testutil

import (
	"context"
	"io"
	"sync"
	"time"

	"student-portal/internal/pkg/logger"
)

// SentCode is one delivered verification code
type SentCode struct {
	To   string
	Code string
	TTL  time.Duration
}

// Mailer records delivered codes; set Err to simulate delivery failure
type Mailer struct {
	mu   sync.Mutex
	Sent []SentCode
	Err  error
}

func (m *Mailer) SendOTP(_ context.Context, to, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentCode{To: to, Code: code, TTL: ttl})
	return nil
}

// LastCode returns the most recent code sent to an address
func (m *Mailer) LastCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].To == to {
			return m.Sent[i].Code
		}
	}
	return ""
}

// NoopLogger discards all output
func NoopLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, 8, "text")
}

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

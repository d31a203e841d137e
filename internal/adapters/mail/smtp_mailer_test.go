package mail

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"student-portal/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter(io.Discard, 0, "text")
}

func TestSMTPMailer_SendOTP(t *testing.T) {
	d := &fakeDialer{}
	m := NewSMTPMailerWithDialer(d, "noreply@portal.test", testLogger())

	err := m.SendOTP(context.Background(), "s@x.com", "123456", 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"s@x.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"noreply@portal.test"}, msg.GetHeader("From"))
}

func TestSMTPMailer_DialFailure(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	m := NewSMTPMailerWithDialer(d, "noreply@portal.test", testLogger())

	err := m.SendOTP(context.Background(), "s@x.com", "123456", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	d := &fakeDialer{}
	m := NewSMTPMailerWithDialer(d, "noreply@portal.test", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.SendOTP(ctx, "s@x.com", "123456", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.sent)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "1 minute", humanize(time.Minute))
	assert.Equal(t, "10 minutes", humanize(10*time.Minute))
	assert.Equal(t, "1m30s", humanize(90*time.Second))
}

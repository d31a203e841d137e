package services

import (
	"context"
	"testing"
	"time"

	"student-portal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronService_SweepOTP(t *testing.T) {
	f := newFixture(t)
	_, err := f.otp.Issue(context.Background(), "s@x.com")
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)

	c := NewCronService(f.otp, "@every 1h", testutil.NoopLogger())
	c.SweepOTP()

	assert.Empty(t, f.otps.Records("s@x.com"))
}

func TestCronService_InvalidSchedule(t *testing.T) {
	f := newFixture(t)
	c := NewCronService(f.otp, "not a schedule", testutil.NoopLogger())
	assert.Error(t, c.Start())
}

func TestCronService_StartStop(t *testing.T) {
	f := newFixture(t)
	c := NewCronService(f.otp, "@every 1h", testutil.NoopLogger())
	require.NoError(t, c.Start())
	c.Stop()
}

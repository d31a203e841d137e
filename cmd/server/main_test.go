package main

import (
	"testing"
	"time"

	"student-portal/internal/config"
	"student-portal/internal/core/domain"
	"student-portal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReturnsStoreErrorInsteadOfExiting(t *testing.T) {
	cfg := &config.Config{
		AppMode: "dev",
		Port:    "0",
		Database: config.DatabaseConfig{
			// nothing listens on port 1
			DSN:            "portal:portal@tcp(127.0.0.1:1)/student_portal?timeout=200ms",
			ConnectTimeout: 2 * time.Second,
			MaxIdleConns:   1,
			MaxOpenConns:   1,
			ConnMaxLife:    time.Minute,
		},
	}

	err := run(cfg, testutil.NoopLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

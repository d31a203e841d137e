package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"student-portal/internal/adapters/persistence/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOTPRecord(t *testing.T) {
	rec, err := parseOTPRecord(map[string]string{
		"id":          "9",
		"email":       "ada@uni.edu",
		"code":        "123456",
		"expires_at":  "1740820200000",
		"verified":    "1",
		"verified_at": "1740819900000",
		"attempts":    "2",
		"created_at":  "1740819600000",
	})
	require.NoError(t, err)
	assert.Equal(t, uint(9), rec.ID)
	assert.True(t, rec.Verified)
	assert.Equal(t, 2, rec.Attempts)
	require.NotNil(t, rec.VerifiedAt)
	assert.Equal(t, int64(1740819900000), rec.VerifiedAt.UnixMilli())

	_, err = parseOTPRecord(map[string]string{"id": "x"})
	assert.Error(t, err)
}

func newRedisRepo(t *testing.T) OTPRepository {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })
	return NewRedisOTPRepository(client, time.Hour)
}

func TestRedisOTPRepository_Lifecycle(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now()
	email := "redis-" + now.Format("150405.000000") + "@uni.edu"
	t.Cleanup(func() { _ = repo.DeleteByEmail(ctx, email) })

	first := &models.OTPRecord{Email: email, Code: "111111", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, first))
	second := &models.OTPRecord{Email: email, Code: "222222", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, second))

	latest, err := repo.GetLatestByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// the superseded record no longer exists
	outcome, err := repo.ConsumeAttempt(ctx, first, "111111", 5, now)
	require.NoError(t, err)
	assert.Equal(t, AttemptMissing, outcome)

	outcome, err = repo.ConsumeAttempt(ctx, second, "000000", 5, now)
	require.NoError(t, err)
	assert.Equal(t, AttemptMismatch, outcome)

	outcome, err = repo.ConsumeAttempt(ctx, second, "222222", 5, now)
	require.NoError(t, err)
	assert.Equal(t, AttemptVerified, outcome)

	outcome, err = repo.ConsumeAttempt(ctx, second, "222222", 5, now)
	require.NoError(t, err)
	assert.Equal(t, AttemptAlreadyVerified, outcome)

	latest, err = repo.GetLatestByEmail(ctx, email)
	require.NoError(t, err)
	assert.True(t, latest.Verified)
	assert.Equal(t, 1, latest.Attempts)
	require.NotNil(t, latest.VerifiedAt)

	outcome, err = repo.ConsumeAttempt(ctx, second, "222222", 5, now.Add(11*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, AttemptExpired, outcome, "a verified record stops matching once expired")
}

func TestRedisOTPRepository_Lockout(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()
	now := time.Now()
	email := "lock-" + now.Format("150405.000000") + "@uni.edu"
	t.Cleanup(func() { _ = repo.DeleteByEmail(ctx, email) })

	rec := &models.OTPRecord{Email: email, Code: "123456", ExpiresAt: now.Add(time.Minute), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, rec))

	for i := 0; i < 3; i++ {
		outcome, err := repo.ConsumeAttempt(ctx, rec, "000000", 3, now)
		require.NoError(t, err)
		assert.Equal(t, AttemptMismatch, outcome)
	}
	outcome, err := repo.ConsumeAttempt(ctx, rec, "123456", 3, now)
	require.NoError(t, err)
	assert.Equal(t, AttemptLocked, outcome)

	outcome, err = repo.ConsumeAttempt(ctx, rec, "123456", 3, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, AttemptExpired, outcome, "expiry is reported before lockout")

	require.NoError(t, repo.Discard(ctx, rec))
	_, err = repo.GetLatestByEmail(ctx, email)
	assert.ErrorIs(t, err, ErrNotFound)
}

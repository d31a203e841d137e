package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"student-portal/internal/adapters/persistence/models"
	"student-portal/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyOTPPrefix   = "otp:code:"
	keyOTPSequence = "otp:seq"
)

// consumeScript applies one verification attempt atomically.
// Return values line up with AttemptOutcome.
var consumeScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'id', 'code', 'expires_at', 'verified', 'attempts')
if not h[1] or h[1] ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[4]) > tonumber(h[3]) then
  return 4
end
if h[4] == '1' then
  return 5
end
if tonumber(h[5]) >= tonumber(ARGV[3]) then
  return 3
end
if h[2] == ARGV[2] then
  redis.call('HSET', KEYS[1], 'verified', '1', 'verified_at', ARGV[4])
  return 1
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return 2
`)

var discardScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'id') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// redisOTPRepository keeps exactly one record per email in an expiring hash.
// Issuing a new code overwrites the previous one, which is how superseding
// works here.
type redisOTPRepository struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisOTPRepository creates an OTP repository backed by Redis.
// retention is how long a record outlives its expiry (verified codes stay
// readable for the registration window).
func NewRedisOTPRepository(client *redis.Client, retention time.Duration) OTPRepository {
	return &redisOTPRepository{client: client, retention: retention}
}

func otpKey(email string) string {
	return keyOTPPrefix + domain.NormalizeEmail(email)
}

// Create stores a newly issued code, replacing any previous one
func (r *redisOTPRepository) Create(ctx context.Context, record *models.OTPRecord) error {
	id, err := r.client.Incr(ctx, keyOTPSequence).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate otp id: %w", err)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.ID = uint(id)
	record.Email = domain.NormalizeEmail(record.Email)

	key := otpKey(record.Email)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"id":         strconv.FormatUint(uint64(record.ID), 10),
		"email":      record.Email,
		"code":       record.Code,
		"expires_at": record.ExpiresAt.UnixMilli(),
		"verified":   "0",
		"attempts":   record.Attempts,
		"created_at": record.CreatedAt.UnixMilli(),
	})
	pipe.PExpireAt(ctx, key, record.ExpiresAt.Add(r.retention))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

// GetLatestByEmail returns the current record for an email
func (r *redisOTPRepository) GetLatestByEmail(ctx context.Context, email string) (*models.OTPRecord, error) {
	fields, err := r.client.HGetAll(ctx, otpKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read otp: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return parseOTPRecord(fields)
}

// ConsumeAttempt runs the attempt script against the record's key
func (r *redisOTPRepository) ConsumeAttempt(ctx context.Context, record *models.OTPRecord, code string, maxAttempts int, now time.Time) (AttemptOutcome, error) {
	res, err := consumeScript.Run(ctx, r.client,
		[]string{otpKey(record.Email)},
		strconv.FormatUint(uint64(record.ID), 10), code, maxAttempts, now.UnixMilli(),
	).Int()
	if err != nil {
		return AttemptMissing, fmt.Errorf("failed to consume otp attempt: %w", err)
	}
	return AttemptOutcome(res), nil
}

// Discard removes the record if it is still the current one
func (r *redisOTPRepository) Discard(ctx context.Context, record *models.OTPRecord) error {
	return discardScript.Run(ctx, r.client,
		[]string{otpKey(record.Email)},
		strconv.FormatUint(uint64(record.ID), 10),
	).Err()
}

// ExpireOthers is a no-op: a single key per email already supersedes
func (r *redisOTPRepository) ExpireOthers(context.Context, string, uint, time.Time) error {
	return nil
}

// DeleteByEmail deletes the record for an email
func (r *redisOTPRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.client.Del(ctx, otpKey(email)).Err()
}

// DeleteExpiredBefore is handled by key TTLs
func (r *redisOTPRepository) DeleteExpiredBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func parseOTPRecord(fields map[string]string) (*models.OTPRecord, error) {
	id, err := strconv.ParseUint(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid otp id %q: %w", fields["id"], err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid otp expiry: %w", err)
	}
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("invalid otp attempts: %w", err)
	}
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)

	record := &models.OTPRecord{
		ID:        uint(id),
		Email:     fields["email"],
		Code:      fields["code"],
		ExpiresAt: time.UnixMilli(expiresAt),
		Verified:  fields["verified"] == "1",
		Attempts:  attempts,
		CreatedAt: time.UnixMilli(createdAt),
	}
	if v, ok := fields["verified_at"]; ok && v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			t := time.UnixMilli(ms)
			record.VerifiedAt = &t
		}
	}
	return record, nil
}

package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"student-portal/internal/core/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func mockOpener(t *testing.T, calls *int32, delay time.Duration) Opener {
	return func(ctx context.Context) (*gorm.DB, error) {
		atomic.AddInt32(calls, 1)
		time.Sleep(delay)
		sqlDB, _, err := sqlmock.New(sqlmock.MonitorPingsOption(false))
		if err != nil {
			return nil, err
		}
		t.Cleanup(func() { sqlDB.Close() })
		return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	}
}

func TestDatabase_ConnectsOnce(t *testing.T) {
	var calls int32
	d := NewDatabaseWithOpener(mockOpener(t, &calls, 20*time.Millisecond), time.Second, nil)

	var wg sync.WaitGroup
	results := make([]*gorm.DB, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := d.DB(context.Background())
			assert.NoError(t, err)
			results[i] = db
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, db := range results {
		assert.Same(t, results[0], db)
	}

	again, err := d.DB(context.Background())
	require.NoError(t, err)
	assert.Same(t, results[0], again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDatabase_FailureNotCached(t *testing.T) {
	var calls int32
	fail := true
	d := NewDatabaseWithOpener(func(ctx context.Context) (*gorm.DB, error) {
		if fail {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("connection refused")
		}
		return mockOpener(t, &calls, 0)(ctx)
	}, time.Second, nil)

	_, err := d.DB(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	fail = false
	db, err := d.DB(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDatabase_CallerCancellation(t *testing.T) {
	var calls int32
	d := NewDatabaseWithOpener(mockOpener(t, &calls, 200*time.Millisecond), time.Second, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := d.DB(ctx)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)

	// the shared attempt keeps going for everyone else
	db, err := d.DB(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

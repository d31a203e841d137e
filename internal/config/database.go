package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"student-portal/internal/core/domain"
	"student-portal/internal/pkg/logger"

	"golang.org/x/sync/singleflight"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Opener opens a record-store connection
type Opener func(ctx context.Context) (*gorm.DB, error)

// Database is the process-wide record-store handle.
// The first caller of DB triggers the connection; concurrent callers share
// that in-flight attempt. A failed attempt is not cached, so the next call
// retries. Once established the connection lives for the process lifetime.
type Database struct {
	open    Opener
	timeout time.Duration
	log     *logger.Logger

	group singleflight.Group
	mu    sync.RWMutex
	db    *gorm.DB
}

// NewDatabase creates a lazily connecting MySQL handle
func NewDatabase(cfg *Config, log *logger.Logger) *Database {
	return NewDatabaseWithOpener(mysqlOpener(cfg), cfg.Database.ConnectTimeout, log)
}

// NewDatabaseWithOpener creates a handle around a custom opener
func NewDatabaseWithOpener(open Opener, timeout time.Duration, log *logger.Logger) *Database {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Database{open: open, timeout: timeout, log: log}
}

// DB returns the shared connection, connecting on first use.
// Connection failures are reported as domain.ErrServiceUnavailable.
func (d *Database) DB(ctx context.Context) (*gorm.DB, error) {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	ch := d.group.DoChan("connect", func() (interface{}, error) {
		d.mu.RLock()
		existing := d.db
		d.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// detached from any single caller so one cancelled request
		// doesn't fail the attempt shared by the others
		connectCtx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		opened, err := d.open(connectCtx)
		if err != nil {
			return nil, err
		}

		d.mu.Lock()
		d.db = opened
		d.mu.Unlock()

		if d.log != nil {
			d.log.Info("database connected")
		}
		return opened, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			if d.log != nil {
				d.log.Error("database connection failed", "error", res.Err)
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, res.Err)
		}
		return res.Val.(*gorm.DB), nil
	}
}

// HealthCheck pings the database if connected
func (d *Database) HealthCheck(ctx context.Context) error {
	db, err := d.DB(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	d.db = nil
	return sqlDB.Close()
}

// mysqlOpener opens and pings a MySQL connection pool
func mysqlOpener(cfg *Config) Opener {
	return func(ctx context.Context) (*gorm.DB, error) {
		// Configure GORM logger based on mode
		var gormLogger gormlogger.Interface
		if cfg.IsDev() {
			gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
		} else {
			gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
		}

		db, err := gorm.Open(mysql.Open(cfg.Database.DSN), &gorm.Config{
			Logger:                 gormLogger,
			SkipDefaultTransaction: true,
			TranslateError:         true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}

		// Connection pool settings
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLife)

		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		return db, nil
	}
}

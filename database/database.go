package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/logger"
)

// DB is an open test database.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

// Open connects with the dialector selected by cfg.Driver. A database that
// does not answer a ping is retried cfg.MaxRetries times with a linear
// backoff.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("database")
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	slow, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, slow, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		db, err := connect(ctx, dialector, gormCfg, cfg)
		if err == nil {
			log.Debug("connected", logger.Fields("driver", cfg.Driver, "attempt", attempt))
			return &DB{GormDB: db, log: log}, nil
		}
		lastErr = err
		if attempt == cfg.MaxRetries {
			break
		}
		backoff := time.Duration(attempt) * 500 * time.Millisecond
		log.Warn("connect failed, retrying", logger.Fields("attempt", attempt, logger.FieldError, err.Error(), "backoff", backoff.String()))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect %s: %w", cfg.Driver, ctx.Err())
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("connect %s after %d attempts: %w", cfg.Driver, cfg.MaxRetries, lastErr)
}

func connect(ctx context.Context, dialector gorm.Dialector, gormCfg *gorm.Config, cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if d, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(d)
	}
	return db, nil
}

// Driver is the gorm dialector name, sqlite or postgres.
func (d *DB) Driver() string { return d.GormDB.Dialector.Name() }

// Close releases the connection pool; later calls do nothing.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.closed = true
	return sqlDB.Close()
}

func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *DB) WithContext(ctx context.Context) *gorm.DB { return d.GormDB.WithContext(ctx) }

// TransactionFunc runs inside WithTransaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction runs fn in one write transaction. An error or a panic
// rolls back everything fn wrote.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	return d.GormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			d.log.Debug("transaction rolled back", logger.Fields(logger.FieldError, err.Error()))
			return err
		}
		return nil
	})
}

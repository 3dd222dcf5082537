package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/database/migration"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/testutil"
)

var dbSeq atomic.Int64

// Component is a test database backed by a private in-memory SQLite database.
// It implements both component.Component and testutil.TestComponent.
type Component struct {
	db         *database.DB
	log        *logger.Logger
	migrations []migration.Migration
	started    bool
	mu         sync.RWMutex
}

var _ component.Component = (*Component)(nil)
var _ testutil.TestComponent = (*Component)(nil)

// NewComponent creates a new test database component.
func NewComponent() *Component {
	return &Component{log: logger.Nop()}
}

// WithMigrations registers schema migrations run on Start.
func (c *Component) WithMigrations(migrations ...migration.Migration) *Component {
	c.migrations = append(c.migrations, migrations...)
	return c
}

// WithLogger replaces the default no-op logger.
func (c *Component) WithLogger(log *logger.Logger) *Component {
	c.log = log
	return c
}

// DB returns the underlying *gorm.DB, or nil if not started.
func (c *Component) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil
	}
	return c.db.GormDB
}

// Database returns the wrapped database handle, or nil if not started.
func (c *Component) Database() *database.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string {
	return "database-test"
}

// Start opens a fresh in-memory database and runs the registered migrations.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return fmt.Errorf("component already started")
	}

	cfg := database.Config{
		Enabled:  true,
		Driver:   database.DriverSQLite,
		DSN:      fmt.Sprintf("file:fixturekit_test_%d?mode=memory&cache=shared", dbSeq.Add(1)),
		LogLevel: "silent",
	}
	db, err := database.Open(ctx, cfg, c.log)
	if err != nil {
		return fmt.Errorf("failed to open test database: %w", err)
	}

	if len(c.migrations) > 0 {
		if _, err := migration.NewRunner(db.GormDB, c.log).Add(c.migrations...).Up(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("migrate test database: %w", err)
		}
	}

	c.db = db
	c.started = true
	return nil
}

// Stop closes the database; the in-memory data is gone afterwards.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || c.db == nil {
		return nil
	}
	c.started = false
	return c.db.Close()
}

// Health returns the health status of the test database.
func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started || c.db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not started",
		}
	}
	if err := c.db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Reset clears every user table while preserving the schema.
func (c *Component) Reset(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return fmt.Errorf("component not started")
	}
	return c.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		tables, err := dataTables(tx)
		if err != nil {
			return err
		}
		for _, table := range tables {
			if err := database.Truncate(tx, table); err != nil {
				return err
			}
		}
		return nil
	})
}

// Snapshot captures the rows of every user table.
func (c *Component) Snapshot(ctx context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.started {
		return nil, fmt.Errorf("component not started")
	}

	snapshot := make(map[string][]database.Row)
	db := c.db.WithContext(ctx)
	tables, err := dataTables(db)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		rows, err := database.Select(db, table, nil)
		if err != nil {
			return nil, err
		}
		snapshot[table] = rows
	}
	return snapshot, nil
}

// Restore returns the database to a previously captured snapshot.
func (c *Component) Restore(ctx context.Context, snap interface{}) error {
	snapshot, ok := snap.(map[string][]database.Row)
	if !ok {
		return fmt.Errorf("invalid snapshot type: %T", snap)
	}
	if err := c.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset before restore: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		for table, rows := range snapshot {
			if err := database.Insert(tx, table, rows); err != nil {
				return err
			}
		}
		return nil
	})
}

// dataTables lists user tables, leaving out migration bookkeeping.
func dataTables(db *gorm.DB) ([]string, error) {
	tables, err := db.Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	out := tables[:0]
	for _, t := range tables {
		if t != "schema_migrations" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

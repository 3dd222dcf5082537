// Package migration applies ordered GORM migrations tracked in a
// schema_migrations table.
package migration

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/logger"
)

// Migration describes a single GORM-based schema migration.
type Migration struct {
	ID          string
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// appliedMigration is the schema_migrations row.
type appliedMigration struct {
	ID        string    `gorm:"primaryKey;size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (appliedMigration) TableName() string { return "schema_migrations" }

// Runner applies GORM-based migrations tracked in a schema_migrations table.
type Runner struct {
	db         *gorm.DB
	log        *logger.Logger
	migrations []Migration
}

// NewRunner binds a runner to db. log may be nil.
func NewRunner(db *gorm.DB, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		db:  db,
		log: log.WithComponent("migration"),
	}
}

// Add registers migrations to be applied, in order.
func (r *Runner) Add(migrations ...Migration) *Runner {
	r.migrations = append(r.migrations, migrations...)
	return r
}

// Up applies all pending migrations in order and returns the ids it applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&appliedMigration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []string
	for _, m := range r.migrations {
		done, err := r.isApplied(db, m.ID)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if done {
			r.log.Debug("Migration already applied", map[string]interface{}{"id": m.ID})
			continue
		}

		r.log.Info("Applying migration", map[string]interface{}{
			"id":          m.ID,
			"description": m.Description,
		})
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&appliedMigration{ID: m.ID}).Error
		}); err != nil {
			return applied, fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
		applied = append(applied, m.ID)
	}
	return applied, nil
}

// Down reverts applied migrations in reverse order.
func (r *Runner) Down(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&appliedMigration{}) {
		return nil
	}
	for i := len(r.migrations) - 1; i >= 0; i-- {
		m := r.migrations[i]
		done, err := r.isApplied(db, m.ID)
		if err != nil {
			return err
		}
		if !done || m.Down == nil {
			continue
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&appliedMigration{ID: m.ID}).Error
		}); err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", m.ID, err)
		}
		r.log.Info("Migration reverted", map[string]interface{}{"id": m.ID})
	}
	return nil
}

// Applied lists the ids recorded in schema_migrations.
func (r *Runner) Applied(ctx context.Context) ([]string, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(&appliedMigration{}) {
		return nil, nil
	}
	var ids []string
	err := db.Model(&appliedMigration{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *Runner) isApplied(db *gorm.DB, id string) (bool, error) {
	var count int64
	err := db.Model(&appliedMigration{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

package database

import (
	"context"
	"fmt"

	"github.com/kbukum/fixturekit/component"
	"github.com/kbukum/fixturekit/logger"
)

// Component opens the configured test database on Start.
type Component struct {
	cfg Config
	log *logger.Logger
	db  *DB
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Component{cfg: cfg, log: log}
}

// DB is nil until Start succeeds.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	if c.db != nil {
		return nil
	}
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("open %s database: %w", c.cfg.Driver, err)
	}
	c.db = db
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	db := c.db
	c.db = nil
	return db.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	switch {
	case c.db == nil:
		h.Message = "not started"
	case c.db.PingContext(ctx) != nil:
		h.Message = "ping failed"
	default:
		h.Status = component.StatusHealthy
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "test database",
		Type:    c.cfg.Driver,
		Details: fmt.Sprintf("pool=%d/%d log=%s", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns, c.cfg.LogLevel),
	}
}

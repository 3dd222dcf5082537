package processor

import (
	"context"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// Table replaces whole tables with fixture rows.
//
//	table:
//	  catalog_category_entity:
//	    - {entity_id: 5, path: "1/5"}
//
// Tables are truncated in reverse declaration order and filled in
// declaration order. In local scope, tables the shared fixture filled are
// not truncated on apply and get the shared rows back on discard.
type Table struct {
	base
}

// NewTable creates the table processor.
func NewTable(app *framework.App, log *logger.Logger) *Table {
	return &Table{base: newBase(app, KindTable, log)}
}

type tablePlan struct {
	name    string
	rows    []database.Row
	columns map[string]bool
	keys    []string
}

// Apply truncates each table and inserts the fixture rows in one
// transaction. Tables also filled by the shared fixture are not truncated.
func (p *Table) Apply(ctx context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	tables, err := asMap(kind, data)
	if err != nil {
		return err
	}
	db, err := dbOf(ctx, p.app)
	if err != nil {
		return err
	}
	plans, err := p.plan(db, tables)
	if err != nil {
		return err
	}
	shared, _ := fixture.AsMap(p.shared(f))
	f.SetStorageData(p.key, tables.Clone())

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, t := range util.Reversed(plans) {
			if shared != nil && shared.Has(t.name) {
				continue
			}
			if err := database.Truncate(tx, t.name); err != nil {
				return err
			}
		}
		for _, t := range plans {
			if err := p.write(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return database.FromDatabase(err, kind)
	}
	p.log.Debug("tables applied", logger.Fields("tables", len(plans), logger.FieldScope, string(f.Scope())))
	return nil
}

// Discard truncates the tables again and reloads any shared rows.
func (p *Table) Discard(ctx context.Context, _ any, kind string, f fixture.Fixture) error {
	tables, ok := fixture.AsMap(f.StorageData(p.key))
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	db, err := dbOf(ctx, p.app)
	if err != nil {
		return err
	}
	plans, err := p.plan(db, tables)
	if err != nil {
		return err
	}
	var restore []tablePlan
	if shared, ok := fixture.AsMap(p.shared(f)); ok {
		for _, t := range plans {
			if shared.Has(t.name) {
				restore = append(restore, tablePlan{
					name: t.name, rows: rowsOf(shared.Value(t.name)), columns: t.columns, keys: t.keys,
				})
			}
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, t := range util.Reversed(plans) {
			if err := database.Truncate(tx, t.name); err != nil {
				return err
			}
		}
		for _, t := range restore {
			if err := p.write(tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return database.FromDatabase(err, kind)
	}
	p.log.Debug("tables discarded", logger.Fields("tables", len(plans), "restored", len(restore)))
	return nil
}

// plan introspects every table before a transaction is opened.
func (p *Table) plan(db *gorm.DB, tables *fixture.Map) ([]tablePlan, error) {
	plans := make([]tablePlan, 0, tables.Len())
	for _, name := range tables.Keys() {
		cols, err := database.ColumnNames(db, name)
		if err != nil {
			return nil, err
		}
		keys, err := database.PrimaryKeys(db, name)
		if err != nil {
			return nil, err
		}
		plans = append(plans, tablePlan{name: name, rows: rowsOf(tables.Value(name)), columns: cols, keys: keys})
	}
	return plans, nil
}

func (p *Table) write(tx *gorm.DB, t tablePlan) error {
	rows := make([]database.Row, 0, len(t.rows))
	for _, r := range t.rows {
		filtered := database.FilterColumns(r, t.columns)
		if len(filtered) < len(r) {
			p.log.Debug("unknown columns dropped", logger.Fields(logger.FieldTable, t.name))
		}
		if len(filtered) > 0 {
			rows = append(rows, filtered)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if len(t.keys) == 0 {
		return database.Insert(tx, t.name, rows)
	}
	return database.Upsert(tx, t.name, t.keys, rows)
}

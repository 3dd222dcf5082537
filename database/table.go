package database

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column describes one table column as reported by the dialect migrator.
type Column struct {
	Name       string
	PrimaryKey bool
	Nullable   bool
}

// Row is a single table row keyed by column name.
type Row = map[string]any

// HasTable reports whether table exists.
func HasTable(db *gorm.DB, table string) bool {
	return db.Migrator().HasTable(table)
}

// Columns introspects the columns of table in declaration order.
func Columns(db *gorm.DB, table string) ([]Column, error) {
	types, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("describe %s: table not found", table)
	}
	cols := make([]Column, 0, len(types))
	for _, ct := range types {
		c := Column{Name: ct.Name()}
		if pk, ok := ct.PrimaryKey(); ok {
			c.PrimaryKey = pk
		}
		if nullable, ok := ct.Nullable(); ok {
			c.Nullable = nullable
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// PrimaryKeys returns the primary key column names of table.
func PrimaryKeys(db *gorm.DB, table string) ([]string, error) {
	cols, err := Columns(db, table)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, c := range cols {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys, nil
}

// ColumnNames returns the set of column names of table.
func ColumnNames(db *gorm.DB, table string) (map[string]bool, error) {
	cols, err := Columns(db, table)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(cols))
	for _, c := range cols {
		names[c.Name] = true
	}
	return names, nil
}

// FilterColumns returns a copy of row restricted to the given columns.
func FilterColumns(row Row, columns map[string]bool) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if columns[k] {
			out[k] = v
		}
	}
	return out
}

// Truncate removes every row of table. DELETE is used instead of TRUNCATE so
// the statement participates in the surrounding transaction on every driver.
func Truncate(db *gorm.DB, table string) error {
	if err := db.Exec("DELETE FROM ?", clause.Table{Name: table}).Error; err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}

// Insert writes rows with plain INSERT statements.
func Insert(db *gorm.DB, table string, rows []Row) error {
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := db.Table(table).Create(copyRow(row)).Error; err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

// Upsert writes rows with insert-or-update semantics on the conflict columns.
// Columns not part of the conflict target are overwritten on conflict.
func Upsert(db *gorm.DB, table string, conflict []string, rows []Row) error {
	target := make([]clause.Column, len(conflict))
	inTarget := make(map[string]bool, len(conflict))
	for i, c := range conflict {
		target[i] = clause.Column{Name: c}
		inTarget[c] = true
	}

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		var update []string
		for k := range row {
			if !inTarget[k] {
				update = append(update, k)
			}
		}
		sort.Strings(update)

		onConflict := clause.OnConflict{Columns: target}
		if len(update) == 0 {
			onConflict.DoNothing = true
		} else {
			onConflict.DoUpdates = clause.AssignmentColumns(update)
		}
		if err := db.Table(table).Clauses(onConflict).Create(copyRow(row)).Error; err != nil {
			return fmt.Errorf("upsert into %s: %w", table, err)
		}
	}
	return nil
}

// DeleteIn deletes the rows of table whose column value is one of values.
func DeleteIn(db *gorm.DB, table, column string, values []any) error {
	if len(values) == 0 {
		return nil
	}
	err := db.Exec("DELETE FROM ? WHERE ? IN ?",
		clause.Table{Name: table}, clause.Column{Name: column}, values).Error
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// Select returns the rows of table matching where (all rows when where is empty).
func Select(db *gorm.DB, table string, where Row) ([]Row, error) {
	var rows []Row
	q := db.Table(table)
	if len(where) > 0 {
		q = q.Where(map[string]any(where))
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	return rows, nil
}

// Count returns the number of rows of table matching where.
func Count(db *gorm.DB, table string, where Row) (int64, error) {
	var n int64
	q := db.Table(table)
	if len(where) > 0 {
		q = q.Where(map[string]any(where))
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// gorm writes generated keys back into the map it is given.
func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

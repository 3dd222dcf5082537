package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
)

// MustExec runs raw SQL and fails the test on error.
func MustExec(t testing.TB, db *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := db.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

// MustInsert inserts rows into table and fails the test on error.
func MustInsert(t testing.TB, db *gorm.DB, table string, rows ...database.Row) {
	t.Helper()
	if err := database.Insert(db, table, rows); err != nil {
		t.Fatalf("insert into %s: %v", table, err)
	}
}

// Rows returns the rows of table matching where.
func Rows(t testing.TB, db *gorm.DB, table string, where database.Row) []database.Row {
	t.Helper()
	rows, err := database.Select(db, table, where)
	if err != nil {
		t.Fatalf("select from %s: %v", table, err)
	}
	return rows
}

// CountRows returns the number of rows in table matching where.
func CountRows(t testing.TB, db *gorm.DB, table string, where database.Row) int64 {
	t.Helper()
	n, err := database.Count(db, table, where)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// AssertRowCount fails the test if table does not hold expected rows matching where.
func AssertRowCount(t testing.TB, db *gorm.DB, table string, where database.Row, expected int64) {
	t.Helper()
	if got := CountRows(t, db, table, where); got != expected {
		t.Errorf("table %s row count (where %v) = %d, want %d", table, where, got, expected)
	}
}

// AssertTableEmpty fails the test if table has any rows.
func AssertTableEmpty(t testing.TB, db *gorm.DB, table string) {
	t.Helper()
	AssertRowCount(t, db, table, nil, 0)
}

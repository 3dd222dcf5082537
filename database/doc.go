// Package database provides a GORM-based database layer for fixturekit.
//
// The driver is chosen by configuration: "sqlite" (the default, used for
// in-memory test databases) or "postgres".
//
//	db, err := database.Open(ctx, database.Config{Enabled: true, DSN: "file:test?mode=memory&cache=shared"}, log)
//
// Besides connection management it exposes the row-level primitives fixture
// processors are written against:
//
//   - Columns / PrimaryKeys: schema introspection through the gorm migrator
//   - Truncate, Insert, Upsert, DeleteIn: transactional writers that accept
//     plain map rows
//   - FromDatabase: translation of driver errors into AppError values
//
// Subpackages:
//
//   - migration: ordered GORM migrations tracked in schema_migrations
//   - testutil: in-memory SQLite test component and row assertions
package database

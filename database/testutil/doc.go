// Package testutil provides an in-memory SQLite database for tests.
//
// Each Component opens its own named in-memory SQLite database, so tests in
// the same package never see each other's rows.
//
//	db := testutil.NewComponent().WithMigrations(framework.SchemaMigrations()...)
//	gktest.T(t).Setup(db)
//
//	testutil.MustInsert(t, db.DB(), "core_website", database.Row{"website_id": 1, "code": "base"})
//	testutil.AssertRowCount(t, db.DB(), "core_website", nil, 1)
//
// Reset, Snapshot and Restore operate on every table except schema_migrations.
package testutil

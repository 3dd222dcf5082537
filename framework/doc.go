// Package framework models the host application the fixtures run against:
// a slash-addressed configuration tree with cheap snapshots, the event
// collection, the registry, cache types, the store/website lists, index
// processes, and alias-based model resolution with mock injection.
//
// The four services that code under test reaches for globally (App, Config,
// Events, Registry) are bundled as Globals and held by a Runtime, so a test
// environment can swap them wholesale and put the originals back afterwards.
//
// SchemaMigrations installs the relational schema the services persist to.
package framework

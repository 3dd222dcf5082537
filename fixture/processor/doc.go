// Package processor holds the fixture processors, one per fixture kind:
// table, eav, attribute, scope, config, config_xml, registry, cache and
// vfs.
//
// Every processor records what it changed in the fixture's scope storage
// and refuses to apply again until that record was discarded. In local
// scope, processors consult the shared scope's record so a discard never
// removes what the shared fixture put in place.
package processor

// Package eav loads entity-attribute-value fixtures.
//
// A fixture row of an entity type expands into one entity table row, one
// value row per attribute and store, and subtype specific association rows
// (product websites, category links, stock, tier prices, configurable and
// bundle relations). Writes are upserts, so loading the same rows twice
// leaves one copy. Attribute definitions are added and removed through an
// AttributeSetup resolved per owning module.
package eav

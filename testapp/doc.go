// Package testapp substitutes a test-scoped application for the live one.
//
// An Environment builds a fresh application (configuration, event
// collection, registry), swaps it into a framework.Runtime and initializes
// it: cache allow-list, modules, global events, store lists and stored
// config, layout, test-area events and the shared fixture storage. Stop
// swaps the live globals back. Substitution guards both transitions, so
// applying twice or discarding while live is a CONSISTENCY error.
//
// Snapshots is the configuration snapshot stack the config processors
// save to and restore from.
package testapp

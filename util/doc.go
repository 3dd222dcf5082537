// Package util provides generic helpers and coercion of loosely typed
// fixture values (YAML scalars, driver results) into Go types.
package util

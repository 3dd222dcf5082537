// Package errors provides the structured error type shared by fixturekit.
// Every failure carries a machine-readable code so callers can tell a missing
// fixture file (fail the test) from a duplicate apply (abort the run).
package errors

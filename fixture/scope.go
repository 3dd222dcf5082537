package fixture

import (
	"fmt"

	apperrors "github.com/kbukum/fixturekit/errors"
)

// Scope is the lifetime tier of a fixture.
type Scope string

const (
	// ScopeLocal fixtures live for one test method.
	ScopeLocal Scope = "local"
	// ScopeShared fixtures live for one test class.
	ScopeShared Scope = "shared"
	// ScopeDefault is the pre-existing baseline.
	ScopeDefault Scope = "default"
)

// Scopes lists every valid scope, broadest first.
var Scopes = []Scope{ScopeDefault, ScopeShared, ScopeLocal}

// ParseScope validates s.
func ParseScope(s string) (Scope, error) {
	sc := Scope(s)
	if !sc.Valid() {
		return "", apperrors.InvalidInput("scope", fmt.Sprintf("unknown fixture scope %q", s))
	}
	return sc, nil
}

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLocal, ScopeShared, ScopeDefault:
		return true
	}
	return false
}

func (s Scope) String() string { return string(s) }

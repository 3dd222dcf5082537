package testapp

import (
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/framework"
)

// State is the substitution state of a runtime.
type State string

const (
	StateLive       State = "live"
	StateTestScoped State = "test_scoped"
)

// Substitution swaps the globals of a runtime for test-scoped ones and
// back. Each direction is only allowed from the matching state.
type Substitution struct {
	runtime *framework.Runtime

	mu    sync.Mutex
	state State
	saved framework.Globals
	runID string
}

// NewSubstitution creates a substitution over rt, starting live.
func NewSubstitution(rt *framework.Runtime) *Substitution {
	return &Substitution{runtime: rt, state: StateLive}
}

// State returns the current state.
func (s *Substitution) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RunID returns the id of the current test-scoped run, empty when live.
func (s *Substitution) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// ApplyTestScope installs g and remembers the live globals.
func (s *Substitution) ApplyTestScope(g framework.Globals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLive {
		return apperrors.Consistency("test scope already applied").WithDetail("run_id", s.runID)
	}
	s.saved = s.runtime.Replace(g)
	s.runID = uuid.NewString()
	s.state = StateTestScoped
	return nil
}

// DiscardTestScope puts the remembered live globals back.
func (s *Substitution) DiscardTestScope() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTestScoped {
		return apperrors.Consistency("test scope is not applied")
	}
	s.runtime.Replace(s.saved)
	s.saved = framework.Globals{}
	s.runID = ""
	s.state = StateLive
	return nil
}

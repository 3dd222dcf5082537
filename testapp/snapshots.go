package testapp

import (
	"sync"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/framework"
)

// Snapshots is a stack of configuration snapshots. Snapshots share
// structure with the live tree, so saving one is cheap.
type Snapshots struct {
	config *framework.Config

	mu    sync.Mutex
	stack []framework.ConfigSnapshot
}

// NewSnapshots creates an empty stack over cfg.
func NewSnapshots(cfg *framework.Config) *Snapshots {
	return &Snapshots{config: cfg}
}

// SaveScopeSnapshot pushes the current configuration.
func (s *Snapshots) SaveScopeSnapshot() {
	snap := s.config.Snapshot()
	s.mu.Lock()
	s.stack = append(s.stack, snap)
	s.mu.Unlock()
}

// LoadScopeSnapshot restores the top snapshot without removing it, so it
// can be restored again.
func (s *Snapshots) LoadScopeSnapshot() error {
	s.mu.Lock()
	if len(s.stack) == 0 {
		s.mu.Unlock()
		return apperrors.Consistency("no configuration snapshot saved")
	}
	top := s.stack[len(s.stack)-1]
	s.mu.Unlock()
	s.config.Restore(top)
	return nil
}

// FlushScopeSnapshot pops the top snapshot. The bottom snapshot, the state
// before any fixture ran, is never popped.
func (s *Snapshots) FlushScopeSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Depth returns the number of saved snapshots.
func (s *Snapshots) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stack)
}

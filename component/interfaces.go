package component

import "context"

// HealthStatus is the coarse state reported by Health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is a component's self-reported state.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of test infrastructure: the test
// database, the substituted application environment.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	// Stop releases what Start acquired; stopping twice is a no-op.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is the one-line summary the CLI prints for a component.
type Description struct {
	Name    string
	Type    string
	Details string
}

// Describable is implemented by components that can summarize their
// configuration without being started.
type Describable interface {
	Describe() Description
}

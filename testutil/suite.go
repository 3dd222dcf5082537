package testutil

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/testapp"
)

// Suite is one test class: the shared fixtures declared for the class are
// applied once by Start and discarded when the enclosing test ends. Cases
// created from it apply their local fixtures on top.
type Suite struct {
	env   *testapp.Environment
	class string
}

// NewSuite binds class, the name fixture declarations are registered
// under, to a started environment.
func NewSuite(env *testapp.Environment, class string) *Suite {
	return &Suite{env: env, class: class}
}

func (s *Suite) Class() string                     { return s.class }
func (s *Suite) Environment() *testapp.Environment { return s.env }

// SetUp applies the class's shared fixtures.
func (s *Suite) SetUp(ctx context.Context) error {
	engine := s.env.Engine()
	if err := engine.SetScope(fixture.ScopeShared); err != nil {
		return err
	}
	if err := engine.LoadForClass(s.class); err != nil {
		return err
	}
	return engine.Apply(ctx)
}

// TearDown discards the shared fixtures.
func (s *Suite) TearDown(ctx context.Context) error {
	engine := s.env.Engine()
	if err := engine.SetScope(fixture.ScopeShared); err != nil {
		return err
	}
	return engine.Discard(ctx)
}

// Start runs SetUp and schedules TearDown for the end of t. A partially
// applied fixture is still discarded.
func (s *Suite) Start(t testing.TB) {
	t.Helper()
	ctx := context.Background()
	t.Cleanup(func() {
		if err := s.TearDown(ctx); err != nil {
			t.Errorf("discard shared fixtures of %s: %v", s.class, err)
		}
	})
	if err := s.SetUp(ctx); err != nil {
		t.Fatalf("apply shared fixtures of %s: %v", s.class, err)
	}
}

// Case starts a test method of the suite. The method name is the last
// element of t.Name(), so subtests map to the methods declared with
// fixture.Declarations.Method.
func (s *Suite) Case(t testing.TB) *Case {
	t.Helper()
	name := t.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	c := &Case{t: t, suite: s, method: name}
	ctx := context.Background()
	t.Cleanup(func() {
		if err := c.TearDown(ctx); err != nil {
			t.Errorf("tear down %s::%s: %v", s.class, c.method, err)
		}
	})
	if err := c.SetUp(ctx); err != nil {
		t.Fatalf("set up %s::%s: %v", s.class, c.method, err)
	}
	return c
}

type registryRestore struct {
	key     string
	value   any
	present bool
}

// Case is one running test method. It implements fixture.TestCase.
type Case struct {
	t      testing.TB
	suite  *Suite
	method string

	restores []registryRestore
	replaced map[string]bool
}

var _ fixture.TestCase = (*Case)(nil)

func (c *Case) Class() string  { return c.suite.class }
func (c *Case) Method() string { return c.method }

func (c *Case) App() *framework.App     { return c.suite.env.App() }
func (c *Case) Engine() *fixture.Engine { return c.suite.env.Engine() }

// SetUp clears the event counters and applies the method's local
// fixtures.
func (c *Case) SetUp(ctx context.Context) error {
	c.App().Events().ResetDispatched()
	engine := c.Engine()
	if err := engine.SetScope(fixture.ScopeLocal); err != nil {
		return err
	}
	if err := engine.LoadByTestCase(c); err != nil {
		return err
	}
	return engine.Apply(ctx)
}

// TearDown discards the local fixtures, drops installed mocks and puts
// back every registry entry replaced through ReplaceRegistry.
func (c *Case) TearDown(ctx context.Context) error {
	engine := c.Engine()
	var errs []error
	if err := engine.SetScope(fixture.ScopeLocal); err != nil {
		errs = append(errs, err)
	} else if err := engine.Discard(ctx); err != nil {
		errs = append(errs, err)
	}

	app := c.App()
	app.Models().ResetMocks()
	registry := app.Registry()
	for i := len(c.restores) - 1; i >= 0; i-- {
		r := c.restores[i]
		if r.present {
			registry.Set(r.key, r.value)
		} else {
			registry.Unregister(r.key)
		}
	}
	c.restores, c.replaced = nil, nil
	return errors.Join(errs...)
}

// ReplaceRegistry sets key for the duration of the case. The value seen
// before the first replacement is restored on TearDown.
func (c *Case) ReplaceRegistry(key string, value any) {
	registry := c.App().Registry()
	if !c.replaced[key] {
		prev, present := registry.Lookup(key)
		c.restores = append(c.restores, registryRestore{key: key, value: prev, present: present})
		if c.replaced == nil {
			c.replaced = map[string]bool{}
		}
		c.replaced[key] = true
	}
	registry.Set(key, value)
}

// ReplaceByMock routes alias to mock until TearDown.
func (c *Case) ReplaceByMock(kind framework.MockKind, alias string, mock any) {
	c.t.Helper()
	if err := c.App().Models().ReplaceByMock(kind, alias, mock); err != nil {
		c.t.Fatalf("mock %s %s: %v", kind, alias, err)
	}
}

// LoadFixture applies additional fixture files in local scope mid-test.
// They are discarded with the rest of the case's fixtures, so it is only
// valid before anything was applied locally.
func (c *Case) LoadFixture(ctx context.Context, paths ...string) error {
	engine := c.Engine()
	for _, p := range paths {
		if err := engine.LoadYaml(p); err != nil {
			return err
		}
	}
	return engine.Apply(ctx)
}

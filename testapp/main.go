package testapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/kbukum/fixturekit/config"
	"github.com/kbukum/fixturekit/logger"
)

// Runner is what RunMain runs, normally *testing.M.
type Runner interface {
	Run() int
}

var current atomic.Pointer[Environment]

// Current returns the environment started by RunMain, nil outside it.
func Current() *Environment { return current.Load() }

// SetCurrent makes env the environment Current returns; nil clears it.
func SetCurrent(env *Environment) { current.Store(env) }

// Bootstrap loads settings when opts carries none and returns a started
// environment.
func Bootstrap(ctx context.Context, opts Options) (*Environment, error) {
	if opts.Settings == nil {
		s, err := config.Load()
		if err != nil {
			return nil, err
		}
		opts.Settings = s
	}
	if opts.Logger == nil {
		opts.Logger = logger.New(&opts.Settings.Logging, opts.Settings.Name)
	}
	env := New(opts)
	if err := env.Start(ctx); err != nil {
		return nil, err
	}
	return env, nil
}

// RunMain runs m inside a test-scoped environment and exits with its
// status. Use it from TestMain:
//
//	func TestMain(m *testing.M) { testapp.RunMain(m, testapp.Options{}) }
//
// Bootstrap failures are printed to stdout and exit with status 1.
func RunMain(m Runner, opts Options) {
	os.Exit(Main(m, opts, os.Stdout))
}

// Main is RunMain without the exit.
func Main(m Runner, opts Options, out io.Writer) int {
	ctx := context.Background()
	env, err := Bootstrap(ctx, opts)
	if err != nil {
		fmt.Fprintf(out, "fixturekit: %v\n", err)
		return 1
	}
	SetCurrent(env)
	code := m.Run()
	SetCurrent(nil)
	if err := env.Stop(ctx); err != nil {
		fmt.Fprintf(out, "fixturekit: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

package testutil

import "github.com/stretchr/testify/assert"

// AssertEventDispatched checks name was dispatched at least once since the
// case started.
func (c *Case) AssertEventDispatched(name string) bool {
	c.t.Helper()
	n := c.App().Events().DispatchedCount(name)
	return assert.Positivef(c.t, n, "event %q was not dispatched", name)
}

// AssertEventDispatchedExactly checks name was dispatched times times.
func (c *Case) AssertEventDispatchedExactly(name string, times int) bool {
	c.t.Helper()
	n := c.App().Events().DispatchedCount(name)
	return assert.Equalf(c.t, times, n, "event %q dispatch count", name)
}

func (c *Case) AssertEventNotDispatched(name string) bool {
	c.t.Helper()
	n := c.App().Events().DispatchedCount(name)
	return assert.Zerof(c.t, n, "event %q was dispatched %d times", name, n)
}

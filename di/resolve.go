package di

import "fmt"

// Resolve resolves key and asserts the instance is a T.
//
//	setup, err := di.Resolve[eav.AttributeSetup](c, "setup/eav")
func Resolve[T any](c Container, key string) (T, error) {
	var zero T
	v, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("di: %s is %T, not %T", key, v, zero)
	}
	return t, nil
}

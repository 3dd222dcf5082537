package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Int64 converts integer-like values (numbers, numeric strings, []byte) to
// int64. Floats must be whole and strings are read as base 10, so "010" is
// ten.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	case []byte:
		return Int64(string(n))
	case float32:
		return int64(n), float32(int64(n)) == n
	case float64:
		return int64(n), float64(int64(n)) == n
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
	}
	i, err := cast.ToInt64E(v)
	return i, err == nil
}

// String renders a scalar the way it would be stored in a text column:
// booleans become "1" and "0", nil becomes "".
func String(v any) string {
	switch s := v.(type) {
	case bool:
		if s {
			return "1"
		}
		return "0"
	case []byte:
		return string(s)
	}
	out, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return out
}

// Bool interprets YAML and driver truthiness. Besides the usual boolean
// spellings it accepts "yes"/"on" and any non-zero integer.
func Bool(v any) bool {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "on":
			return true
		case "no", "off", "":
			return false
		}
		v = strings.TrimSpace(s)
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		n, ok := Int64(v)
		return ok && n != 0
	}
	return b
}

// Slice wraps a scalar into a one-element slice and passes slices through.
// nil becomes an empty slice.
func Slice(v any) []any {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		return s
	case []string:
		return Map(s, func(x string) any { return x })
	case []int:
		return Map(s, func(x int) any { return x })
	case []int64:
		return Map(s, func(x int64) any { return x })
	default:
		return []any{v}
	}
}

// Strings converts a scalar or a list of scalars into strings, rendering
// each element with String.
func Strings(v any) []string {
	switch s := v.(type) {
	case nil:
		return nil
	case []string:
		return s
	case []any:
		return Map(s, String)
	case string, []byte, bool:
		return []string{String(v)}
	}
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return []string{String(v)}
	}
	return out
}

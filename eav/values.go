package eav

import (
	"strconv"
	"strings"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/util"
)

// Record is one row to upsert into Table, keyed on Conflict.
type Record struct {
	Table    string
	Conflict []string
	Row      database.Row
}

// fields returns v as a plain map when it is a mapping.
func fields(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case *fixture.Map:
		if t == nil {
			return nil, false
		}
		return t.Fields(), true
	case map[string]any:
		return t, true
	}
	return nil, false
}

// isScalar reports whether v can be written to a column as is.
func isScalar(v any) bool {
	switch v.(type) {
	case *fixture.Map, map[string]any, []any:
		return false
	}
	return true
}

// scalarColumns keeps the scalar entries of row present in columns.
func scalarColumns(row database.Row, columns map[string]bool) database.Row {
	out := database.Row{}
	for k, v := range row {
		if columns[k] && isScalar(v) {
			out[k] = v
		}
	}
	return out
}

// convertValue turns a fixture value into the stored value of attr. Labels
// of source-backed attributes become option ids; an unknown label yields
// nil and the value is dropped.
func convertValue(attr *Attribute, v any) any {
	if v == nil {
		return nil
	}
	if attr.UsesSource() {
		if list, ok := v.([]any); ok {
			ids := make([]string, 0, len(list))
			for _, item := range list {
				if id := optionValue(attr, item); id != nil {
					ids = append(ids, util.String(id))
				}
			}
			if len(ids) == 0 {
				return nil
			}
			return strings.Join(ids, ",")
		}
		return optionValue(attr, v)
	}
	switch attr.BackendType {
	case "int":
		if n, ok := util.Int64(v); ok {
			return n
		}
		return nil
	case "decimal":
		switch n := v.(type) {
		case float64:
			return n
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return nil
			}
			return f
		}
		if n, ok := util.Int64(v); ok {
			return float64(n)
		}
		return nil
	default:
		return util.String(v)
	}
}

func optionValue(attr *Attribute, v any) any {
	if n, ok := util.Int64(v); ok {
		return n
	}
	if id, ok := attr.OptionID(util.String(v)); ok {
		return id
	}
	return nil
}

// int64List converts a scalar or sequence of ids.
func int64List(v any) []int64 {
	var out []int64
	for _, item := range fixture.AsList(v) {
		if n, ok := util.Int64(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func anyList(ids []int64) []any {
	return util.Map(ids, func(id int64) any { return id })
}

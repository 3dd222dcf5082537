package processor

import (
	"context"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/util"
)

func dbOf(ctx context.Context, app *framework.App) (*gorm.DB, error) {
	if app.DB() == nil {
		return nil, apperrors.Configuration("fixture needs a database; none is configured")
	}
	return app.DB().WithContext(ctx), nil
}

// rowsOf reads a sequence of mappings as table rows; anything else is
// skipped.
func rowsOf(v any) []database.Row {
	var items []any
	switch list := v.(type) {
	case []map[string]any:
		items = util.Map(list, func(m map[string]any) any { return m })
	default:
		items = fixture.AsList(v)
	}
	var out []database.Row
	for _, item := range items {
		if r, ok := rowOf(item); ok {
			out = append(out, r)
		}
	}
	return out
}

func rowOf(v any) (database.Row, bool) {
	switch m := v.(type) {
	case *fixture.Map:
		if m == nil {
			return nil, false
		}
		return database.Row(m.Fields()), true
	case map[string]any:
		return copyRow(m), true
	}
	return nil, false
}

func copyRow(m map[string]any) database.Row {
	r := make(database.Row, len(m))
	for k, v := range m {
		r[k] = v
	}
	return r
}

// stringList reads a scalar or sequence as strings.
func stringList(v any) []string {
	return util.Strings(v)
}

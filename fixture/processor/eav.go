package processor

import (
	"context"
	"errors"
	"slices"

	"github.com/kbukum/fixturekit/eav"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// EAV loads entity fixtures keyed by entity type code.
//
//	eav:
//	  catalog_product:
//	    - {entity_id: 10, sku: ABC, website_ids: [1]}
type EAV struct {
	base
	loader *eav.Loader
}

// NewEAV creates the eav processor with the built-in entity subtypes.
func NewEAV(app *framework.App, log *logger.Logger) *EAV {
	p := &EAV{base: newBase(app, KindEAV, log)}
	p.loader = eav.NewLoader(app, p.log)
	return p
}

// Loader exposes the loader so callers can register their own subtypes.
func (p *EAV) Loader() *eav.Loader { return p.loader }

// loadedEntities is the storage record of an eav apply: entity ids per
// type in load order, with the fixture row each id came from so a broader
// scope can write it back.
type loadedEntities struct {
	types []string
	ids   map[string][]int64
	rows  map[string][]any
}

func (l *loadedEntities) has(code string, id int64) bool {
	return l != nil && slices.Contains(l.ids[code], id)
}

func (l *loadedEntities) row(code string, id int64) (any, bool) {
	if l == nil {
		return nil, false
	}
	i := slices.Index(l.ids[code], id)
	if i < 0 || i >= len(l.rows[code]) {
		return nil, false
	}
	return l.rows[code][i], true
}

func (l *loadedEntities) record(code string, ids []int64, rows []any) {
	l.types = append(l.types, code)
	l.ids[code] = ids
	l.rows[code] = rows[:len(ids)]
}

// Apply loads each entity type in its own transaction. Entities committed
// before a failing reindex are still recorded so Discard removes them.
func (p *EAV) Apply(ctx context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	types, err := asMap(kind, data)
	if err != nil {
		return err
	}
	loaded := &loadedEntities{ids: map[string][]int64{}, rows: map[string][]any{}}
	f.SetStorageData(p.key, loaded)

	for _, code := range types.Keys() {
		rows := cloneList(fixture.AsList(types.Value(code)))
		ids, err := p.loader.Load(ctx, code, rows, f.Options())
		if len(ids) > 0 {
			loaded.record(code, ids, rows)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Discard deletes the loaded entities in reverse type order. In local scope
// an entity the shared fixture also loaded is deleted too and then loaded
// again from the shared row, so local values written over it do not
// survive.
func (p *EAV) Discard(ctx context.Context, _ any, _ string, f fixture.Fixture) error {
	loaded, ok := f.StorageData(p.key).(*loadedEntities)
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	shared, _ := p.shared(f).(*loadedEntities)

	var errs []error
	for _, code := range util.Reversed(loaded.types) {
		var restore []any
		for _, id := range loaded.ids[code] {
			if r, ok := shared.row(code, id); ok {
				restore = append(restore, r)
			}
		}
		if err := p.loader.Discard(ctx, code, loaded.ids[code]); err != nil {
			errs = append(errs, err)
			continue
		}
		if len(restore) == 0 {
			continue
		}
		if _, err := p.loader.Load(ctx, code, cloneList(restore), f.Options()); err != nil {
			errs = append(errs, err)
			continue
		}
		p.log.Debug("shared entities restored", logger.Fields(logger.FieldEntityType, code, "count", len(restore)))
	}
	return errors.Join(errs...)
}

// cloneList copies mapping items so later tree mutations cannot reach the
// stored rows.
func cloneList(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		if m, ok := fixture.AsMap(item); ok {
			out[i] = m.Clone()
			continue
		}
		out[i] = item
	}
	return out
}

package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
	"github.com/kbukum/fixturekit/validation"
)

// Scope creates website, group and store records with fixed ids.
//
//	scope:
//	  website:
//	    - {website_id: 2, code: usa, name: USA, default_group_id: 2}
//	  store:
//	    - {store_id: 2, code: usa_en, website_id: 2, group_id: 2, name: English}
//
// Events are disabled while records are written and removed, and the
// in-memory store lists are reinitialized afterwards.
type Scope struct {
	base
}

// NewScope creates the scope processor.
func NewScope(app *framework.App, log *logger.Logger) *Scope {
	return &Scope{base: newBase(app, KindScope, log)}
}

type scopeRecord struct {
	kind framework.ScopeKind
	id   int64
}

// createdScopes is the storage record of a scope apply, in creation order.
type createdScopes struct {
	records []scopeRecord
}

func (c *createdScopes) has(r scopeRecord) bool {
	if c == nil {
		return false
	}
	for _, x := range c.records {
		if x == r {
			return true
		}
	}
	return false
}

// Apply creates the websites, groups and stores the shared fixture does not
// already own.
func (p *Scope) Apply(ctx context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	groups, err := asMap(kind, data)
	if err != nil {
		return err
	}
	rows := map[framework.ScopeKind][]database.Row{}
	v := validation.New()
	for _, key := range groups.Keys() {
		k, err := framework.ParseScopeKind(strings.TrimSuffix(key, "s"))
		if err != nil {
			return err
		}
		for i, r := range rowsOf(groups.Value(key)) {
			_, ok := util.Int64(r[k.PrimaryKey()])
			v.Custom(ok, fmt.Sprintf("%s[%d]", key, i), "has no "+k.PrimaryKey())
			rows[k] = append(rows[k], r)
		}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	db, err := dbOf(ctx, p.app)
	if err != nil {
		return err
	}
	shared, _ := p.shared(f).(*createdScopes)
	created := &createdScopes{}
	f.SetStorageData(p.key, created)

	restore := p.disableEvents()
	defer restore()
	for _, k := range framework.ScopeKinds {
		cols, err := database.ColumnNames(db, k.Table())
		if err != nil {
			return err
		}
		for _, r := range rows[k] {
			id, _ := util.Int64(r[k.PrimaryKey()])
			rec := scopeRecord{kind: k, id: id}
			if shared.has(rec) {
				continue
			}
			r = database.FilterColumns(r, cols)
			if err := p.app.Stores().Save(ctx, db, k, r); err != nil {
				// A crashed run can leave the record behind; adopt it so discard
				// still removes it.
				if _, loadErr := p.app.Stores().Load(ctx, db, k, id); loadErr != nil {
					return err
				}
				p.log.Warn("scope record exists, reusing it", logger.Fields("kind", string(k), "id", id, logger.FieldError, err.Error()))
			}
			created.records = append(created.records, rec)
		}
	}
	return p.app.Stores().Reinit(ctx)
}

// Discard deletes the created records, newest first, and reinitializes the
// store list.
func (p *Scope) Discard(ctx context.Context, _ any, _ string, f fixture.Fixture) error {
	created, ok := f.StorageData(p.key).(*createdScopes)
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	db, err := dbOf(ctx, p.app)
	if err != nil {
		return err
	}

	restore := p.disableEvents()
	var errs []error
	for _, r := range util.Reversed(created.records) {
		if err := p.app.Stores().Delete(ctx, db, r.kind, r.id); err != nil {
			errs = append(errs, err)
		}
	}
	restore()
	p.app.Cache().CleanTags(framework.TagStore, framework.TagStoreGroup, framework.TagWebsite)
	if err := p.app.Stores().Reinit(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// disableEvents turns dispatch off and returns a func restoring the
// previous state.
func (p *Scope) disableEvents() func() {
	ev := p.app.Events()
	if !ev.Enabled() {
		return func() {}
	}
	ev.Disable()
	return ev.Enable
}

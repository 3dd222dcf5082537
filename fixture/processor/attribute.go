package processor

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/eav"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// Attribute adds attribute definitions keyed by entity type code. Each type
// holds a list of definitions carrying attribute_code, or a mapping from
// code to definition.
//
//	attribute:
//	  catalog_product:
//	    - {attribute_code: fabric, label: Fabric, option: {values: [Cotton, Wool]}}
type Attribute struct {
	base
	loader *eav.Loader
}

// NewAttribute creates the attribute processor.
func NewAttribute(app *framework.App, log *logger.Logger) *Attribute {
	p := &Attribute{base: newBase(app, KindAttribute, log)}
	p.loader = eav.NewLoader(app, p.log)
	return p
}

// addedAttributes records the codes an apply defined per entity type, with
// their definitions so a broader scope can write them back.
type addedAttributes struct {
	types []string
	codes map[string][]string
	defs  map[string]map[string]map[string]any
}

func (a *addedAttributes) has(typ, code string) bool {
	return a != nil && slices.Contains(a.codes[typ], code)
}

func (a *addedAttributes) def(typ, code string) (map[string]any, bool) {
	if !a.has(typ, code) {
		return nil, false
	}
	d, ok := a.defs[typ][code]
	return d, ok
}

type attributeDef struct {
	code string
	def  map[string]any
}

func definitions(typ string, v any) ([]attributeDef, error) {
	var out []attributeDef
	if m, ok := fixture.AsMap(v); ok {
		for _, code := range m.Keys() {
			def, _ := rowOf(m.Value(code))
			out = append(out, attributeDef{code: code, def: def})
		}
		return out, nil
	}
	for i, item := range fixture.AsList(v) {
		def, ok := rowOf(item)
		if !ok {
			return nil, apperrors.InvalidInput(typ, fmt.Sprintf("attribute %d is not a mapping", i))
		}
		code := util.String(def[eav.DefAttributeCode])
		if code == "" {
			return nil, apperrors.MissingField(eav.DefAttributeCode).WithDetail("entity_type", typ)
		}
		out = append(out, attributeDef{code: code, def: def})
	}
	return out, nil
}

// Apply adds the attributes of every entity type in one transaction and
// records their definitions for Discard.
func (p *Attribute) Apply(ctx context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	types, err := asMap(kind, data)
	if err != nil {
		return err
	}
	db, err := dbOf(ctx, p.app)
	if err != nil {
		return err
	}
	meta, err := eav.MetadataFor(p.app)
	if err != nil {
		return err
	}

	type work struct {
		typ   *eav.EntityType
		setup eav.AttributeSetup
		defs  []attributeDef
	}
	var jobs []work
	for _, code := range types.Keys() {
		typ, err := meta.EntityType(code)
		if err != nil {
			return err
		}
		setup, err := eav.SetupFor(p.app, typ)
		if err != nil {
			return err
		}
		defs, err := definitions(code, types.Value(code))
		if err != nil {
			return err
		}
		jobs = append(jobs, work{typ: typ, setup: setup, defs: defs})
	}

	added := &addedAttributes{codes: map[string][]string{}, defs: map[string]map[string]map[string]any{}}
	f.SetStorageData(p.key, added)
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, j := range jobs {
			for _, d := range j.defs {
				if _, err := j.setup.AddAttribute(ctx, tx, j.typ, d.code, d.def); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return database.FromDatabase(err, kind)
	}
	for _, j := range jobs {
		added.types = append(added.types, j.typ.Code)
		added.defs[j.typ.Code] = map[string]map[string]any{}
		for _, d := range j.defs {
			added.codes[j.typ.Code] = append(added.codes[j.typ.Code], d.code)
			added.defs[j.typ.Code][d.code] = d.def
		}
	}
	eav.ResetMetadata(p.app)

	var codes []string
	opts := f.Options()
	for _, j := range jobs {
		for _, ic := range p.loader.Subtype(j.typ.Code).IndexCodes {
			if !opts.SkipsIndex(ic) {
				codes = append(codes, ic)
			}
		}
	}
	return p.app.Indexer().Reindex(ctx, util.Unique(codes)...)
}

// Discard removes the added attributes. Codes also defined by the shared
// fixture are put back with the shared definition.
func (p *Attribute) Discard(ctx context.Context, _ any, kind string, f fixture.Fixture) error {
	added, ok := f.StorageData(p.key).(*addedAttributes)
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	defer eav.ResetMetadata(p.app)
	if len(added.types) == 0 {
		return nil
	}
	shared, _ := p.shared(f).(*addedAttributes)

	db, err := dbOf(ctx, p.app)
	if err != nil {
		return err
	}
	meta, err := eav.MetadataFor(p.app)
	if err != nil {
		return err
	}
	type work struct {
		typ     *eav.EntityType
		setup   eav.AttributeSetup
		codes   []string
		restore []attributeDef
	}
	var jobs []work
	for _, code := range util.Reversed(added.types) {
		typ, err := meta.EntityType(code)
		if err != nil {
			return err
		}
		setup, err := eav.SetupFor(p.app, typ)
		if err != nil {
			return err
		}
		w := work{typ: typ, setup: setup}
		for _, c := range added.codes[code] {
			if def, ok := shared.def(code, c); ok {
				w.restore = append(w.restore, attributeDef{code: c, def: def})
				continue
			}
			w.codes = append(w.codes, c)
		}
		jobs = append(jobs, w)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, j := range jobs {
			for _, c := range j.codes {
				if err := j.setup.RemoveAttribute(ctx, tx, j.typ, c); err != nil {
					return err
				}
			}
			for _, d := range j.restore {
				if _, err := j.setup.AddAttribute(ctx, tx, j.typ, d.code, d.def); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return database.FromDatabase(err, kind)
	}
	return nil
}

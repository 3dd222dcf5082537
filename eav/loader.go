package eav

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// StoresKey is the row key holding per-store attribute values:
// {"/stores": {"<store code or id>": {"<attribute>": value}}}.
const StoresKey = "/stores"

// Association is a table referencing entity ids through Column.
type Association struct {
	Table  string
	Column string
}

// Subtype customizes how rows of one entity type are loaded.
type Subtype struct {
	EntityType string
	// AttributeSetZero forces attribute_set_id to 0.
	AttributeSetZero bool
	// IndexCodes are reindexed after every load of this type.
	IndexCodes []string
	// Associations are cleared together with the entities on discard.
	Associations []Association
	// Prepare adjusts a row before records are built from it.
	Prepare func(c *LoadContext, row database.Row) error
	// Custom builds association records for a row.
	Custom func(c *LoadContext, id int64, row database.Row) ([]Record, error)
}

// LoadContext carries the state of one Load call. Index codes added to it
// are dropped when the call returns.
type LoadContext struct {
	Ctx  context.Context
	App  *framework.App
	DB   *gorm.DB
	Type *EntityType
	Meta *Metadata

	rows       map[int64]database.Row
	indexCodes []string
}

// AddIndex schedules extra index codes for this load.
func (c *LoadContext) AddIndex(codes ...string) {
	c.indexCodes = append(c.indexCodes, codes...)
}

// Row returns a row of the current batch by entity id.
func (c *LoadContext) Row(id int64) (database.Row, bool) {
	r, ok := c.rows[id]
	return r, ok
}

// Loader writes EAV entity fixtures: entity rows, attribute value rows and
// subtype association rows.
type Loader struct {
	app      *framework.App
	subtypes map[string]Subtype
	log      *logger.Logger
}

// NewLoader creates a loader with the built-in subtypes registered.
func NewLoader(app *framework.App, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	l := &Loader{app: app, subtypes: map[string]Subtype{}, log: log.WithComponent("eav.loader")}
	for _, s := range DefaultSubtypes() {
		l.Register(s)
	}
	return l
}

// Register adds or replaces a subtype.
func (l *Loader) Register(s Subtype) {
	l.subtypes[s.EntityType] = s
}

// Subtype returns the subtype for an entity type code; unknown types get
// the generic behavior.
func (l *Loader) Subtype(code string) Subtype {
	if s, ok := l.subtypes[code]; ok {
		return s
	}
	return Subtype{EntityType: code}
}

func (l *Loader) db(ctx context.Context) (*gorm.DB, error) {
	if l.app.DB() == nil {
		return nil, apperrors.Configuration("eav fixtures need a database")
	}
	return l.app.DB().WithContext(ctx), nil
}

// Load writes rows for the entity type code in one transaction and then
// reindexes. It returns the loaded entity ids in row order.
func (l *Loader) Load(ctx context.Context, code string, rows []any, opts fixture.Options) ([]int64, error) {
	db, err := l.db(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := MetadataFor(l.app)
	if err != nil {
		return nil, err
	}
	typ, err := meta.EntityType(code)
	if err != nil {
		return nil, err
	}
	sub := l.Subtype(code)

	entityCols, err := database.ColumnNames(db, typ.Table)
	if err != nil {
		return nil, err
	}
	valueTables := map[string]bool{}
	for _, backend := range framework.BackendTypes {
		valueTables[backend] = database.HasTable(db, framework.ValueTable(typ.Table, backend))
	}

	c := &LoadContext{Ctx: ctx, App: l.app, DB: db, Type: typ, Meta: meta, rows: map[int64]database.Row{}}
	var entities, values, custom []Record
	ids := make([]int64, 0, len(rows))
	for i, item := range rows {
		f, ok := fields(item)
		if !ok {
			return nil, apperrors.InvalidInput(code, fmt.Sprintf("row %d is not a mapping", i))
		}
		row := database.Row{}
		for k, v := range f {
			row[k] = v
		}
		id, ok := util.Int64(row["entity_id"])
		if !ok {
			return nil, apperrors.InvalidInput("entity_id", fmt.Sprintf("row %d of %s has no entity_id", i, code))
		}
		row["entity_id"] = id
		row["entity_type_id"] = typ.ID
		if sub.AttributeSetZero {
			row["attribute_set_id"] = 0
		} else if _, set := row["attribute_set_id"]; !set {
			row["attribute_set_id"] = typ.DefaultSetID
		}
		c.rows[id] = row
		if sub.Prepare != nil {
			if err := sub.Prepare(c, row); err != nil {
				return nil, err
			}
		}

		entities = append(entities, Record{Table: typ.Table, Conflict: []string{"entity_id"}, Row: scalarColumns(row, entityCols)})
		vals, err := l.valueRecords(c, row, id, valueTables)
		if err != nil {
			return nil, err
		}
		values = append(values, vals...)
		if sub.Custom != nil {
			recs, err := sub.Custom(c, id, row)
			if err != nil {
				return nil, err
			}
			custom = append(custom, recs...)
		}
		ids = append(ids, id)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, group := range [][]Record{entities, values, custom} {
			for _, r := range group {
				if err := database.Upsert(tx, r.Table, r.Conflict, []database.Row{r.Row}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, database.FromDatabase(err, code)
	}
	l.log.Debug("entities loaded", logger.Fields(logger.FieldEntityType, code, "count", len(ids),
		"values", len(values), "associations", len(custom)))

	var codes []string
	for _, ic := range util.Unique(append(append([]string(nil), sub.IndexCodes...), c.indexCodes...)) {
		if !opts.SkipsIndex(ic) {
			codes = append(codes, ic)
		}
	}
	if err := l.app.Indexer().Reindex(ctx, codes...); err != nil {
		return ids, err
	}
	return ids, nil
}

func (l *Loader) valueRecords(c *LoadContext, row database.Row, id int64, tables map[string]bool) ([]Record, error) {
	var out []Record
	add := func(attr *Attribute, storeID int64, v any) {
		if attr.IsStatic() || !tables[attr.BackendType] {
			return
		}
		value := convertValue(attr, v)
		if value == nil {
			return
		}
		out = append(out, Record{
			Table:    framework.ValueTable(c.Type.Table, attr.BackendType),
			Conflict: []string{"attribute_id", "store_id", "entity_id"},
			Row: database.Row{
				"entity_type_id": c.Type.ID, "attribute_id": attr.ID,
				"store_id": storeID, "entity_id": id, "value": value,
			},
		})
	}

	for _, attr := range c.Meta.Attributes(c.Type.ID) {
		v, has := row[attr.Code]
		if !has {
			if !attr.IsRequired || attr.DefaultValue == "" {
				continue
			}
			v = attr.DefaultValue
		}
		if _, isMap := fields(v); isMap {
			continue
		}
		add(attr, framework.AdminStoreID, v)
	}

	stores, ok := fields(row[StoresKey])
	if !ok {
		return out, nil
	}
	for _, ref := range util.SortedKeys(stores) {
		st, ok := c.App.Stores().Store(ref)
		if !ok {
			return nil, apperrors.InvalidInput(StoresKey, "unknown store "+ref)
		}
		vals, ok := fields(stores[ref])
		if !ok {
			return nil, apperrors.InvalidInput(StoresKey, "values for store "+ref+" must be a mapping")
		}
		codes := util.SortedKeys(vals)
		for _, code := range codes {
			attr, ok := c.Meta.Attribute(c.Type.ID, code)
			if !ok {
				return nil, apperrors.InvalidInput(code, "unknown attribute of "+c.Type.Code)
			}
			add(attr, st.ID, vals[code])
		}
	}
	return out, nil
}

// Discard deletes the entities with ids of type code, their values and
// their association rows, in one transaction.
func (l *Loader) Discard(ctx context.Context, code string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := l.db(ctx)
	if err != nil {
		return err
	}
	meta, err := MetadataFor(l.app)
	if err != nil {
		return err
	}
	typ, err := meta.EntityType(code)
	if err != nil {
		return err
	}

	targets := []Association{{Table: typ.Table, Column: "entity_id"}}
	for _, backend := range framework.BackendTypes {
		targets = append(targets, Association{Table: framework.ValueTable(typ.Table, backend), Column: "entity_id"})
	}
	targets = append(targets, l.Subtype(code).Associations...)
	existing := targets[:0]
	for _, a := range targets {
		if database.HasTable(db, a.Table) {
			existing = append(existing, a)
		}
	}

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, a := range existing {
			if err := database.DeleteIn(tx, a.Table, a.Column, anyList(sorted)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return database.FromDatabase(err, code)
	}
	l.log.Debug("entities discarded", logger.Fields(logger.FieldEntityType, code, "count", len(ids)))
	return nil
}

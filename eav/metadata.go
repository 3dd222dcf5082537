package eav

import (
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/framework"
)

// ConfigAlias is the model alias the metadata singleton is memoized under.
const ConfigAlias = "eav/config"

// EntityType describes one EAV entity type.
type EntityType struct {
	ID           int64
	Code         string
	Model        string
	Table        string
	DefaultSetID int64
}

// Module returns the owning module of the entity model, e.g. catalog for
// catalog/product.
func (t *EntityType) Module() string {
	module, _, _ := strings.Cut(t.Model, "/")
	return module
}

// Attribute describes one attribute of an entity type.
type Attribute struct {
	ID            int64
	EntityTypeID  int64
	Code          string
	BackendType   string
	FrontendInput string
	SourceModel   string
	IsRequired    bool
	DefaultValue  string

	options map[string]int64
}

// IsStatic reports whether the value lives in the entity table itself.
func (a *Attribute) IsStatic() bool {
	return a.BackendType == "" || a.BackendType == "static"
}

// UsesSource reports whether values are option ids resolved from labels.
func (a *Attribute) UsesSource() bool { return a.SourceModel != "" }

// OptionID resolves an option label (case-insensitive) to its id.
func (a *Attribute) OptionID(label string) (int64, bool) {
	id, ok := a.options[strings.ToLower(strings.TrimSpace(label))]
	return id, ok
}

// Metadata is the loaded EAV configuration: entity types, their attributes
// and attribute options.
type Metadata struct {
	types map[string]*EntityType
	attrs map[int64]map[string]*Attribute
}

// LoadMetadata reads the EAV configuration from db.
func LoadMetadata(db *gorm.DB) (*Metadata, error) {
	var types []framework.EntityType
	if err := db.Find(&types).Error; err != nil {
		return nil, database.FromDatabase(err, "entity type")
	}
	var attrs []framework.Attribute
	if err := db.Order("attribute_id").Find(&attrs).Error; err != nil {
		return nil, database.FromDatabase(err, "attribute")
	}
	var options []struct {
		AttributeID int64
		OptionID    int64
		Value       string
	}
	err := db.Table("eav_attribute_option AS o").
		Select("o.attribute_id, o.option_id, v.value").
		Joins("JOIN eav_attribute_option_value AS v ON v.option_id = o.option_id AND v.store_id = 0").
		Scan(&options).Error
	if err != nil {
		return nil, database.FromDatabase(err, "attribute option")
	}

	m := &Metadata{types: map[string]*EntityType{}, attrs: map[int64]map[string]*Attribute{}}
	for _, t := range types {
		m.types[t.Code] = &EntityType{
			ID: t.ID, Code: t.Code, Model: t.EntityModel, Table: t.EntityTable, DefaultSetID: t.DefaultAttributeSetID,
		}
	}
	byID := map[int64]*Attribute{}
	for _, a := range attrs {
		attr := &Attribute{
			ID: a.ID, EntityTypeID: a.EntityTypeID, Code: a.Code, BackendType: a.BackendType,
			FrontendInput: a.FrontendInput, SourceModel: a.SourceModel,
			IsRequired: a.IsRequired != 0, DefaultValue: a.DefaultValue,
			options: map[string]int64{},
		}
		if m.attrs[a.EntityTypeID] == nil {
			m.attrs[a.EntityTypeID] = map[string]*Attribute{}
		}
		m.attrs[a.EntityTypeID][a.Code] = attr
		byID[a.ID] = attr
	}
	for _, o := range options {
		if attr, ok := byID[o.AttributeID]; ok {
			attr.options[strings.ToLower(o.Value)] = o.OptionID
		}
	}
	return m, nil
}

// EntityType returns the entity type with code.
func (m *Metadata) EntityType(code string) (*EntityType, error) {
	t, ok := m.types[code]
	if !ok {
		return nil, apperrors.NotFound("entity type", code)
	}
	return t, nil
}

// Attribute returns an attribute of an entity type by code.
func (m *Metadata) Attribute(typeID int64, code string) (*Attribute, bool) {
	a, ok := m.attrs[typeID][code]
	return a, ok
}

// Attributes returns the attributes of an entity type ordered by id.
func (m *Metadata) Attributes(typeID int64) []*Attribute {
	out := make([]*Attribute, 0, len(m.attrs[typeID]))
	for _, a := range m.attrs[typeID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MetadataFor returns the memoized metadata of app, loading it on first use
// or after ResetMetadata.
func MetadataFor(app *framework.App) (*Metadata, error) {
	v, err := app.Models().Singleton(ConfigAlias)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Metadata)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeInternal, "%s resolved to %T", ConfigAlias, v)
	}
	return m, nil
}

// ResetMetadata drops the memoized metadata so the next read observes
// schema changes.
func ResetMetadata(app *framework.App) {
	app.Registry().Set(framework.SingletonPrefix+ConfigAlias, nil)
}

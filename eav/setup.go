package eav

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/di"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// DefaultSetupModule is the module whose setup is used when the entity's
// own module registers none.
const DefaultSetupModule = "eav"

// Attribute definition keys.
const (
	DefAttributeCode = "attribute_code"
	DefType          = "type"
	DefInput         = "input"
	DefLabel         = "label"
	DefSource        = "source"
	DefRequired      = "required"
	DefDefault       = "default"
	DefUserDefined   = "user_defined"
	DefOption        = "option"
)

// AttributeSetup adds and removes attribute definitions inside a caller's
// transaction.
type AttributeSetup interface {
	AddAttribute(ctx context.Context, tx *gorm.DB, typ *EntityType, code string, def map[string]any) (int64, error)
	RemoveAttribute(ctx context.Context, tx *gorm.DB, typ *EntityType, code string) error
}

// SetupKey is the container key of a module's attribute setup.
func SetupKey(module string) string { return "setup/" + module }

// SetupFor resolves the attribute setup of the module owning typ, falling
// back to the eav setup.
func SetupFor(app *framework.App, typ *EntityType) (AttributeSetup, error) {
	c := app.Models().Container()
	key := SetupKey(typ.Module())
	if !c.Has(key) {
		key = SetupKey(DefaultSetupModule)
	}
	setup, err := di.Resolve[AttributeSetup](c, key)
	if err != nil {
		return nil, apperrors.Configuration("no attribute setup for " + typ.Code).WithCause(err)
	}
	return setup, nil
}

// Setup is the generic AttributeSetup writing eav_attribute and its
// dependent tables.
type Setup struct {
	log *logger.Logger
}

// NewSetup creates the generic setup.
func NewSetup(log *logger.Logger) *Setup {
	if log == nil {
		log = logger.Nop()
	}
	return &Setup{log: log.WithComponent("eav.setup")}
}

// AddAttribute creates or updates the attribute code of typ from def and
// returns its id. New attributes join the entity type's default set.
func (s *Setup) AddAttribute(ctx context.Context, tx *gorm.DB, typ *EntityType, code string, def map[string]any) (int64, error) {
	if code == "" {
		return 0, apperrors.MissingField(DefAttributeCode)
	}
	tx = tx.WithContext(ctx)
	values := optionValues(def[DefOption])

	attr := framework.Attribute{
		EntityTypeID:  typ.ID,
		Code:          code,
		BackendType:   util.Coalesce(util.String(def[DefType]), "varchar"),
		FrontendInput: util.Coalesce(util.String(def[DefInput]), "text"),
		FrontendLabel: util.String(def[DefLabel]),
		SourceModel:   util.String(def[DefSource]),
		DefaultValue:  util.String(def[DefDefault]),
		IsRequired:    flag(def[DefRequired]),
		IsUserDefined: 1,
	}
	if v, ok := def[DefUserDefined]; ok {
		attr.IsUserDefined = flag(v)
	}
	if len(values) > 0 {
		if attr.SourceModel == "" {
			attr.SourceModel = framework.SourceTable
		}
		if _, ok := def[DefType]; !ok {
			attr.BackendType = "int"
		}
		if _, ok := def[DefInput]; !ok {
			attr.FrontendInput = "select"
		}
	}

	var existing framework.Attribute
	err := tx.Where("entity_type_id = ? AND attribute_code = ?", typ.ID, code).Limit(1).Find(&existing).Error
	if err != nil {
		return 0, err
	}
	if existing.ID != 0 {
		attr.ID = existing.ID
		if err := tx.Save(&attr).Error; err != nil {
			return 0, err
		}
		s.log.Debug("attribute updated", logger.Fields(logger.FieldEntityType, typ.Code, "attribute", code))
	} else {
		if err := tx.Create(&attr).Error; err != nil {
			return 0, err
		}
		link := framework.EntityAttribute{EntityTypeID: typ.ID, AttributeSetID: typ.DefaultSetID, AttributeID: attr.ID}
		if err := tx.Create(&link).Error; err != nil {
			return 0, err
		}
		s.log.Debug("attribute added", logger.Fields(logger.FieldEntityType, typ.Code, "attribute", code))
	}

	if len(values) > 0 {
		if err := deleteOptions(tx, attr.ID); err != nil {
			return 0, err
		}
		for i, label := range values {
			opt := framework.AttributeOption{AttributeID: attr.ID, SortOrder: int64(i)}
			if err := tx.Create(&opt).Error; err != nil {
				return 0, err
			}
			val := framework.AttributeOptionValue{OptionID: opt.ID, StoreID: framework.AdminStoreID, Value: label}
			if err := tx.Create(&val).Error; err != nil {
				return 0, err
			}
		}
	}
	return attr.ID, nil
}

// RemoveAttribute deletes the attribute code of typ together with its
// options, set links and stored values. Unknown codes are ignored.
func (s *Setup) RemoveAttribute(ctx context.Context, tx *gorm.DB, typ *EntityType, code string) error {
	tx = tx.WithContext(ctx)
	var attr framework.Attribute
	err := tx.Where("entity_type_id = ? AND attribute_code = ?", typ.ID, code).Limit(1).Find(&attr).Error
	if err != nil {
		return err
	}
	if attr.ID == 0 {
		return nil
	}
	if err := deleteOptions(tx, attr.ID); err != nil {
		return err
	}
	for _, backend := range framework.BackendTypes {
		table := framework.ValueTable(typ.Table, backend)
		if !database.HasTable(tx, table) {
			continue
		}
		if err := database.DeleteIn(tx, table, "attribute_id", []any{attr.ID}); err != nil {
			return err
		}
	}
	if err := database.DeleteIn(tx, "eav_entity_attribute", "attribute_id", []any{attr.ID}); err != nil {
		return err
	}
	if err := tx.Delete(&framework.Attribute{}, attr.ID).Error; err != nil {
		return err
	}
	s.log.Debug("attribute removed", logger.Fields(logger.FieldEntityType, typ.Code, "attribute", code))
	return nil
}

func deleteOptions(tx *gorm.DB, attributeID int64) error {
	var ids []int64
	if err := tx.Model(&framework.AttributeOption{}).Where("attribute_id = ?", attributeID).Pluck("option_id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := database.DeleteIn(tx, "eav_attribute_option_value", "option_id", anyList(ids)); err != nil {
		return err
	}
	return database.DeleteIn(tx, "eav_attribute_option", "option_id", anyList(ids))
}

// optionValues reads option labels from {values: [...]} or a plain list.
func optionValues(v any) []string {
	if m, ok := fields(v); ok {
		v = m["values"]
	}
	var out []string
	for _, s := range util.Strings(v) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func flag(v any) int64 {
	if util.Bool(v) {
		return 1
	}
	return 0
}

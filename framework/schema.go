package framework

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database/migration"
)

// Website is a row of core_website.
type Website struct {
	ID             int64  `gorm:"column:website_id;primaryKey;autoIncrement:false"`
	Code           string `gorm:"column:code;size:32;uniqueIndex:idx_core_website_code"`
	Name           string `gorm:"column:name;size:64"`
	SortOrder      int64  `gorm:"column:sort_order;default:0"`
	DefaultGroupID int64  `gorm:"column:default_group_id;default:0"`
	IsDefault      int64  `gorm:"column:is_default;type:smallint;default:0"`
}

func (Website) TableName() string { return "core_website" }

// StoreGroup is a row of core_store_group.
type StoreGroup struct {
	ID             int64  `gorm:"column:group_id;primaryKey;autoIncrement:false"`
	WebsiteID      int64  `gorm:"column:website_id;index"`
	Name           string `gorm:"column:name;size:255"`
	RootCategoryID int64  `gorm:"column:root_category_id;default:0"`
	DefaultStoreID int64  `gorm:"column:default_store_id;default:0"`
}

func (StoreGroup) TableName() string { return "core_store_group" }

// Store is a row of core_store.
type Store struct {
	ID        int64  `gorm:"column:store_id;primaryKey;autoIncrement:false"`
	Code      string `gorm:"column:code;size:32;uniqueIndex:idx_core_store_code"`
	WebsiteID int64  `gorm:"column:website_id;index"`
	GroupID   int64  `gorm:"column:group_id;index"`
	Name      string `gorm:"column:name;size:255"`
	SortOrder int64  `gorm:"column:sort_order;default:0"`
	IsActive  int64  `gorm:"column:is_active;type:smallint;default:1"`
}

func (Store) TableName() string { return "core_store" }

// ConfigData is a row of core_config_data.
type ConfigData struct {
	ID      int64  `gorm:"column:config_id;primaryKey"`
	Scope   string `gorm:"column:scope;size:8;uniqueIndex:idx_core_config_data_scope"`
	ScopeID int64  `gorm:"column:scope_id;uniqueIndex:idx_core_config_data_scope"`
	Path    string `gorm:"column:path;size:255;uniqueIndex:idx_core_config_data_scope"`
	Value   string `gorm:"column:value"`
}

func (ConfigData) TableName() string { return "core_config_data" }

// EntityType is a row of eav_entity_type.
type EntityType struct {
	ID                    int64  `gorm:"column:entity_type_id;primaryKey;autoIncrement:false"`
	Code                  string `gorm:"column:entity_type_code;size:50;uniqueIndex:idx_eav_entity_type_code"`
	EntityModel           string `gorm:"column:entity_model;size:255"`
	EntityTable           string `gorm:"column:entity_table;size:255"`
	DefaultAttributeSetID int64  `gorm:"column:default_attribute_set_id;default:0"`
}

func (EntityType) TableName() string { return "eav_entity_type" }

// Attribute is a row of eav_attribute.
type Attribute struct {
	ID            int64  `gorm:"column:attribute_id;primaryKey"`
	EntityTypeID  int64  `gorm:"column:entity_type_id;uniqueIndex:idx_eav_attribute_code"`
	Code          string `gorm:"column:attribute_code;size:255;uniqueIndex:idx_eav_attribute_code"`
	BackendType   string `gorm:"column:backend_type;size:8;default:static"`
	FrontendInput string `gorm:"column:frontend_input;size:50"`
	FrontendLabel string `gorm:"column:frontend_label;size:255"`
	SourceModel   string `gorm:"column:source_model;size:255"`
	IsRequired    int64  `gorm:"column:is_required;type:smallint;default:0"`
	DefaultValue  string `gorm:"column:default_value"`
	IsUserDefined int64  `gorm:"column:is_user_defined;type:smallint;default:0"`
}

func (Attribute) TableName() string { return "eav_attribute" }

// AttributeOption is a row of eav_attribute_option.
type AttributeOption struct {
	ID          int64 `gorm:"column:option_id;primaryKey"`
	AttributeID int64 `gorm:"column:attribute_id;index"`
	SortOrder   int64 `gorm:"column:sort_order;default:0"`
}

func (AttributeOption) TableName() string { return "eav_attribute_option" }

// AttributeOptionValue is a row of eav_attribute_option_value.
type AttributeOptionValue struct {
	ID       int64  `gorm:"column:value_id;primaryKey"`
	OptionID int64  `gorm:"column:option_id;index"`
	StoreID  int64  `gorm:"column:store_id;default:0"`
	Value    string `gorm:"column:value;size:255"`
}

func (AttributeOptionValue) TableName() string { return "eav_attribute_option_value" }

// AttributeSet is a row of eav_attribute_set.
type AttributeSet struct {
	ID           int64  `gorm:"column:attribute_set_id;primaryKey"`
	EntityTypeID int64  `gorm:"column:entity_type_id;index"`
	Name         string `gorm:"column:attribute_set_name;size:255"`
}

func (AttributeSet) TableName() string { return "eav_attribute_set" }

// EntityAttribute is a row of eav_entity_attribute.
type EntityAttribute struct {
	ID             int64 `gorm:"column:entity_attribute_id;primaryKey"`
	EntityTypeID   int64 `gorm:"column:entity_type_id"`
	AttributeSetID int64 `gorm:"column:attribute_set_id;uniqueIndex:idx_eav_entity_attribute"`
	AttributeID    int64 `gorm:"column:attribute_id;uniqueIndex:idx_eav_entity_attribute"`
}

func (EntityAttribute) TableName() string { return "eav_entity_attribute" }

// ProductEntity is a row of catalog_product_entity.
type ProductEntity struct {
	ID              int64  `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
	EntityTypeID    int64  `gorm:"column:entity_type_id"`
	AttributeSetID  int64  `gorm:"column:attribute_set_id"`
	TypeID          string `gorm:"column:type_id;size:32;default:simple"`
	SKU             string `gorm:"column:sku;size:64;index"`
	HasOptions      int64  `gorm:"column:has_options;type:smallint;default:0"`
	RequiredOptions int64  `gorm:"column:required_options;type:smallint;default:0"`
}

func (ProductEntity) TableName() string { return "catalog_product_entity" }

// CategoryEntity is a row of catalog_category_entity.
type CategoryEntity struct {
	ID             int64  `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
	EntityTypeID   int64  `gorm:"column:entity_type_id"`
	AttributeSetID int64  `gorm:"column:attribute_set_id"`
	ParentID       int64  `gorm:"column:parent_id;default:0"`
	Path           string `gorm:"column:path;size:255"`
	Position       int64  `gorm:"column:position;default:0"`
	Level          int64  `gorm:"column:level;default:0"`
	ChildrenCount  int64  `gorm:"column:children_count;default:0"`
}

func (CategoryEntity) TableName() string { return "catalog_category_entity" }

// CustomerEntity is a row of customer_entity.
type CustomerEntity struct {
	ID             int64  `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
	EntityTypeID   int64  `gorm:"column:entity_type_id"`
	AttributeSetID int64  `gorm:"column:attribute_set_id"`
	WebsiteID      int64  `gorm:"column:website_id;default:0"`
	Email          string `gorm:"column:email;size:255"`
	GroupID        int64  `gorm:"column:group_id;default:0"`
	StoreID        int64  `gorm:"column:store_id;default:0"`
	IsActive       int64  `gorm:"column:is_active;type:smallint;default:1"`
}

func (CustomerEntity) TableName() string { return "customer_entity" }

// CustomerAddressEntity is a row of customer_address_entity.
type CustomerAddressEntity struct {
	ID             int64 `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
	EntityTypeID   int64 `gorm:"column:entity_type_id"`
	AttributeSetID int64 `gorm:"column:attribute_set_id"`
	ParentID       int64 `gorm:"column:parent_id;index"`
	IsActive       int64 `gorm:"column:is_active;type:smallint;default:1"`
}

func (CustomerAddressEntity) TableName() string { return "customer_address_entity" }

// ValueKey is the composite key shared by value rows so repeated writes
// can upsert.
type ValueKey struct {
	EntityTypeID int64 `gorm:"column:entity_type_id"`
	AttributeID  int64 `gorm:"column:attribute_id;primaryKey;autoIncrement:false"`
	StoreID      int64 `gorm:"column:store_id;primaryKey;autoIncrement:false"`
	EntityID     int64 `gorm:"column:entity_id;primaryKey;autoIncrement:false"`
}

// VarcharValue is a row of a *_varchar value table.
type VarcharValue struct {
	ValueKey `gorm:"embedded"`
	Value    *string `gorm:"column:value;size:255"`
}

// IntValue is a row of a *_int value table.
type IntValue struct {
	ValueKey `gorm:"embedded"`
	Value    *int64 `gorm:"column:value"`
}

// DecimalValue is a row of a *_decimal value table.
type DecimalValue struct {
	ValueKey `gorm:"embedded"`
	Value    *float64 `gorm:"column:value;type:decimal(12,4)"`
}

// TextValue is a row of a *_text value table.
type TextValue struct {
	ValueKey `gorm:"embedded"`
	Value    *string `gorm:"column:value;type:text"`
}

// DatetimeValue is a row of a *_datetime value table.
type DatetimeValue struct {
	ValueKey `gorm:"embedded"`
	Value    *time.Time `gorm:"column:value"`
}

// BackendTypes are the value table suffixes, in write order.
var BackendTypes = []string{"varchar", "int", "decimal", "text", "datetime"}

func valueModel(backend string) any {
	switch backend {
	case "varchar":
		return &VarcharValue{}
	case "int":
		return &IntValue{}
	case "decimal":
		return &DecimalValue{}
	case "text":
		return &TextValue{}
	default:
		return &DatetimeValue{}
	}
}

// ProductWebsite links a product to a website.
type ProductWebsite struct {
	ProductID int64 `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	WebsiteID int64 `gorm:"column:website_id;primaryKey;autoIncrement:false"`
}

func (ProductWebsite) TableName() string { return "catalog_product_website" }

// CategoryProduct links a product to a category.
type CategoryProduct struct {
	CategoryID int64 `gorm:"column:category_id;primaryKey;autoIncrement:false"`
	ProductID  int64 `gorm:"column:product_id;primaryKey;autoIncrement:false"`
	Position   int64 `gorm:"column:position;default:0"`
}

func (CategoryProduct) TableName() string { return "catalog_category_product" }

// StockItem is a row of cataloginventory_stock_item.
type StockItem struct {
	ID          int64   `gorm:"column:item_id;primaryKey"`
	ProductID   int64   `gorm:"column:product_id;uniqueIndex:idx_stock_item_product"`
	StockID     int64   `gorm:"column:stock_id;default:1;uniqueIndex:idx_stock_item_product"`
	Qty         float64 `gorm:"column:qty;type:decimal(12,4);default:0"`
	IsInStock   int64   `gorm:"column:is_in_stock;type:smallint;default:0"`
	ManageStock int64   `gorm:"column:manage_stock;type:smallint;default:1"`
}

func (StockItem) TableName() string { return "cataloginventory_stock_item" }

// TierPrice is a row of catalog_product_entity_tier_price.
type TierPrice struct {
	ID              int64   `gorm:"column:value_id;primaryKey"`
	EntityID        int64   `gorm:"column:entity_id;uniqueIndex:idx_tier_price"`
	AllGroups       int64   `gorm:"column:all_groups;type:smallint;default:1;uniqueIndex:idx_tier_price"`
	CustomerGroupID int64   `gorm:"column:customer_group_id;default:0;uniqueIndex:idx_tier_price"`
	Qty             float64 `gorm:"column:qty;type:decimal(12,4);default:1;uniqueIndex:idx_tier_price"`
	WebsiteID       int64   `gorm:"column:website_id;default:0;uniqueIndex:idx_tier_price"`
	Value           float64 `gorm:"column:value;type:decimal(12,4);default:0"`
}

func (TierPrice) TableName() string { return "catalog_product_entity_tier_price" }

// SuperAttribute is a row of catalog_product_super_attribute.
type SuperAttribute struct {
	ID          int64 `gorm:"column:product_super_attribute_id;primaryKey"`
	ProductID   int64 `gorm:"column:product_id;uniqueIndex:idx_super_attribute"`
	AttributeID int64 `gorm:"column:attribute_id;uniqueIndex:idx_super_attribute"`
	Position    int64 `gorm:"column:position;default:0"`
}

func (SuperAttribute) TableName() string { return "catalog_product_super_attribute" }

// SuperLink is a row of catalog_product_super_link.
type SuperLink struct {
	ID        int64 `gorm:"column:link_id;primaryKey"`
	ProductID int64 `gorm:"column:product_id;uniqueIndex:idx_super_link"`
	ParentID  int64 `gorm:"column:parent_id;uniqueIndex:idx_super_link"`
}

func (SuperLink) TableName() string { return "catalog_product_super_link" }

// ProductRelation is a row of catalog_product_relation.
type ProductRelation struct {
	ParentID int64 `gorm:"column:parent_id;primaryKey;autoIncrement:false"`
	ChildID  int64 `gorm:"column:child_id;primaryKey;autoIncrement:false"`
}

func (ProductRelation) TableName() string { return "catalog_product_relation" }

// BundleOption is a row of catalog_product_bundle_option.
type BundleOption struct {
	ID       int64  `gorm:"column:option_id;primaryKey;autoIncrement:false"`
	ParentID int64  `gorm:"column:parent_id;index"`
	Required int64  `gorm:"column:required;type:smallint;default:0"`
	Position int64  `gorm:"column:position;default:0"`
	Type     string `gorm:"column:type;size:255"`
}

func (BundleOption) TableName() string { return "catalog_product_bundle_option" }

// BundleSelection is a row of catalog_product_bundle_selection.
type BundleSelection struct {
	ID              int64   `gorm:"column:selection_id;primaryKey"`
	OptionID        int64   `gorm:"column:option_id;uniqueIndex:idx_bundle_selection"`
	ParentProductID int64   `gorm:"column:parent_product_id"`
	ProductID       int64   `gorm:"column:product_id;uniqueIndex:idx_bundle_selection"`
	Position        int64   `gorm:"column:position;default:0"`
	IsDefault       int64   `gorm:"column:is_default;type:smallint;default:0"`
	SelectionQty    float64 `gorm:"column:selection_qty;type:decimal(12,4);default:1"`
}

func (BundleSelection) TableName() string { return "catalog_product_bundle_selection" }

// Entity tables carrying EAV values, keyed by their value table prefix.
var valueTablePrefixes = []string{
	"catalog_product_entity", "catalog_category_entity", "customer_entity", "customer_address_entity",
}

// ValueTable returns the value table name for an entity table and backend
// type, e.g. catalog_product_entity_varchar.
func ValueTable(entityTable, backend string) string {
	return entityTable + "_" + backend
}

// SchemaMigrations returns the migrations installing the host schema and
// its baseline rows.
func SchemaMigrations() []migration.Migration {
	return []migration.Migration{
		{
			ID:          "001_core_schema",
			Description: "scope, config and EAV metadata tables",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&Website{}, &StoreGroup{}, &Store{}, &ConfigData{},
					&EntityType{}, &Attribute{}, &AttributeOption{}, &AttributeOptionValue{},
					&AttributeSet{}, &EntityAttribute{},
				)
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&EntityAttribute{}, &AttributeSet{}, &AttributeOptionValue{}, &AttributeOption{},
					&Attribute{}, &EntityType{}, &ConfigData{}, &Store{}, &StoreGroup{}, &Website{},
				)
			},
		},
		{
			ID:          "002_entity_schema",
			Description: "entity, value and association tables",
			Up: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(
					&ProductEntity{}, &CategoryEntity{}, &CustomerEntity{}, &CustomerAddressEntity{},
					&ProductWebsite{}, &CategoryProduct{}, &StockItem{}, &TierPrice{},
					&SuperAttribute{}, &SuperLink{}, &ProductRelation{}, &BundleOption{}, &BundleSelection{},
				); err != nil {
					return err
				}
				for _, prefix := range valueTablePrefixes {
					for _, backend := range BackendTypes {
						if err := tx.Table(ValueTable(prefix, backend)).AutoMigrate(valueModel(backend)); err != nil {
							return fmt.Errorf("value table %s: %w", ValueTable(prefix, backend), err)
						}
					}
				}
				return nil
			},
			Down: func(tx *gorm.DB) error {
				for _, prefix := range valueTablePrefixes {
					for _, backend := range BackendTypes {
						if err := tx.Migrator().DropTable(ValueTable(prefix, backend)); err != nil {
							return err
						}
					}
				}
				return tx.Migrator().DropTable(
					&BundleSelection{}, &BundleOption{}, &ProductRelation{}, &SuperLink{}, &SuperAttribute{},
					&TierPrice{}, &StockItem{}, &CategoryProduct{}, &ProductWebsite{},
					&CustomerAddressEntity{}, &CustomerEntity{}, &CategoryEntity{}, &ProductEntity{},
				)
			},
		},
		{
			ID:          "003_baseline_data",
			Description: "admin and default scopes, entity types and system attributes",
			Up:          seedBaseline,
			Down: func(tx *gorm.DB) error {
				for _, m := range []any{
					&AttributeOptionValue{}, &AttributeOption{}, &EntityAttribute{}, &Attribute{},
					&AttributeSet{}, &EntityType{}, &Store{}, &StoreGroup{}, &Website{},
				} {
					if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

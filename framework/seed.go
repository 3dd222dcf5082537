package framework

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kbukum/fixturekit/database"
)

// Entity type codes of the baseline schema.
const (
	EntityCustomer        = "customer"
	EntityCustomerAddress = "customer_address"
	EntityCategory        = "catalog_category"
	EntityProduct         = "catalog_product"
)

// SourceTable is the source model resolving option labels through
// eav_attribute_option_value.
const SourceTable = "eav/entity_attribute_source_table"

type seedAttribute struct {
	id       int64
	code     string
	backend  string
	input    string
	label    string
	required bool
	def      string
	options  []string
}

type seedEntity struct {
	id      int64
	code    string
	model   string
	table   string
	setID   int64
	attrs   []seedAttribute
	setName string
}

var baselineEntities = []seedEntity{
	{id: 1, code: EntityCustomer, model: "customer/customer", table: "customer_entity", setID: 1, setName: "Default", attrs: []seedAttribute{
		{id: 1, code: "firstname", backend: "varchar", input: "text", label: "First Name", required: true},
		{id: 2, code: "lastname", backend: "varchar", input: "text", label: "Last Name", required: true},
		{id: 3, code: "dob", backend: "datetime", input: "date", label: "Date Of Birth"},
		{id: 4, code: "gender", backend: "int", input: "select", label: "Gender", options: []string{"Male", "Female"}},
		{id: 5, code: "email", backend: "static", input: "text", label: "Email", required: true},
	}},
	{id: 2, code: EntityCustomerAddress, model: "customer/address", table: "customer_address_entity", setID: 2, setName: "Default", attrs: []seedAttribute{
		{id: 10, code: "firstname", backend: "varchar", input: "text", label: "First Name", required: true},
		{id: 11, code: "lastname", backend: "varchar", input: "text", label: "Last Name", required: true},
		{id: 12, code: "street", backend: "text", input: "multiline", label: "Street Address"},
		{id: 13, code: "city", backend: "varchar", input: "text", label: "City"},
		{id: 14, code: "postcode", backend: "varchar", input: "text", label: "Zip/Postal Code"},
		{id: 15, code: "country_id", backend: "varchar", input: "select", label: "Country"},
		{id: 16, code: "telephone", backend: "varchar", input: "text", label: "Telephone"},
	}},
	{id: 3, code: EntityCategory, model: "catalog/category", table: "catalog_category_entity", setID: 3, setName: "Default", attrs: []seedAttribute{
		{id: 30, code: "name", backend: "varchar", input: "text", label: "Name", required: true},
		{id: 31, code: "is_active", backend: "int", input: "select", label: "Is Active", required: true, def: "1"},
		{id: 32, code: "url_key", backend: "varchar", input: "text", label: "URL Key"},
		{id: 33, code: "description", backend: "text", input: "textarea", label: "Description"},
		{id: 34, code: "include_in_menu", backend: "int", input: "select", label: "Include in Navigation Menu", required: true, def: "1"},
	}},
	{id: 4, code: EntityProduct, model: "catalog/product", table: "catalog_product_entity", setID: 4, setName: "Default", attrs: []seedAttribute{
		{id: 60, code: "name", backend: "varchar", input: "text", label: "Name", required: true},
		{id: 61, code: "sku", backend: "static", input: "text", label: "SKU", required: true},
		{id: 62, code: "price", backend: "decimal", input: "price", label: "Price", required: true},
		{id: 63, code: "status", backend: "int", input: "select", label: "Status", required: true, def: "1"},
		{id: 64, code: "visibility", backend: "int", input: "select", label: "Visibility", required: true, def: "4"},
		{id: 65, code: "description", backend: "text", input: "textarea", label: "Description"},
		{id: 66, code: "url_key", backend: "varchar", input: "text", label: "URL Key"},
		{id: 67, code: "weight", backend: "decimal", input: "weight", label: "Weight"},
		{id: 68, code: "color", backend: "int", input: "select", label: "Color", options: []string{"Red", "Blue", "Green"}},
		{id: 69, code: "special_from_date", backend: "datetime", input: "date", label: "Special Price From Date"},
		{id: 70, code: "type_id", backend: "static", input: "select", label: "Type"},
	}},
}

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func seedBaseline(tx *gorm.DB) error {
	inserts := []struct {
		table string
		rows  []database.Row
	}{
		{"core_website", []database.Row{
			{"website_id": 0, "code": "admin", "name": "Admin", "sort_order": 0, "default_group_id": 0, "is_default": 0},
			{"website_id": 1, "code": "base", "name": "Main Website", "sort_order": 0, "default_group_id": 1, "is_default": 1},
		}},
		{"core_store_group", []database.Row{
			{"group_id": 0, "website_id": 0, "name": "Default", "root_category_id": 0, "default_store_id": 0},
			{"group_id": 1, "website_id": 1, "name": "Main Website Store", "root_category_id": 2, "default_store_id": 1},
		}},
		{"core_store", []database.Row{
			{"store_id": 0, "code": "admin", "website_id": 0, "group_id": 0, "name": "Admin", "sort_order": 0, "is_active": 1},
			{"store_id": 1, "code": "default", "website_id": 1, "group_id": 1, "name": "Default Store View", "sort_order": 0, "is_active": 1},
		}},
	}
	for _, in := range inserts {
		if err := database.Insert(tx, in.table, in.rows); err != nil {
			return err
		}
	}

	var optionID int64
	for _, e := range baselineEntities {
		if err := database.Insert(tx, "eav_entity_type", []database.Row{{
			"entity_type_id": e.id, "entity_type_code": e.code, "entity_model": e.model,
			"entity_table": e.table, "default_attribute_set_id": e.setID,
		}}); err != nil {
			return err
		}
		if err := database.Insert(tx, "eav_attribute_set", []database.Row{{
			"attribute_set_id": e.setID, "entity_type_id": e.id, "attribute_set_name": e.setName,
		}}); err != nil {
			return err
		}
		for _, a := range e.attrs {
			source := ""
			if len(a.options) > 0 {
				source = SourceTable
			}
			if err := database.Insert(tx, "eav_attribute", []database.Row{{
				"attribute_id": a.id, "entity_type_id": e.id, "attribute_code": a.code,
				"backend_type": a.backend, "frontend_input": a.input, "frontend_label": a.label,
				"source_model": source, "is_required": flag(a.required), "default_value": a.def,
				"is_user_defined": 0,
			}}); err != nil {
				return err
			}
			if err := database.Insert(tx, "eav_entity_attribute", []database.Row{{
				"entity_attribute_id": a.id, "entity_type_id": e.id, "attribute_set_id": e.setID, "attribute_id": a.id,
			}}); err != nil {
				return err
			}
			for i, label := range a.options {
				optionID++
				if err := database.Insert(tx, "eav_attribute_option", []database.Row{{
					"option_id": optionID, "attribute_id": a.id, "sort_order": i,
				}}); err != nil {
					return err
				}
				if err := database.Insert(tx, "eav_attribute_option_value", []database.Row{{
					"value_id": optionID, "option_id": optionID, "store_id": 0, "value": label,
				}}); err != nil {
					return err
				}
			}
		}
	}
	return syncSequences(tx, map[string]string{
		"eav_attribute":              "attribute_id",
		"eav_attribute_set":          "attribute_set_id",
		"eav_entity_attribute":       "entity_attribute_id",
		"eav_attribute_option":       "option_id",
		"eav_attribute_option_value": "value_id",
	})
}

// syncSequences moves postgres serial sequences past explicitly inserted
// ids. Other dialects derive the next id from the table.
func syncSequences(tx *gorm.DB, columns map[string]string) error {
	if tx.Dialector.Name() != database.DriverPostgres {
		return nil
	}
	for table, column := range columns {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 1))",
			table, column, column, table)
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("sync sequence %s.%s: %w", table, column, err)
		}
	}
	return nil
}

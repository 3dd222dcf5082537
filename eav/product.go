package eav

import (
	"fmt"

	"github.com/kbukum/fixturekit/database"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/util"
)

// Product row keys handled by the product subtype.
const (
	KeyWebsiteIDs             = "website_ids"
	KeyCategoryIDs            = "category_ids"
	KeyStock                  = "stock"
	KeyTierPrice              = "tier_price"
	KeyConfigurableAttributes = "configurable_attributes"
	KeyConfigurableChildren   = "configurable_children"
	KeyBundleOptions          = "bundle_options"
)

// ProductSubtype loads catalog products with their website, category,
// stock, tier price, configurable and bundle associations.
func ProductSubtype() Subtype {
	return Subtype{
		EntityType: framework.EntityProduct,
		IndexCodes: []string{
			framework.IndexProductAttribute, framework.IndexProductPrice, framework.IndexURL,
			framework.IndexProductFlat, framework.IndexSearch,
		},
		Associations: []Association{
			{Table: "catalog_product_website", Column: "product_id"},
			{Table: "catalog_category_product", Column: "product_id"},
			{Table: "cataloginventory_stock_item", Column: "product_id"},
			{Table: "catalog_product_entity_tier_price", Column: "entity_id"},
			{Table: "catalog_product_super_attribute", Column: "product_id"},
			{Table: "catalog_product_super_link", Column: "parent_id"},
			{Table: "catalog_product_relation", Column: "parent_id"},
			{Table: "catalog_product_bundle_selection", Column: "parent_product_id"},
			{Table: "catalog_product_bundle_option", Column: "parent_id"},
		},
		Prepare: func(_ *LoadContext, row database.Row) error {
			if _, ok := row["type_id"]; !ok {
				row["type_id"] = "simple"
			}
			if _, ok := row[KeyBundleOptions]; ok {
				row["has_options"] = 1
				row["required_options"] = 1
			}
			return nil
		},
		Custom: productRecords,
	}
}

func productRecords(c *LoadContext, id int64, row database.Row) ([]Record, error) {
	var out []Record

	for _, w := range int64List(row[KeyWebsiteIDs]) {
		out = append(out, Record{
			Table:    "catalog_product_website",
			Conflict: []string{"product_id", "website_id"},
			Row:      database.Row{"product_id": id, "website_id": w},
		})
	}

	if categories := int64List(row[KeyCategoryIDs]); len(categories) > 0 {
		c.AddIndex(framework.IndexCategoryProduct)
		for i, cat := range categories {
			out = append(out, Record{
				Table:    "catalog_category_product",
				Conflict: []string{"category_id", "product_id"},
				Row:      database.Row{"category_id": cat, "product_id": id, "position": i},
			})
		}
	}

	if v, ok := row[KeyStock]; ok {
		stock, ok := fields(v)
		if !ok {
			return nil, apperrors.InvalidInput(KeyStock, fmt.Sprintf("product %d: stock must be a mapping", id))
		}
		r := database.Row{"product_id": id, "stock_id": int64(1)}
		for _, k := range []string{"stock_id", "qty", "is_in_stock", "manage_stock"} {
			if v, ok := stock[k]; ok {
				r[k] = v
			}
		}
		c.AddIndex(framework.IndexStock)
		out = append(out, Record{Table: "cataloginventory_stock_item", Conflict: []string{"product_id", "stock_id"}, Row: r})
	}

	for _, item := range fixture.AsList(row[KeyTierPrice]) {
		tier, ok := fields(item)
		if !ok {
			return nil, apperrors.InvalidInput(KeyTierPrice, fmt.Sprintf("product %d: tier price must be a mapping", id))
		}
		r := database.Row{"entity_id": id, "all_groups": 1, "customer_group_id": 0, "qty": 1.0, "website_id": 0, "value": 0.0}
		if g, ok := tier["customer_group_id"]; ok {
			r["customer_group_id"] = g
			r["all_groups"] = 0
		}
		for _, k := range []string{"all_groups", "qty", "website_id", "value"} {
			if v, ok := tier[k]; ok {
				r[k] = v
			}
		}
		r["qty"] = convertValue(&Attribute{BackendType: "decimal"}, r["qty"])
		r["value"] = convertValue(&Attribute{BackendType: "decimal"}, r["value"])
		out = append(out, Record{
			Table:    "catalog_product_entity_tier_price",
			Conflict: []string{"entity_id", "all_groups", "customer_group_id", "qty", "website_id"},
			Row:      r,
		})
	}

	for i, code := range util.Strings(row[KeyConfigurableAttributes]) {
		attr, ok := c.Meta.Attribute(c.Type.ID, code)
		if !ok {
			return nil, apperrors.InvalidInput(KeyConfigurableAttributes, "unknown attribute "+code)
		}
		out = append(out, Record{
			Table:    "catalog_product_super_attribute",
			Conflict: []string{"product_id", "attribute_id"},
			Row:      database.Row{"product_id": id, "attribute_id": attr.ID, "position": i},
		})
	}
	for _, child := range int64List(row[KeyConfigurableChildren]) {
		out = append(out,
			Record{
				Table:    "catalog_product_super_link",
				Conflict: []string{"product_id", "parent_id"},
				Row:      database.Row{"product_id": child, "parent_id": id},
			},
			relationRecord(id, child))
	}

	for i, item := range fixture.AsList(row[KeyBundleOptions]) {
		opt, ok := fields(item)
		if !ok {
			return nil, apperrors.InvalidInput(KeyBundleOptions, fmt.Sprintf("product %d: bundle option must be a mapping", id))
		}
		optionID, ok := util.Int64(opt["option_id"])
		if !ok {
			return nil, apperrors.InvalidInput("option_id", fmt.Sprintf("product %d: bundle option %d has no option_id", id, i))
		}
		r := database.Row{"option_id": optionID, "parent_id": id, "required": 0, "position": i, "type": "select"}
		for _, k := range []string{"required", "position", "type"} {
			if v, ok := opt[k]; ok {
				r[k] = v
			}
		}
		out = append(out, Record{Table: "catalog_product_bundle_option", Conflict: []string{"option_id"}, Row: r})

		for j, sel := range fixture.AsList(opt["selections"]) {
			s, ok := fields(sel)
			if !ok {
				return nil, apperrors.InvalidInput("selections", fmt.Sprintf("product %d: selection must be a mapping", id))
			}
			child, ok := util.Int64(s["product_id"])
			if !ok {
				return nil, apperrors.InvalidInput("product_id", fmt.Sprintf("product %d: selection %d has no product_id", id, j))
			}
			sr := database.Row{
				"option_id": optionID, "parent_product_id": id, "product_id": child,
				"position": j, "is_default": 0, "selection_qty": 1.0,
			}
			for _, k := range []string{"position", "is_default", "selection_qty"} {
				if v, ok := s[k]; ok {
					sr[k] = v
				}
			}
			out = append(out,
				Record{Table: "catalog_product_bundle_selection", Conflict: []string{"option_id", "product_id"}, Row: sr},
				relationRecord(id, child))
		}
	}
	return out, nil
}

func relationRecord(parent, child int64) Record {
	return Record{
		Table:    "catalog_product_relation",
		Conflict: []string{"parent_id", "child_id"},
		Row:      database.Row{"parent_id": parent, "child_id": child},
	}
}

package eav

import (
	"strconv"
	"strings"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/util"
)

// CategorySubtype loads categories, deriving path and level from parent_id
// when the row does not give them.
func CategorySubtype() Subtype {
	return Subtype{
		EntityType: framework.EntityCategory,
		IndexCodes: []string{framework.IndexCategoryFlat, framework.IndexURL, framework.IndexCategoryProduct},
		Associations: []Association{
			{Table: "catalog_category_product", Column: "category_id"},
		},
		Prepare: prepareCategory,
	}
}

func prepareCategory(c *LoadContext, row database.Row) error {
	id, _ := util.Int64(row["entity_id"])
	if _, ok := row["path"]; !ok {
		parentID, _ := util.Int64(row["parent_id"])
		path := strconv.FormatInt(id, 10)
		if parentID != 0 {
			if parentPath := categoryPath(c, parentID); parentPath != "" {
				path = parentPath + "/" + path
			} else {
				path = strconv.FormatInt(parentID, 10) + "/" + path
			}
		}
		row["path"] = path
	}
	if _, ok := row["level"]; !ok {
		row["level"] = strings.Count(util.String(row["path"]), "/")
	}
	return nil
}

// categoryPath finds the parent's path in the current batch first, then in
// the database.
func categoryPath(c *LoadContext, id int64) string {
	if r, ok := c.Row(id); ok {
		if p := util.String(r["path"]); p != "" {
			return p
		}
	}
	rows, err := database.Select(c.DB, c.Type.Table, database.Row{"entity_id": id})
	if err != nil || len(rows) == 0 {
		return ""
	}
	return util.String(rows[0]["path"])
}

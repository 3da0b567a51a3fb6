package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

// templateSortColumns are the document_templates columns a listing may order by
var templateSortColumns = []string{"created_at", "updated_at", "name", "title", "document_type", "version"}

// templateOrder builds the ORDER BY for a template listing. Unknown columns
// fall back to created_at and anything but "asc" sorts descending; the
// version breaks ties so the newest version of equal rows comes first.
func templateOrder(orderBy, orderDir string) clause.OrderBy {
	column := "created_at"
	requested := strings.ToLower(strings.TrimSpace(orderBy))
	for _, c := range templateSortColumns {
		if c == requested {
			column = c
			break
		}
	}
	desc := !strings.EqualFold(strings.TrimSpace(orderDir), "asc")

	columns := []clause.OrderByColumn{{Column: clause.Column{Name: column}, Desc: desc}}
	if column != "version" {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "version"}, Desc: true})
	}
	return clause.OrderBy{Columns: columns}
}

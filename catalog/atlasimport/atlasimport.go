// Package atlasimport adapts an ariga.io/atlas schema description into a
// catalog.Catalog, giving the compiler a concrete (out-of-core-scope)
// implementation of the Catalog interface driven by live database
// introspection, grounded on the teacher's dialect/sql/schema migration
// machinery which already speaks atlas's schema model.
package atlasimport

import (
	"fmt"
	"strings"

	"ariga.io/atlas/sql/schema"
	"github.com/go-openapi/inflect"

	"github.com/syssam/navql/catalog"
)

// Import builds a catalog.Catalog from an atlas schema, deriving entity
// classes from tables, attributes from columns, and forward/reverse links
// from foreign keys exactly as catalog.Build does for a StaticSpec.
func Import(s *schema.Schema) (catalog.Catalog, error) {
	spec := catalog.StaticSpec{}
	for _, t := range s.Tables {
		es := catalog.EntitySpec{
			Name:  strings.ToLower(t.Name),
			Table: t.Name,
		}
		if pk := t.PrimaryKey; pk != nil {
			for _, part := range pk.Parts {
				if part.C != nil {
					es.PrimaryKey = append(es.PrimaryKey, strings.ToLower(part.C.Name))
				}
			}
		}
		for _, idx := range t.Indexes {
			if !idx.Unique {
				continue
			}
			var cols []string
			for _, part := range idx.Parts {
				if part.C != nil {
					cols = append(cols, strings.ToLower(part.C.Name))
				}
			}
			if len(cols) > 0 {
				es.UniqueKeys = append(es.UniqueKeys, cols)
			}
		}
		for _, c := range t.Columns {
			es.Attributes = append(es.Attributes, catalog.AttributeSpec{
				Name:     strings.ToLower(c.Name),
				Column:   c.Name,
				Domain:   domainForColumn(c),
				Nullable: c.Type != nil && c.Type.Null,
			})
		}
		for _, fk := range t.ForeignKeys {
			if fk.RefTable == nil {
				continue
			}
			var cols, refCols []string
			for _, c := range fk.Columns {
				cols = append(cols, c.Name)
			}
			for _, c := range fk.RefColumns {
				refCols = append(refCols, c.Name)
			}
			es.ForeignKeys = append(es.ForeignKeys, catalog.ForeignKeySpec{
				Columns:    cols,
				Target:     strings.ToLower(fk.RefTable.Name),
				TargetCols: refCols,
				ReverseName: inflect.Pluralize(strings.ToLower(t.Name)),
			})
		}
		spec.Entities = append(spec.Entities, es)
	}
	built, err := catalog.Build(spec)
	if err != nil {
		return nil, fmt.Errorf("atlasimport: %w", err)
	}
	return built, nil
}

// domainForColumn maps an atlas column type to a catalog.Domain. Types
// outside this list become catalog.Opaque rather than failing the import,
// since introspection (unlike compilation) is best-effort by design (§1:
// "Database introspection ... is out of scope; specified only via the
// interface it exposes to the compiler").
func domainForColumn(c *schema.Column) catalog.Domain {
	if c.Type == nil || c.Type.Type == nil {
		return catalog.Domain{Kind: catalog.Opaque}
	}
	switch t := c.Type.Type.(type) {
	case *schema.BoolType:
		return catalog.Domain{Kind: catalog.Boolean}
	case *schema.IntegerType:
		return catalog.Domain{Kind: catalog.Integer}
	case *schema.DecimalType:
		return catalog.Domain{Kind: catalog.Decimal}
	case *schema.FloatType:
		return catalog.Domain{Kind: catalog.Float}
	case *schema.StringType:
		return catalog.Domain{Kind: catalog.String}
	case *schema.TimeType:
		switch strings.ToLower(t.T) {
		case "date":
			return catalog.Domain{Kind: catalog.Date}
		case "time":
			return catalog.Domain{Kind: catalog.Time}
		default:
			return catalog.Domain{Kind: catalog.DateTime}
		}
	case *schema.EnumType:
		return catalog.Domain{Kind: catalog.Enum, EnumValues: t.Values}
	default:
		return catalog.Domain{Kind: catalog.Opaque}
	}
}

package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-openapi/inflect"
	"gopkg.in/yaml.v3"
)

// StaticSpec is the YAML-loadable description of a catalog, grounded on
// the teacher's own config-shaped YAML data. It lists entities and the
// foreign keys between them; Build derives the forward/reverse Link pairs
// automatically, pluralizing the reverse link name with inflect the same
// way a hand-written ORM would name a "has many" accessor.
type StaticSpec struct {
	Entities []EntitySpec `yaml:"entities"`
}

// EntitySpec describes one entity class in a StaticSpec.
type EntitySpec struct {
	Name       string            `yaml:"name"`
	Table      string            `yaml:"table"`
	PrimaryKey []string          `yaml:"primary_key"`
	UniqueKeys [][]string        `yaml:"unique_keys"`
	Attributes []AttributeSpec   `yaml:"attributes"`
	ForeignKeys []ForeignKeySpec `yaml:"foreign_keys"`
}

// AttributeSpec describes one attribute in an EntitySpec.
type AttributeSpec struct {
	Name     string   `yaml:"name"`
	Column   string   `yaml:"column"`
	Domain   string   `yaml:"domain"`
	Enum     []string `yaml:"enum"`
	Nullable bool     `yaml:"nullable"`
	Hidden   bool     `yaml:"hidden"`
}

// ForeignKeySpec describes one foreign key from this entity to another.
// The forward link (singular, named Name or the target entity's name by
// default) and the reverse link (plural, named ReverseName or an
// inflected plural of the origin entity by default) are both derived from
// it.
type ForeignKeySpec struct {
	Name        string   `yaml:"name"`
	Columns     []string `yaml:"columns"`
	Target      string   `yaml:"target"`
	TargetCols  []string `yaml:"target_columns"`
	Nullable    bool     `yaml:"nullable"`
	ReverseName string   `yaml:"reverse_name"`
	ReverseUnique bool   `yaml:"reverse_unique"`
}

// LoadStaticFile reads a StaticSpec from a YAML file and builds a Catalog.
func LoadStaticFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return LoadStatic(data)
}

// LoadStatic parses YAML bytes into a StaticSpec and builds a Catalog.
func LoadStatic(data []byte) (Catalog, error) {
	var spec StaticSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("catalog: parse yaml: %w", err)
	}
	return Build(spec)
}

// Static is an in-memory Catalog implementation.
type Static struct {
	order    []string
	entities map[string]Entity
	links    map[string][]Link
}

// Build assembles a Static catalog from a StaticSpec, deriving forward and
// reverse links for every foreign key.
func Build(spec StaticSpec) (*Static, error) {
	c := &Static{
		entities: make(map[string]Entity, len(spec.Entities)),
		links:    make(map[string][]Link, len(spec.Entities)),
	}
	for _, es := range spec.Entities {
		name := strings.ToLower(es.Name)
		e := Entity{
			Name:       name,
			Table:      es.Table,
			PrimaryKey: lowerAll(es.PrimaryKey),
		}
		if e.Table == "" {
			e.Table = name
		}
		for _, uk := range es.UniqueKeys {
			e.UniqueKeys = append(e.UniqueKeys, lowerAll(uk))
		}
		for _, as := range es.Attributes {
			col := as.Column
			if col == "" {
				col = as.Name
			}
			e.Attributes = append(e.Attributes, Attribute{
				Name:     strings.ToLower(as.Name),
				Column:   col,
				Domain:   Domain{Kind: DomainKind(as.Domain), EnumValues: as.Enum},
				Nullable: as.Nullable,
				Hidden:   as.Hidden,
			})
		}
		c.order = append(c.order, name)
		c.entities[name] = e
	}

	for _, es := range spec.Entities {
		origin := strings.ToLower(es.Name)
		for _, fk := range es.ForeignKeys {
			target := strings.ToLower(fk.Target)
			if _, ok := c.entities[target]; !ok {
				return nil, fmt.Errorf("catalog: entity %q: foreign key to unknown entity %q", origin, fk.Target)
			}
			var join []ColumnPair
			targetCols := fk.TargetCols
			if len(targetCols) == 0 {
				targetCols = c.entities[target].PrimaryKey
			}
			for i, col := range fk.Columns {
				tc := col
				if i < len(targetCols) {
					tc = targetCols[i]
				}
				join = append(join, ColumnPair{OriginColumn: col, TargetColumn: tc})
			}
			forwardName := strings.ToLower(fk.Name)
			if forwardName == "" {
				forwardName = target
			}
			reverseName := strings.ToLower(fk.ReverseName)
			if reverseName == "" {
				reverseName = inflect.Pluralize(origin)
			}

			forward := Link{
				Name:        forwardName,
				Origin:      origin,
				Target:      target,
				Cardinality: Cardinality{Plural: false, Total: !fk.Nullable},
				Unique:      true,
				Join:        join,
				Inverse:     reverseName,
			}
			reverseJoin := make([]ColumnPair, len(join))
			for i, p := range join {
				reverseJoin[i] = ColumnPair{OriginColumn: p.TargetColumn, TargetColumn: p.OriginColumn}
			}
			reverse := Link{
				Name:        reverseName,
				Origin:      target,
				Target:      origin,
				Cardinality: Cardinality{Plural: !fk.ReverseUnique, Total: false},
				Unique:      fk.ReverseUnique,
				Join:        reverseJoin,
				Inverse:     forwardName,
			}
			c.links[origin] = append(c.links[origin], forward)
			c.links[target] = append(c.links[target], reverse)
		}
	}
	return c, nil
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

// Entities implements Catalog.
func (c *Static) Entities() []Entity {
	out := make([]Entity, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, c.entities[n])
	}
	return out
}

// Entity implements Catalog.
func (c *Static) Entity(name string) (Entity, bool) {
	e, ok := c.entities[strings.ToLower(name)]
	return e, ok
}

// Attributes implements Catalog.
func (c *Static) Attributes(entity string) []Attribute {
	return c.entities[strings.ToLower(entity)].Attributes
}

// Links implements Catalog.
func (c *Static) Links(entity string) []Link {
	return c.links[strings.ToLower(entity)]
}

// PrimaryKey implements Catalog.
func (c *Static) PrimaryKey(entity string) []string {
	return c.entities[strings.ToLower(entity)].PrimaryKey
}

// UniqueKeys implements Catalog.
func (c *Static) UniqueKeys(entity string) [][]string {
	return c.entities[strings.ToLower(entity)].UniqueKeys
}

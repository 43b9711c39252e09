package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/catalog"
)

func universitySpec() catalog.StaticSpec {
	return catalog.StaticSpec{
		Entities: []catalog.EntitySpec{
			{
				Name:       "school",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "name", Domain: "string"},
					{Name: "campus", Domain: "string", Nullable: true},
				},
			},
			{
				Name:       "department",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "name", Domain: "string"},
					{Name: "school_code", Domain: "string", Nullable: true},
				},
				ForeignKeys: []catalog.ForeignKeySpec{
					{Name: "school", Columns: []string{"school_code"}, Target: "school", Nullable: true},
				},
			},
			{
				Name:       "course",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "title", Domain: "string"},
					{Name: "credits", Domain: "integer"},
					{Name: "department_code", Domain: "string"},
				},
				ForeignKeys: []catalog.ForeignKeySpec{
					{Name: "department", Columns: []string{"department_code"}, Target: "department"},
				},
			},
		},
	}
}

func TestBuildDerivesForwardAndReverseLinks(t *testing.T) {
	t.Parallel()

	c, err := catalog.Build(universitySpec())
	require.NoError(t, err)

	deptLinks := c.Links("department")
	require.Len(t, deptLinks, 2) // forward "school" + reverse "courses"

	var forward, reverse *catalog.Link
	for i := range deptLinks {
		l := deptLinks[i]
		if l.Target == "school" {
			forward = &l
		}
		if l.Target == "course" {
			reverse = &l
		}
	}
	require.NotNil(t, forward)
	require.NotNil(t, reverse)
	assert.Equal(t, "school", forward.Name)
	assert.False(t, forward.Cardinality.Plural)
	assert.False(t, forward.Cardinality.Total) // nullable FK => partial
	assert.True(t, forward.Unique)

	assert.Equal(t, "courses", reverse.Name)
	assert.True(t, reverse.Cardinality.Plural)
}

func TestBuildUnknownForeignKeyTarget(t *testing.T) {
	t.Parallel()

	spec := universitySpec()
	spec.Entities[1].ForeignKeys[0].Target = "nonexistent"
	_, err := catalog.Build(spec)
	require.Error(t, err)
}

func TestLoadStaticYAML(t *testing.T) {
	t.Parallel()

	yamlSrc := []byte(`
entities:
  - name: school
    primary_key: [code]
    attributes:
      - {name: code, domain: string}
      - {name: name, domain: string}
  - name: department
    primary_key: [code]
    attributes:
      - {name: code, domain: string}
      - {name: school_code, domain: string, nullable: true}
    foreign_keys:
      - {columns: [school_code], target: school, nullable: true}
`)
	c, err := catalog.LoadStatic(yamlSrc)
	require.NoError(t, err)
	ent, ok := c.Entity("school")
	require.True(t, ok)
	assert.Equal(t, "school", ent.Name)
	assert.Equal(t, []string{"code"}, c.PrimaryKey("department"))
}

package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/scope"
)

func testCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(catalog.StaticSpec{
		Entities: []catalog.EntitySpec{
			{
				Name:       "department",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "name", Domain: "string"},
				},
			},
			{
				Name:       "course",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "department_code", Domain: "string"},
				},
				ForeignKeys: []catalog.ForeignKeySpec{
					{Name: "department", Columns: []string{"department_code"}, Target: "department"},
				},
			},
		},
	})
	require.NoError(t, err)
	return c
}

func TestRootScopeHasClassesAndBuiltins(t *testing.T) {
	t.Parallel()

	root := scope.Root(testCatalog(t), []string{"count", "avg"})
	b, ok := root.Lookup("course")
	require.True(t, ok)
	assert.Equal(t, scope.Class, b.Kind)

	b, ok = root.Lookup("count")
	require.True(t, ok)
	assert.Equal(t, scope.Builtin, b.Kind)

	_, ok = root.Lookup("code")
	assert.False(t, ok, "attributes are not visible from the root scope")
}

func TestClassScopeLinkShadowsAttribute(t *testing.T) {
	t.Parallel()

	root := scope.Root(testCatalog(t), nil)
	courseScope := scope.Class(root, testCatalog(t), "course")

	b, ok := courseScope.Lookup("department")
	require.True(t, ok)
	assert.Equal(t, scope.Link, b.Kind)

	b, ok = courseScope.Lookup("code")
	require.True(t, ok)
	assert.Equal(t, scope.Attribute, b.Kind)

	// Ordinary lookup never walks up to the root scope.
	_, ok = courseScope.Lookup("count")
	assert.False(t, ok)
}

func TestExtendDoesNotMutateParent(t *testing.T) {
	t.Parallel()

	root := scope.Root(testCatalog(t), nil)
	courseScope := scope.Class(root, testCatalog(t), "course")
	extended := courseScope.Extend(scope.Binding{Kind: scope.Calculated, Name: "double", DefScope: courseScope})

	_, ok := extended.Lookup("double")
	assert.True(t, ok)

	_, ok = courseScope.Lookup("double")
	assert.False(t, ok, "extending a scope must not mutate the scope it was derived from")
}

func TestLookupReferenceWalksOutward(t *testing.T) {
	t.Parallel()

	root := scope.Root(testCatalog(t), nil)
	withRef := root.Extend(scope.Binding{Kind: scope.Reference, Name: "a", DefScope: root})
	courseScope := scope.Class(withRef, testCatalog(t), "course")

	_, ok := courseScope.Lookup("a")
	assert.False(t, ok, "a reference is not an ordinary name in a descendant scope")

	b, ok := courseScope.LookupReference("a")
	require.True(t, ok)
	assert.Equal(t, scope.Reference, b.Kind)

	_, ok = courseScope.LookupReference("nonexistent")
	assert.False(t, ok)
}

func TestProjectionScopeExposesKernelAndComplement(t *testing.T) {
	t.Parallel()

	root := scope.Root(testCatalog(t), nil)
	proj := scope.Projection(root, []string{"department"}, "course", "course")

	b, ok := proj.Lookup("department")
	require.True(t, ok)
	assert.Equal(t, scope.KernelPart, b.Kind)

	b, ok = proj.Lookup("course")
	require.True(t, ok)
	assert.Equal(t, scope.Complement, b.Kind)
}

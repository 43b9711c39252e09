package term_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/binder"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/flow"
	"github.com/syssam/navql/parser"
	"github.com/syssam/navql/term"
)

func universityCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(catalog.StaticSpec{
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
					{Name: "school", Columns: []string{"school_code"}, Target: "school", Nullable: true, ReverseName: "department"},
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
	})
	require.NoError(t, err)
	return c
}

func compileSource(t *testing.T, source string) (*term.Select, catalog.Catalog) {
	t.Helper()
	cat := universityCatalog(t)
	q, err := parser.ParseSource(source)
	require.NoError(t, err, "parse %q", source)
	bq, _, berr := binder.New(cat).Bind(q)
	require.NoError(t, berr, "bind %q", source)
	sel, err := flow.NewEncoder().Encode(bq)
	require.NoError(t, err, "encode %q", source)
	out, err := term.NewCompiler(cat).Compile(sel)
	require.NoError(t, err, "compile %q", source)
	return out, cat
}

// Scenario 1: a bare class selection produces a single Source relation,
// a Column per attribute, and a primary-key ORDER BY injected by default.
func TestCompileBareClass(t *testing.T) {
	t.Parallel()

	sel, _ := compileSource(t, "/school")
	src, ok := sel.From.(*term.Source)
	require.True(t, ok, "expected Source, got %T", sel.From)
	assert.Equal(t, "school", src.Table.Entity)
	require.Len(t, sel.Columns, 3)
	require.Len(t, sel.OrderBy, 1)
	assert.Equal(t, term.ColumnExpr{Alias: src.Table.Alias, Column: "code"}, sel.OrderBy[0].Expr)
}

// Scenario 2: count(department) embeds a correlated left-outer-joined
// grouped subquery, folded onto the root relation, with a COALESCE(_, 0)
// identity fallback.
func TestCompileAggregateOverLink(t *testing.T) {
	t.Parallel()

	sel, _ := compileSource(t, "/school{name, count(department)}")
	join, ok := sel.From.(*term.Join)
	require.True(t, ok, "expected the aggregate subquery folded onto the root as a Join, got %T", sel.From)
	assert.Equal(t, term.LeftJoin, join.Kind)
	sub, ok := join.Right.(*term.Subquery)
	require.True(t, ok, "expected Subquery, got %T", join.Right)
	assert.NotEmpty(t, sub.Select.GroupBy)

	coalesce, ok := sel.Columns[1].Expr.(term.CoalesceExpr)
	require.True(t, ok, "expected CoalesceExpr, got %T", sel.Columns[1].Expr)
	assert.Equal(t, 0, coalesce.Identity.(term.LiteralExpr).Value)
}

// Scenario 3: a sieve across a composition produces a Join in the root
// relation and an AND'd Where predicate referencing the joined alias.
func TestCompileSieveAcrossComposition(t *testing.T) {
	t.Parallel()

	sel, _ := compileSource(t, "/course?credits>3&department.school_code='eng'")
	join, ok := sel.From.(*term.Join)
	require.True(t, ok, "expected Join, got %T", sel.From)
	assert.Equal(t, term.InnerJoin, join.Kind, "a total forward link joins inner")
	require.NotNil(t, sel.Where)
	call, ok := sel.Where.(term.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "&", call.Name)
}

// Scenario 4: a projection becomes a grouped Subquery relation; the
// complement aggregate is added to that same subquery rather than a
// second correlated one.
func TestCompileProjectionComplement(t *testing.T) {
	t.Parallel()

	sel, _ := compileSource(t, "/school^campus{campus, count(school)}")
	sub, ok := sel.From.(*term.Subquery)
	require.True(t, ok, "expected Subquery, got %T", sel.From)
	require.Len(t, sub.Select.GroupBy, 1)

	campusCol := sel.Columns[0].Expr.(term.ColumnExpr)
	assert.Equal(t, sub.Alias, campusCol.Alias)

	countCol := sel.Columns[1].Expr.(term.ColumnExpr)
	assert.Equal(t, sub.Alias, countCol.Alias, "count(school) must read from the same grouped subquery as the kernel")
	assert.Len(t, sub.Select.Columns, 2, "the complement aggregate must be appended to the grouping subquery's own columns")
}

// Scenario 5: a root-level reference aggregate lowers to an uncorrelated
// scalar subquery, not a joined one.
func TestCompileRootAggregateReference(t *testing.T) {
	t.Parallel()

	sel, _ := compileSource(t, "/define($a:=avg(course.credits)).course{title,credits}?credits>$a")
	_, isJoin := sel.From.(*term.Join)
	assert.False(t, isJoin, "a root-level aggregate must not fold a correlated join onto the root relation")

	call := sel.Where.(term.CallExpr)
	assert.Equal(t, ">", call.Name)
	scalar, ok := call.Args[1].(term.ScalarSubqueryExpr)
	require.True(t, ok, "expected ScalarSubqueryExpr, got %T", call.Args[1])
	assert.Equal(t, "avg", scalar.Select.Columns[0].Expr.(term.CallExpr).Name)
}

// A `+` formula's CallExpr carries its own result domain, so the SQL
// writer can dispatch string concatenation separately from numeric
// addition without re-deriving types from rendered operands.
func TestCompileFormulaCarriesResultDomain(t *testing.T) {
	t.Parallel()

	strSel, _ := compileSource(t, "/define(course.label := title + title).course{label}")
	strCall := strSel.Columns[0].Expr.(term.CallExpr)
	assert.Equal(t, "+", strCall.Name)
	assert.Equal(t, catalog.String, strCall.Domain.Kind)

	numSel, _ := compileSource(t, "/define(course.bonus := credits + credits).course{bonus}")
	numCall := numSel.Columns[0].Expr.(term.CallExpr)
	assert.Equal(t, "+", numCall.Name)
	assert.Equal(t, catalog.Integer, numCall.Domain.Kind)
}

// Scenario 6: a nested segment compiles to its own correlated Select,
// ordered by the correlating column ahead of its own primary key.
func TestCompileNestedSegment(t *testing.T) {
	t.Parallel()

	sel, _ := compileSource(t, "/school{name, /department{name}}")
	require.Len(t, sel.Nested, 1)
	nested := sel.Nested[0]
	assert.Equal(t, "department", nested.FieldName)
	require.NotEmpty(t, nested.ParentKeys)
	require.NotEmpty(t, nested.Select.OrderBy)
}

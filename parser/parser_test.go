package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/ast"
	"github.com/syssam/navql/parser"
)

func mustParse(t *testing.T, src string) *ast.Query {
	t.Helper()
	q, err := parser.ParseSource(src)
	require.NoError(t, err, "source: %s", src)
	return q
}

func TestParseBareClass(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school")
	id, ok := q.Root.(*ast.Identifier)
	require.True(t, ok)
	assert.Equal(t, "school", id.Name)
	assert.Equal(t, "", q.Format)
}

func TestParseSelection(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school{name, count(department)}")
	sel, ok := q.Root.(*ast.Selection)
	require.True(t, ok)
	require.Len(t, sel.Items, 2)
	_, ok = sel.Items[0].(*ast.Identifier)
	assert.True(t, ok)
	fn, ok := sel.Items[1].(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "count", fn.Name)
}

func TestParseFilterAndComposition(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/course?credits>3&department.school_code='eng'")
	sieve, ok := q.Root.(*ast.Sieve)
	require.True(t, ok)
	and, ok := sieve.Predicate.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "&", and.Op)
}

func TestParseProjection(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school^campus{campus, count(school)}")
	sel, ok := q.Root.(*ast.Selection)
	require.True(t, ok)
	proj, ok := sel.Target.(*ast.Projection)
	require.True(t, ok)
	_, ok = proj.Target.(*ast.Identifier)
	assert.True(t, ok)
}

func TestParseDefineAndReference(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/define($a:=avg(course.credits)).course{title,credits}?credits>$a")
	sieve, ok := q.Root.(*ast.Sieve)
	require.True(t, ok)
	comp, ok := sieve.Target.(*ast.Selection)
	require.True(t, ok)
	inner, ok := comp.Target.(*ast.Composition)
	require.True(t, ok)
	call, ok := inner.Left.(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "define", call.Name)
	assign, ok := call.Args[0].(*ast.Assignment)
	require.True(t, ok)
	assert.Equal(t, "a", assign.Name)
	ref, ok := sieve.Predicate.(*ast.Binary)
	require.True(t, ok)
	_, ok = ref.Right.(*ast.Reference)
	assert.True(t, ok)
}

func TestParseNestedSegment(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school{name, /department{name}}")
	sel, ok := q.Root.(*ast.Selection)
	require.True(t, ok)
	require.Len(t, sel.Items, 2)
	_, ok = sel.Items[1].(*ast.NestedSegment)
	assert.True(t, ok)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school/:json")
	assert.Equal(t, "json", q.Format)
}

func TestParseSortDirection(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school.sort(name+,founded-)")
	comp, ok := q.Root.(*ast.Composition)
	require.True(t, ok)
	call, ok := comp.Right.(*ast.FunctionCall)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	d1, ok := call.Args[0].(*ast.Direction)
	require.True(t, ok)
	assert.Equal(t, "+", d1.Dir)
	d2, ok := call.Args[1].(*ast.Direction)
	require.True(t, ok)
	assert.Equal(t, "-", d2.Dir)
}

func TestParseInList(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/course?department = {'eng','cs'}")
	sieve := q.Root.(*ast.Sieve)
	inList, ok := sieve.Predicate.(*ast.InList)
	require.True(t, ok)
	assert.Len(t, inList.Items, 2)
}

func TestParseInfixCallDesugars(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/course{credits :round}")
	sel := q.Root.(*ast.Selection)
	inf, ok := sel.Items[0].(*ast.InfixCall)
	require.True(t, ok)
	assert.Equal(t, "round", inf.Name)
}

func TestParseWildcardIndex(t *testing.T) {
	t.Parallel()
	q := mustParse(t, "/school^campus{*1}")
	sel := q.Root.(*ast.Selection)
	w, ok := sel.Items[0].(*ast.Wildcard)
	require.True(t, ok)
	assert.Equal(t, 1, w.N)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	_, err := parser.ParseSource("/school{")
	require.Error(t, err)
	_, err = parser.ParseSource("")
	require.Error(t, err)
}

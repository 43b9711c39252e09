package binder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/binder"
	"github.com/syssam/navql/bound"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/diag"
	"github.com/syssam/navql/parser"
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

// bindSource parses and binds source against the sample university
// catalog, failing the test on either a parse or a bind error.
func bindSource(t *testing.T, source string) (*bound.Query, *diag.Bag) {
	t.Helper()
	q, err := parser.ParseSource(source)
	require.NoError(t, err, "parse %q", source)
	result, bag, berr := binder.New(universityCatalog(t)).Bind(q)
	require.NoError(t, berr, "bind %q", source)
	return result, bag
}

func bindSourceErr(t *testing.T, source string) *diag.Diagnostic {
	t.Helper()
	q, err := parser.ParseSource(source)
	require.NoError(t, err, "parse %q", source)
	_, _, berr := binder.New(universityCatalog(t)).Bind(q)
	require.Error(t, berr)
	d, ok := berr.(*diag.Diagnostic)
	require.True(t, ok, "expected *diag.Diagnostic, got %T", berr)
	return d
}

// Scenario 1: `/school` selects every attribute of school.
func TestScenarioBareClassSelectsEveryAttribute(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/school")
	sel, ok := result.Root.(*bound.Selection)
	require.True(t, ok, "expected implicit Selection, got %T", result.Root)

	var names []string
	for _, f := range sel.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"code", "name", "campus"}, names)
	assert.False(t, sel.Plural(), "a bare class is its own row context, not yet plural relative to anything")
}

// Scenario 2: `/school{name, count(department)}` aggregates a plural link
// to a singular count per school.
func TestScenarioAggregateOverLink(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/school{name, count(department)}")
	sel := result.Root.(*bound.Selection)
	require.Len(t, sel.Fields, 2)

	assert.Equal(t, "name", sel.Fields[0].Name)
	assert.False(t, sel.Fields[0].Value.Plural())

	countField := sel.Fields[1]
	assert.Equal(t, "count", countField.Name)
	call, ok := countField.Value.(*bound.Call)
	require.True(t, ok)
	assert.Equal(t, "count", call.Name)
	assert.True(t, call.Aggregate)
	assert.False(t, call.Plural(), "an aggregate call always collapses back to singular")
	assert.True(t, call.Args[0].Plural(), "count()'s argument must be the plural department link")
}

// Scenario 3: a filter combining a direct attribute and a traversed one.
func TestScenarioSieveAcrossComposition(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/course?credits>3&department.school_code='eng'")
	sel, ok := result.Root.(*bound.Selection)
	require.True(t, ok, "expected implicit Selection, got %T", result.Root)
	sieve, ok := sel.Base.(*bound.Sieve)
	require.True(t, ok, "expected Sieve, got %T", sel.Base)

	pred, ok := sieve.Predicate.(*bound.Call)
	require.True(t, ok)
	assert.Equal(t, "&", pred.Name)

	left := pred.Args[0].(*bound.Call)
	assert.Equal(t, ">", left.Name)
	assert.Equal(t, "credits", left.Args[0].(*bound.Attribute).Attr.Name)

	right := pred.Args[1].(*bound.Call)
	assert.Equal(t, "=", right.Name)
	attr := right.Args[0].(*bound.Attribute)
	assert.Equal(t, "school_code", attr.Attr.Name)
	_, onLink := attr.Base.(*bound.Link)
	assert.True(t, onLink, "school_code must be selected off the department link traversal")
}

// Scenario 4: `/school^campus{campus, count(school)}` groups by campus and
// counts schools per group via the projection's complement.
func TestScenarioProjectionWithComplementAggregate(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/school^campus{campus, count(school)}")
	sel := result.Root.(*bound.Selection)
	require.Len(t, sel.Fields, 2)

	proj, ok := sel.Base.(*bound.Projection)
	require.True(t, ok, "expected Projection base, got %T", sel.Base)
	assert.Equal(t, []string{"campus"}, proj.KernelNames)
	assert.Equal(t, "school", proj.ComplementEntity)

	assert.Equal(t, "campus", sel.Fields[0].Name)
	_, isKernelPart := sel.Fields[0].Value.(*bound.Attribute)
	assert.True(t, isKernelPart, "campus resolves to the kernel's attribute value")

	countCall := sel.Fields[1].Value.(*bound.Call)
	assert.True(t, countCall.Aggregate)
	complement, ok := countCall.Args[0].(*bound.Complement)
	require.True(t, ok, "count(school) must count the projection's complement")
	assert.Equal(t, "school", complement.Entity)
	assert.True(t, complement.Plural())
}

// Scenario 5: a define()'d reference is visible to the sieve that follows
// it, and is bound exactly once (shared Node value at every use).
func TestScenarioDefineReferenceVisibleToTrailingSieve(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/define($a:=avg(course.credits)).course{title,credits}?credits>$a")
	sieve, ok := result.Root.(*bound.Sieve)
	require.True(t, ok, "expected Sieve wrapping the selection, got %T", result.Root)

	sel, ok := sieve.Base.(*bound.Selection)
	require.True(t, ok)
	require.Len(t, sel.Fields, 2)

	pred := sieve.Predicate.(*bound.Call)
	assert.Equal(t, ">", pred.Name)
	ref, ok := pred.Args[1].(*bound.Reference)
	require.True(t, ok, "expected a Reference on the right of credits>$a, got %T", pred.Args[1])
	assert.Equal(t, "a", ref.Name)

	avgCall, ok := ref.Value.(*bound.Call)
	require.True(t, ok)
	assert.Equal(t, "avg", avgCall.Name)
	assert.True(t, avgCall.Aggregate)
}

// Scenario 6: a nested segment produces an explicitly-plural Nested field
// rather than tripping the output-plurality invariant.
func TestScenarioNestedSegmentProducesNestedField(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/school{name, /department{name}}")
	sel := result.Root.(*bound.Selection)
	require.Len(t, sel.Fields, 2)

	assert.Equal(t, "name", sel.Fields[0].Name)
	assert.Nil(t, sel.Fields[0].Nested)

	nested := sel.Fields[1]
	assert.Equal(t, "department", nested.Name)
	require.NotNil(t, nested.Nested)
	assert.True(t, nested.Nested.Plural())
	require.Len(t, nested.Nested.Fields, 1)
	assert.Equal(t, "name", nested.Nested.Fields[0].Name)
}

func TestOutputPluralityInvariantRejectsBarePluralColumn(t *testing.T) {
	t.Parallel()

	d := bindSourceErr(t, "/school{name, department{name}}")
	assert.Equal(t, diag.PluralityError, d.Kind)
}

func TestForwardReferenceToClassAssignmentIsRejected(t *testing.T) {
	t.Parallel()

	d := bindSourceErr(t, "/course{bonus, define(course.bonus := credits*2)}")
	assert.Equal(t, diag.ForwardReference, d.Kind)
}

func TestClassAssignmentVisibleAfterItsDefinition(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/define(course.bonus := credits*2).course{title, bonus}")
	sel := result.Root.(*bound.Selection)
	require.Len(t, sel.Fields, 2)
	assert.Equal(t, "bonus", sel.Fields[1].Name)
	call := sel.Fields[1].Value.(*bound.Call)
	assert.Equal(t, "*", call.Name)
}

func TestWhereScopedReferenceDoesNotLeakToTrailingSieve(t *testing.T) {
	t.Parallel()

	// The $x introduced by where(...) does not leak to a subsequent,
	// independent part of the query (§4.4.1): credits>$x there sees no
	// local binding for $x, so it binds as an ordinary external
	// parameter (§6.5) rather than reusing where()'s local value —
	// the source syntax can't tell the two cases apart at the reference
	// site, and an out-of-scope name is exactly what an external
	// parameter looks like. Undeclared, it starts untyped and the
	// comparison pins it to credits' integer domain.
	result, _ := bindSource(t, "/course{title, where(credits*2, $x:=1)}?credits>$x")
	sieve, ok := result.Root.(*bound.Sieve)
	require.True(t, ok, "expected Sieve wrapping the selection, got %T", result.Root)
	pred := sieve.Predicate.(*bound.Call)
	ref := pred.Args[1].(*bound.Reference)
	assert.Equal(t, "x", ref.Name)
	param, ok := ref.Value.(*bound.Parameter)
	require.True(t, ok, "expected $x outside where()'s scope to bind as an external Parameter, got %T", ref.Value)
	assert.Equal(t, catalog.Integer, param.Domain().Kind)
}

// Scenario 7 (§6.5): an external `$name` with no local define()/where()
// binding binds as a Parameter, typed from the caller's paramDomains.
func TestExternalParameterBindsFromParamDomains(t *testing.T) {
	t.Parallel()

	q, err := parser.ParseSource("/course?credits>$min_credits")
	require.NoError(t, err)
	result, _, berr := binder.NewWithParamDomains(universityCatalog(t), map[string]catalog.Domain{
		"min_credits": {Kind: catalog.Integer},
	}).Bind(q)
	require.NoError(t, berr)

	sel, ok := result.Root.(*bound.Selection)
	require.True(t, ok, "expected implicit Selection, got %T", result.Root)
	sieve, ok := sel.Base.(*bound.Sieve)
	require.True(t, ok, "expected Sieve under the implicit selection, got %T", sel.Base)
	pred := sieve.Predicate.(*bound.Call)
	ref := pred.Args[1].(*bound.Reference)
	assert.Equal(t, "min_credits", ref.Name)
	param, ok := ref.Value.(*bound.Parameter)
	require.True(t, ok, "expected $min_credits to bind as a Parameter, got %T", ref.Value)
	assert.Equal(t, catalog.Integer, param.Domain().Kind)
}

// An external `$name` absent from paramDomains still binds rather than
// producing a diagnostic (§6.5): it starts untyped, and the comparison
// then pins it to credits' integer domain.
func TestExternalParameterDefaultsToUntyped(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/course?credits>$unspecified")
	sieve := result.Root.(*bound.Selection).Base.(*bound.Sieve)
	pred := sieve.Predicate.(*bound.Call)
	ref := pred.Args[1].(*bound.Reference)
	param := ref.Value.(*bound.Parameter)
	assert.Equal(t, catalog.Integer, param.Domain().Kind)
}

func TestWhereEvaluatesItsExpressionArgumentInExtendedScope(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/course{title, where(credits*2, $x:=1)}")
	sel := result.Root.(*bound.Selection)
	require.Len(t, sel.Fields, 2)
	assert.Equal(t, "where", sel.Fields[1].Name)
	call := sel.Fields[1].Value.(*bound.Call)
	assert.Equal(t, "*", call.Name)
}

func TestLinkShadowsSameNamedAttributeAndWarns(t *testing.T) {
	t.Parallel()

	// department has both a "school_code" attribute and (via its foreign
	// key) a "school" link; build a catalog where a link and an attribute
	// share a name to exercise the shadowing warning (§4.4.2).
	c, err := catalog.Build(catalog.StaticSpec{
		Entities: []catalog.EntitySpec{
			{
				Name:       "school",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{{Name: "code", Domain: "string"}},
			},
			{
				Name:       "department",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "school", Domain: "string", Nullable: true},
				},
				ForeignKeys: []catalog.ForeignKeySpec{
					{Name: "school", Columns: []string{"school"}, Target: "school", Nullable: true},
				},
			},
		},
	})
	require.NoError(t, err)

	q, err := parser.ParseSource("/department{school}")
	require.NoError(t, err)
	result, bag, berr := binder.New(c).Bind(q)
	require.NoError(t, berr)

	sel := result.Root.(*bound.Selection)
	_, isLink := sel.Fields[0].Value.(*bound.Link)
	assert.True(t, isLink, "a link shadows a same-named attribute")

	require.Len(t, bag.Warnings, 1)
	assert.Equal(t, diag.NameShadowed, bag.Warnings[0].Kind)
}

func TestCoercionPinsUntypedLiteralToComparedAttributeDomain(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/course?credits=null")
	sieve := result.Root.(*bound.Selection).Base.(*bound.Sieve)
	pred := sieve.Predicate.(*bound.Call)
	lit, ok := pred.Args[1].(*bound.Literal)
	require.True(t, ok)
	assert.Equal(t, catalog.Integer, lit.Domain().Kind)
}

func TestBooleanCoercionInsertsCastNode(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/course?title")
	sieve := result.Root.(*bound.Selection).Base.(*bound.Sieve)
	_, ok := sieve.Predicate.(*bound.Cast)
	require.True(t, ok, "a non-boolean sieve predicate must be wrapped in a Cast-to-boolean node")
	assert.Equal(t, catalog.Boolean, sieve.Predicate.Domain().Kind)
}

func TestAggregateOfSingularIsRejected(t *testing.T) {
	t.Parallel()

	d := bindSourceErr(t, "/course{title, count(title)}")
	assert.Equal(t, diag.AggregateOfSingular, d.Kind)
}

// A class-rooted aggregate argument at the query's root scope ranges over
// every row of that class and is accepted (§8 scenario 5), even though the
// same class used as a selection's own base is singular relative to itself.
func TestAggregateOfRootClassIsAccepted(t *testing.T) {
	t.Parallel()

	result, _ := bindSource(t, "/define($a:=avg(course.credits)).course{title}")
	sel := result.Root.(*bound.Selection)
	require.Len(t, sel.Fields, 1)
}

func TestAggregateOfLiteralAtRootIsStillRejected(t *testing.T) {
	t.Parallel()

	d := bindSourceErr(t, "/define($a:=avg(5)).course{title}")
	assert.Equal(t, diag.AggregateOfSingular, d.Kind)
}

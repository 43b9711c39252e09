// Package term implements the relational term tree the compiler lowers
// flow algebra into (spec.md §4.6): a tree of joins, filters, grouping,
// ordering, and limits that corresponds 1:1 to SQL constructs, with all
// per-dialect variation left to the SQL writer.
package term

import "github.com/syssam/navql/catalog"

// JoinKind selects the join strategy chosen for a Composed flow (§4.6.1).
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Table names a physical relation and the alias it is addressed by
// within one statement.
type Table struct {
	Entity string
	Name   string
	Alias  string
}

// Relation is one FROM-clause constituent: a table, a join of two
// relations, or a derived subquery.
type Relation interface {
	relationNode()
}

// Source is a bare table reference.
type Source struct {
	Table *Table
}

func (*Source) relationNode() {}

// Equality is one `left = right` join predicate.
type Equality struct {
	Left  Expr
	Right Expr
}

// Join joins two relations on a list of key equalities.
type Join struct {
	Left  Relation
	Kind  JoinKind
	Right Relation
	On    []Equality
}

func (*Join) relationNode() {}

// Subquery wraps a nested Select as a FROM-clause relation, addressed by
// Alias in the enclosing statement.
type Subquery struct {
	Select *Select
	Alias  string
}

func (*Subquery) relationNode() {}

// Expr is a scalar SQL expression.
type Expr interface {
	exprNode()
}

// ColumnExpr qualifies a physical column by the alias of the relation it
// comes from.
type ColumnExpr struct {
	Alias  string
	Column string
}

func (ColumnExpr) exprNode() {}

// LiteralExpr is a constant value to be rendered as a bound parameter or
// an inline literal, at the SQL writer's discretion.
type LiteralExpr struct {
	Value  any
	Domain catalog.Domain
}

func (LiteralExpr) exprNode() {}

// ParamExpr is an external `$name` reference with no value known at
// compile time (§6.5): the SQL writer renders it as a bound placeholder
// and reports it in its own Result so the embedder can supply the value
// by name at execution time.
type ParamExpr struct {
	Name   string
	Domain catalog.Domain
}

func (ParamExpr) exprNode() {}

// CallExpr is a resolved function or operator application. Domain is the
// call's own result domain (zero value if not meaningful, e.g. for `&`);
// it lets the SQL writer dispatch `+` between numeric addition and string
// concatenation without re-deriving types from the rendered operands.
type CallExpr struct {
	Name   string
	Args   []Expr
	Domain catalog.Domain
}

func (CallExpr) exprNode() {}

// CastExpr coerces an expression's rendered type.
type CastExpr struct {
	Expr   Expr
	Target catalog.Domain
}

func (CastExpr) exprNode() {}

// CoalesceExpr is the `COALESCE(expr, identity)` fallback an embedded
// aggregate needs when its correlated subquery produced no row (§4.6.1).
type CoalesceExpr struct {
	Expr     Expr
	Identity Expr
}

func (CoalesceExpr) exprNode() {}

// ScalarSubqueryExpr is an uncorrelated aggregate computed once over an
// entire flow with no enclosing row context — e.g. a reference defined
// at a query's root (`define($a := avg(course.credits))`), which ranges
// over the whole class rather than correlating to an outer row.
type ScalarSubqueryExpr struct {
	Select *Select
}

func (ScalarSubqueryExpr) exprNode() {}

// OutputColumn is one named column of a Select's projection.
type OutputColumn struct {
	Name string
	Expr Expr
}

// OrderTerm is one key of an ORDER BY clause.
type OrderTerm struct {
	Expr       Expr
	Descending bool
	NullsFirst bool
}

// NestedSelect is a correlated child statement produced by a nested
// segment (§4.6.5): its own independent Select, plus the columns that
// identify which parent row each of its rows belongs to.
type NestedSelect struct {
	FieldName  string
	ParentKeys []Expr
	Select     *Select
}

// Select is one relational statement: the term-tree equivalent of a
// single SQL SELECT (sans dialect-specific rendering).
type Select struct {
	From    Relation
	Where   Expr
	GroupBy []Expr
	Columns []OutputColumn
	OrderBy []OrderTerm
	Limit   *int
	Offset  *int
	Nested  []NestedSelect
}

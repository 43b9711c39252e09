package term

import (
	"fmt"
	"strings"

	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/flow"
)

// Compiler lowers one flow.Selection into a relational term tree
// (spec.md §4.6). A Compiler is single-use: create one per Compile call.
type Compiler struct {
	cat catalog.Catalog

	aliasSeq int
	relFor   map[flow.Flow]Relation
	aliasOf  map[flow.Flow]string

	// kernelCols resolves a Column over a Quotient's pre-group base flow
	// to the grouped subquery's own output alias for that kernel part,
	// keyed by fmt.Sprintf("%p.%s", base, attrName) (§4.6.1 projection).
	kernelCols map[string]string

	// quotientSubquery/quotientAlias let a Complement aggregate (whose
	// Flow is literally the Quotient's own base, §4.5 encoder) add its
	// aggregate directly to that same grouped subquery rather than
	// opening a second correlated one.
	quotientSubquery map[flow.Flow]*Select
	quotientAlias    map[flow.Flow]string

	// extraJoins collects the correlated aggregate subqueries built
	// while compiling fields; folded onto the root relation once the
	// whole selection has been walked.
	extraJoins []extraJoin
}

type extraJoin struct {
	Relation Relation
	On       []Equality
}

// NewCompiler builds a Compiler bound to a catalog snapshot.
func NewCompiler(cat catalog.Catalog) *Compiler {
	return &Compiler{
		cat:              cat,
		relFor:           make(map[flow.Flow]Relation),
		aliasOf:          make(map[flow.Flow]string),
		kernelCols:       make(map[string]string),
		quotientSubquery: make(map[flow.Flow]*Select),
		quotientAlias:    make(map[flow.Flow]string),
	}
}

// Compile lowers a top-level selection into a Select statement.
func (c *Compiler) Compile(sel *flow.Selection) (*Select, error) {
	out, err := c.compileSelection(sel)
	if err != nil {
		return nil, err
	}
	out.From = c.foldExtraJoins(out.From)
	return out, nil
}

func (c *Compiler) compileSelection(sel *flow.Selection) (*Select, error) {
	var predicates []flow.Code
	var sortKeys []flow.SortKey
	var limit, offset *int

	base := sel.Base
	for {
		switch v := base.(type) {
		case *flow.Filtered:
			predicates = append(predicates, v.Predicate)
			base = v.Base
		case *flow.Ordered:
			sortKeys = append(sortKeys, v.Keys...)
			base = v.Base
		case *flow.Sliced:
			limit, offset = v.Limit, v.Offset
			base = v.Base
		default:
			goto unwrapped
		}
	}
unwrapped:

	rootRel, rootAlias := c.compileFlow(base)

	out := &Select{From: rootRel}

	for _, p := range predicates {
		expr, err := c.compileCode(p)
		if err != nil {
			return nil, err
		}
		out.Where = and(out.Where, expr)
	}

	for _, f := range sel.Fields {
		if f.Nested != nil {
			nested, err := c.compileNested(f, base, rootAlias)
			if err != nil {
				return nil, err
			}
			out.Nested = append(out.Nested, *nested)
			continue
		}
		expr, err := c.compileCode(f.Value)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, OutputColumn{Name: f.Name, Expr: expr})
	}

	if len(sortKeys) > 0 {
		for _, k := range sortKeys {
			expr, err := c.compileCode(k.Value)
			if err != nil {
				return nil, err
			}
			out.OrderBy = append(out.OrderBy, OrderTerm{Expr: expr, Descending: k.Descending, NullsFirst: k.NullsFirst})
		}
	} else if entity := base.Entity(); entity != "" {
		// No explicit sort: inject the base flow's primary key so every
		// query result is deterministically ordered (§4.6.2).
		for _, pk := range c.cat.PrimaryKey(entity) {
			out.OrderBy = append(out.OrderBy, OrderTerm{Expr: ColumnExpr{Alias: rootAlias, Column: pk}})
		}
	}

	out.Limit, out.Offset = limit, offset
	return out, nil
}

// compileNested compiles a `/sub` segment into its own correlated Select
// (§4.6.5), one statement per nesting level.
func (c *Compiler) compileNested(f flow.Field, parentFlow flow.Flow, parentAlias string) (*NestedSelect, error) {
	child := NewCompiler(c.cat)
	childSelect, err := child.Compile(f.Nested.Selection)
	if err != nil {
		return nil, err
	}

	composed, ok := f.Nested.Flow.(*flow.Composed)
	if !ok {
		return nil, fmt.Errorf("term: nested segment flow %T is not a link traversal", f.Nested.Flow)
	}
	var parentKeys []Expr
	for _, pair := range composed.Link.Join {
		parentKeys = append(parentKeys, ColumnExpr{Alias: parentAlias, Column: pair.OriginColumn})
		childSelect.OrderBy = append([]OrderTerm{{Expr: ColumnExpr{Alias: childAliasFor(childSelect), Column: pair.TargetColumn}}}, childSelect.OrderBy...)
	}
	return &NestedSelect{FieldName: f.Name, ParentKeys: parentKeys, Select: childSelect}, nil
}

// childAliasFor finds the alias a freshly-compiled child Select's root
// table was given, for prepending the correlating column to ORDER BY.
func childAliasFor(s *Select) string {
	r := s.From
	for {
		switch v := r.(type) {
		case *Source:
			return v.Table.Alias
		case *Join:
			r = v.Left
		default:
			return ""
		}
	}
}

// compileFlow lowers a Flow into a Relation, memoized by Flow identity so
// the same interned Flow always compiles to the same join (§4.5.3).
func (c *Compiler) compileFlow(f flow.Flow) (Relation, string) {
	if r, ok := c.relFor[f]; ok {
		return r, c.aliasOf[f]
	}
	switch v := f.(type) {
	case *flow.Class:
		alias := c.nextAlias(v.Entity())
		ent, _ := c.cat.Entity(v.Entity())
		rel := &Source{Table: &Table{Entity: v.Entity(), Name: ent.Table, Alias: alias}}
		c.relFor[f], c.aliasOf[f] = rel, alias
		return rel, alias

	case *flow.Composed:
		baseRel, baseAlias := c.compileFlow(v.Base)
		alias := c.nextAlias(v.Link.Target)
		ent, _ := c.cat.Entity(v.Link.Target)
		targetRel := &Source{Table: &Table{Entity: v.Link.Target, Name: ent.Table, Alias: alias}}
		eqs := make([]Equality, 0, len(v.Link.Join))
		for _, pair := range v.Link.Join {
			eqs = append(eqs, Equality{
				Left:  ColumnExpr{Alias: baseAlias, Column: pair.OriginColumn},
				Right: ColumnExpr{Alias: alias, Column: pair.TargetColumn},
			})
		}
		kind := LeftJoin
		if v.Link.Cardinality.Total {
			kind = InnerJoin
		}
		rel := &Join{Left: baseRel, Kind: kind, Right: targetRel, On: eqs}
		c.relFor[f], c.aliasOf[f] = rel, alias
		return rel, alias

	case *flow.Filtered:
		return c.compileFlow(v.Base)
	case *flow.Ordered:
		return c.compileFlow(v.Base)
	case *flow.Sliced:
		return c.compileFlow(v.Base)

	case *flow.Quotient:
		rel, alias := c.compileQuotient(v)
		c.relFor[f], c.aliasOf[f] = rel, alias
		return rel, alias

	default:
		alias := c.nextAlias("rel")
		rel := &Source{Table: &Table{Entity: f.Entity(), Name: f.Entity(), Alias: alias}}
		c.relFor[f], c.aliasOf[f] = rel, alias
		return rel, alias
	}
}

// compileQuotient lowers `T^K` into a grouped subquery (§4.6.1): FROM the
// pre-group base, GROUP BY the kernel, with the kernel parts as the
// subquery's own output columns so outer references resolve to them
// instead of re-joining the base.
func (c *Compiler) compileQuotient(q *flow.Quotient) (Relation, string) {
	innerRel, _ := c.compileFlow(q.Base)

	groupExprs := make([]Expr, 0, len(q.Kernel))
	cols := make([]OutputColumn, 0, len(q.Kernel))
	for i, k := range q.Kernel {
		expr, err := c.compileCode(k)
		if err != nil {
			expr = LiteralExpr{Value: nil}
		}
		groupExprs = append(groupExprs, expr)
		name := q.KernelNames[i]
		cols = append(cols, OutputColumn{Name: name, Expr: expr})
		if col, ok := k.(*flow.Column); ok {
			c.kernelCols[kernelKey(col.Base, col.Attr.Name)] = name
		}
	}

	inner := &Select{From: innerRel, GroupBy: groupExprs, Columns: cols}
	alias := c.nextAlias("grp")
	c.quotientSubquery[q.Base] = inner
	c.quotientAlias[q.Base] = alias
	return &Subquery{Select: inner, Alias: alias}, alias
}

// compileCode lowers a scalar Code into an Expr.
func (c *Compiler) compileCode(code flow.Code) (Expr, error) {
	switch v := code.(type) {
	case *flow.Column:
		if name, ok := c.kernelCols[kernelKey(v.Base, v.Attr.Name)]; ok {
			return ColumnExpr{Alias: c.quotientAlias[v.Base], Column: name}, nil
		}
		_, alias := c.compileFlow(v.Base)
		column := v.Attr.Column
		if column == "" {
			column = v.Attr.Name
		}
		return ColumnExpr{Alias: alias, Column: column}, nil

	case *flow.Literal:
		return LiteralExpr{Value: v.Value, Domain: v.Domain()}, nil

	case *flow.Parameter:
		return ParamExpr{Name: v.Name, Domain: v.Domain()}, nil

	case *flow.Formula:
		args := make([]Expr, 0, len(v.Args))
		for _, a := range v.Args {
			e, err := c.compileCode(a)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		return CallExpr{Name: v.Name, Args: args, Domain: v.Domain()}, nil

	case *flow.Cast:
		inner, err := c.compileCode(v.Base)
		if err != nil {
			return nil, err
		}
		return CastExpr{Expr: inner, Target: v.Domain()}, nil

	case *flow.Aggregate:
		return c.compileAggregate(v)

	default:
		return nil, fmt.Errorf("term: %T does not lower to an expression", code)
	}
}

// compileAggregate embeds one aggregate Unit (§4.6.1). A complement
// aggregate (its Flow is literally a Quotient's own base) is added to
// that Quotient's own grouped subquery; any other aggregate opens its
// own correlated left-outer-joined subquery, grouped by the key columns
// of the link it traverses, with a COALESCE identity fallback.
func (c *Compiler) compileAggregate(a *flow.Aggregate) (Expr, error) {
	if sub, ok := c.quotientSubquery[a.Flow]; ok {
		argExpr, err := c.compileOptionalArg(a.Arg)
		if err != nil {
			return nil, err
		}
		col := fmt.Sprintf("%s_%d", a.Name, len(sub.Columns))
		sub.Columns = append(sub.Columns, OutputColumn{Name: col, Expr: aggregateCall(a.Name, argExpr)})
		return ColumnExpr{Alias: c.quotientAlias[a.Flow], Column: col}, nil
	}

	link := outermostComposed(a.Flow)
	if link == nil {
		// No enclosing Composed to correlate through: the argument ranges
		// over a whole class from the query's own root (e.g. a reference
		// defined ahead of the first flow, §8 scenario 5). Compute it as
		// a plain, uncorrelated scalar subquery instead of a joined one.
		return c.compileScalarAggregate(a)
	}
	outerRel, outerAlias := c.compileFlow(link.Base)
	_ = outerRel

	innerCompiler := NewCompiler(c.cat)
	innerRel, innerAlias := innerCompiler.compileFlow(a.Flow)

	groupExprs := make([]Expr, 0, len(link.Link.Join))
	joinOn := make([]Equality, 0, len(link.Link.Join))
	for i, pair := range link.Link.Join {
		ge := ColumnExpr{Alias: innerAlias, Column: pair.TargetColumn}
		groupExprs = append(groupExprs, ge)
		groupCol := fmt.Sprintf("k%d", i)
		joinOn = append(joinOn, Equality{
			Left:  ColumnExpr{Alias: outerAlias, Column: pair.OriginColumn},
			Right: ColumnExpr{Alias: "", Column: groupCol},
		})
	}

	argExpr, err := innerCompiler.compileOptionalArg(a.Arg)
	if err != nil {
		return nil, err
	}

	cols := make([]OutputColumn, 0, len(groupExprs)+1)
	for i, ge := range groupExprs {
		cols = append(cols, OutputColumn{Name: fmt.Sprintf("k%d", i), Expr: ge})
	}
	aggCol := "agg"
	cols = append(cols, OutputColumn{Name: aggCol, Expr: aggregateCall(a.Name, argExpr)})

	innerSelect := &Select{From: innerRel, GroupBy: groupExprs, Columns: cols}
	subAlias := c.nextAlias("agg")
	for i := range joinOn {
		joinOn[i].Right = ColumnExpr{Alias: subAlias, Column: fmt.Sprintf("k%d", i)}
	}
	c.extraJoins = append(c.extraJoins, extraJoin{
		Relation: &Subquery{Select: innerSelect, Alias: subAlias},
		On:       joinOn,
	})

	return CoalesceExpr{
		Expr:     ColumnExpr{Alias: subAlias, Column: aggCol},
		Identity: LiteralExpr{Value: a.IdentityLiteral()},
	}, nil
}

// compileScalarAggregate lowers an aggregate with no enclosing flow to
// correlate against into a standalone `(SELECT agg(...) FROM ...)`.
func (c *Compiler) compileScalarAggregate(a *flow.Aggregate) (Expr, error) {
	inner := NewCompiler(c.cat)
	rel, _ := inner.compileFlow(a.Flow)
	argExpr, err := inner.compileOptionalArg(a.Arg)
	if err != nil {
		return nil, err
	}
	sel := &Select{
		From:    rel,
		Columns: []OutputColumn{{Name: "agg", Expr: aggregateCall(a.Name, argExpr)}},
	}
	return ScalarSubqueryExpr{Select: sel}, nil
}

func (c *Compiler) compileOptionalArg(arg flow.Code) (Expr, error) {
	if arg == nil {
		return CallExpr{Name: "*"}, nil
	}
	return c.compileCode(arg)
}

func aggregateCall(name string, arg Expr) Expr {
	if arg == nil {
		arg = CallExpr{Name: "*"}
	}
	return CallExpr{Name: name, Args: []Expr{arg}}
}

// outermostComposed walks down a Flow's Base chain to the first Composed
// reached, the link an aggregate's subquery correlates back through.
func outermostComposed(f flow.Flow) *flow.Composed {
	for {
		switch v := f.(type) {
		case *flow.Composed:
			if next, ok := v.Base.(*flow.Composed); ok {
				f = next
				continue
			}
			return v
		case *flow.Filtered:
			f = v.Base
		case *flow.Ordered:
			f = v.Base
		case *flow.Sliced:
			f = v.Base
		default:
			return nil
		}
	}
}

func (c *Compiler) nextAlias(entity string) string {
	c.aliasSeq++
	prefix := strings.ToLower(entity)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	if prefix == "" {
		prefix = "t"
	}
	return fmt.Sprintf("%s%d", prefix, c.aliasSeq)
}

func (c *Compiler) foldExtraJoins(from Relation) Relation {
	for _, j := range c.extraJoins {
		from = &Join{Left: from, Kind: LeftJoin, Right: j.Relation, On: j.On}
	}
	return from
}

func kernelKey(base flow.Flow, attr string) string {
	return fmt.Sprintf("%p.%s", base, attr)
}

func and(left, right Expr) Expr {
	if left == nil {
		return right
	}
	return CallExpr{Name: "&", Args: []Expr{left, right}, Domain: catalog.Domain{Kind: catalog.Boolean}}
}

// Package binder walks the untyped syntax tree (package ast) and produces
// the bound tree (package bound): every identifier, function call and
// operator resolved to a specific construct, every expression carrying a
// domain and a singular/plural classification (spec.md §4.4).
package binder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/navql/ast"
	"github.com/syssam/navql/bound"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/diag"
	"github.com/syssam/navql/scope"
	"github.com/syssam/navql/token"
)

// Builtins is the root scope's built-in name list (spec.md §4.4.1), kept
// verbatim from the specification so the root scope matches exactly.
var Builtins = []string{
	"count", "exists", "every", "avg", "min", "max", "sum",
	"true", "false", "null", "today", "now",
	"date", "time", "datetime", "string", "integer", "decimal", "float", "boolean",
	"round", "length", "head", "tail", "slice", "at",
	"upper", "lower", "trim", "ltrim", "rtrim", "replace",
	"if_null", "null_if", "is_null", "if", "switch",
	"sort", "limit", "filter", "select", "fork", "distinct", "define", "where", "as",
	"root", "this",
	"year", "month", "day", "hour", "minute", "second",
}

var aggregateNames = map[string]bool{
	"count": true, "exists": true, "every": true,
	"avg": true, "min": true, "max": true, "sum": true,
}

// flowBuiltins are names that reshape a flow rather than compute a scalar
// value; they are dispatched before the generic scalar-call path. `where`
// is deliberately absent: unlike `define`, it produces an ordinary value
// (its first argument, evaluated in a locally extended scope) rather than
// reshaping the base flow (§4.4.1).
var flowBuiltins = map[string]bool{
	"sort": true, "limit": true, "filter": true, "select": true,
	"fork": true, "distinct": true, "define": true, "as": true,
}

// Env is the binder's threading context: the active scope, and the
// current base flow that bare attribute/link names resolve against (nil
// at the outermost root position, where the base flow is the root
// singleton).
type Env struct {
	Scope *scope.Scope
	Base  bound.Node
}

// classDef is one `T.name := expr` registration (§4.4.1), kept in textual
// order so forward references can be rejected (§9 open question).
type classDef struct {
	span     token.Span
	name     string
	params   []string
	value    ast.Node
	defScope *scope.Scope
}

// Binder binds one query at a time against a fixed catalog snapshot. It
// is stateful only for the duration of a single Bind call (classDefs
// accumulate as `define(T.name := expr)` forms are encountered walking
// left to right through the source, mirroring their textual appearance).
type Binder struct {
	cat       catalog.Catalog
	bag       *diag.Bag
	classDefs map[string][]classDef
	// classDefSpans records, for every `T.name := expr` anywhere in the
	// query (found by a pre-scan, independent of textual walk order), the
	// span of its first occurrence — enough to tell a genuine forward
	// reference apart from an outright unknown name (§9 open question).
	classDefSpans map[string]map[string]token.Span
	// paramDomains maps a caller-declared `$name` parameter to the domain
	// it should be bound as (§6.5); a name absent here defaults to
	// untyped when it turns out not to be a local define()/where() binding.
	paramDomains map[string]catalog.Domain
}

// New creates a Binder over cat, with no declared external parameter
// domains (every unresolved `$name` binds as untyped).
func New(cat catalog.Catalog) *Binder {
	return &Binder{cat: cat}
}

// NewWithParamDomains creates a Binder over cat, typing external `$name`
// references that have no local define()/where() binding from paramDomains
// (§6.5). A name absent from paramDomains still binds, as untyped.
func NewWithParamDomains(cat catalog.Catalog, paramDomains map[string]catalog.Domain) *Binder {
	return &Binder{cat: cat, paramDomains: paramDomains}
}

// Bind resolves q into a bound.Query, or the first Diagnostic encountered.
// Non-fatal NameShadowed-style diagnostics are collected in the returned
// Bag regardless of success.
func (b *Binder) Bind(q *ast.Query) (*bound.Query, *diag.Bag, error) {
	b.bag = &diag.Bag{}
	b.classDefs = make(map[string][]classDef)
	b.classDefSpans = make(map[string]map[string]token.Span)
	collectClassAssignments(q.Root, b.classDefSpans)

	root := scope.Root(b.cat, Builtins)
	env := Env{Scope: root}

	var result bound.Node
	if q.Root != nil {
		node, _, err := b.bind(q.Root, env)
		if err != nil {
			return nil, b.bag, err
		}
		result = node
	}
	result = b.ensureSelection(result)
	if result != nil {
		if err := b.checkOutputPlurality(result); err != nil {
			return nil, b.bag, err
		}
	}
	return bound.NewQuery(q.Span(), result), b.bag, nil
}

// bind dispatches on the syntax node's concrete type. It returns the
// scope that subsequent sibling nodes in the same chain must use — this
// differs from env.Scope only when n is (or contains, via Composition) a
// define(...) augmentation, whose bindings must remain visible to
// whatever follows it textually (spec.md §8 scenario 5).
func (b *Binder) bind(n ast.Node, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	switch v := n.(type) {
	case *ast.Identifier:
		return b.bindIdentifier(v, env)
	case *ast.Literal:
		return b.bindLiteral(v), env.Scope, nil
	case *ast.Reference:
		return b.bindReference(v, env)
	case *ast.Wildcard:
		return b.bindWildcard(v, env)
	case *ast.Complement:
		return b.bindComplementAtom(v, env)
	case *ast.Group:
		return b.bind(v.Inner, env)
	case *ast.FunctionCall:
		node, err := b.bindFunctionCall(v, env)
		return node, env.Scope, err
	case *ast.InfixCall:
		node, err := b.bindInfixCall(v, env)
		return node, env.Scope, err
	case *ast.Unary:
		node, err := b.bindUnary(v, env)
		return node, env.Scope, err
	case *ast.Binary:
		node, err := b.bindBinary(v, env)
		return node, env.Scope, err
	case *ast.InList:
		node, err := b.bindInList(v, env)
		return node, env.Scope, err
	case *ast.Selection:
		return b.bindSelection(v, env)
	case *ast.Sieve:
		return b.bindSieve(v, env)
	case *ast.Projection:
		node, err := b.bindProjection(v, env)
		return node, env.Scope, err
	case *ast.Composition:
		return b.bindComposition(v, env)
	case *ast.Direction:
		// A bare trailing direction outside a sort-key list context: bind
		// the operand and drop the direction (it is consumed explicitly by
		// sort()'s argument handling, see bindSortArg).
		node, sc, err := b.bind(v.Operand, env)
		return node, sc, err
	case *ast.ClassAssignment:
		return nil, env.Scope, b.registerClassAssignment(v, env)
	case *ast.Assignment:
		return nil, env.Scope, diag.New(diag.UnexpectedToken, v.Span(), "assignment %q is only valid as a define()/where() argument", v.Name)
	case *ast.NestedSegment:
		return b.bind(v.Root, env)
	}
	return nil, env.Scope, diag.New(diag.UnexpectedToken, n.Span(), "binder: unsupported syntax node %T", n)
}

func (b *Binder) bindIdentifier(id *ast.Identifier, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	bnd, ok := env.Scope.Lookup(id.Name)
	if !ok {
		if node, handled, err := b.tryClassDefUse(id.Name, id.Span(), env); handled {
			return node, env.Scope, err
		}
		return nil, env.Scope, diag.New(diag.Unknown, id.Span(), "unknown name %q", id.Raw)
	}
	switch bnd.Kind {
	case scope.Class:
		return bound.NewClass(id.Span(), bnd.ClassName), env.Scope, nil
	case scope.Attribute:
		if env.Base == nil {
			return nil, env.Scope, diag.New(diag.Unknown, id.Span(), "attribute %q has no base flow", id.Raw)
		}
		return bound.NewAttribute(id.Span(), env.Base, bnd.Attribute), env.Scope, nil
	case scope.Link:
		if env.Base == nil {
			return nil, env.Scope, diag.New(diag.Unknown, id.Span(), "link %q has no base flow", id.Raw)
		}
		return bound.NewLink(id.Span(), env.Base, bnd.Link), env.Scope, nil
	case scope.Calculated:
		node, err := b.bindCalcUse(bnd, nil, env.Base, id.Span())
		return node, env.Scope, err
	case scope.Reference:
		return bnd.Value, env.Scope, nil
	case scope.Complement:
		return bound.NewComplement(id.Span(), bnd.ClassName), env.Scope, nil
	case scope.KernelPart:
		return bnd.Value, env.Scope, nil
	case scope.Builtin:
		node, err := b.bindFunctionCall(ast.NewFunctionCall(id.Span(), id.Name, nil), env)
		return node, env.Scope, err
	}
	return nil, env.Scope, diag.New(diag.Unknown, id.Span(), "unresolved name %q", id.Raw)
}

// tryClassDefUse resolves a bare name against a `T.name := expr` class
// registration when ordinary scope lookup fails and a base flow is
// active. It enforces the forward-reference rule of §9: a registration
// textually after the use site is invisible, not guessed at.
func (b *Binder) tryClassDefUse(name string, useSpan token.Span, env Env) (bound.Node, bool, *diag.Diagnostic) {
	if env.Base == nil {
		return nil, false, nil
	}
	entity := env.Base.Domain().Entity
	if entity == "" {
		return nil, false, nil
	}
	defs := b.classDefs[entity]
	var match *classDef
	for i := range defs {
		d := &defs[i]
		if d.name != name {
			continue
		}
		if d.span.Start > useSpan.Start {
			return nil, true, diag.New(diag.ForwardReference, useSpan,
				"define(%s.%s := ...) is used before its definition at %s", entity, name, d.span)
		}
		match = d
	}
	if match == nil {
		if span, ok := b.classDefSpans[entity][name]; ok && span.Start > useSpan.Start {
			return nil, true, diag.New(diag.ForwardReference, useSpan,
				"define(%s.%s := ...) is used before its definition at %s", entity, name, span)
		}
		return nil, false, nil
	}
	node, _, err := b.bind(match.value, Env{Scope: match.defScope, Base: env.Base})
	return node, true, err
}

// collectClassAssignments pre-scans n for every `T.name := expr` class
// assignment it contains, regardless of nesting, recording each name's
// first span. tryClassDefUse consults this independently of the main
// left-to-right walk so a genuine forward reference (the define() that
// would satisfy a name appears later in the query) is reported precisely,
// instead of falling through to a generic "unknown name" diagnostic.
func collectClassAssignments(n ast.Node, into map[string]map[string]token.Span) {
	if n == nil {
		return
	}
	switch v := n.(type) {
	case *ast.ClassAssignment:
		entity := strings.ToLower(v.Class)
		if into[entity] == nil {
			into[entity] = make(map[string]token.Span)
		}
		if _, exists := into[entity][v.Name]; !exists {
			into[entity][v.Name] = v.Span()
		}
		collectClassAssignments(v.Value, into)
	case *ast.Assignment:
		collectClassAssignments(v.Value, into)
	case *ast.FunctionCall:
		for _, a := range v.Args {
			collectClassAssignments(a, into)
		}
	case *ast.InfixCall:
		collectClassAssignments(v.Left, into)
		for _, a := range v.Args {
			collectClassAssignments(a, into)
		}
	case *ast.Unary:
		collectClassAssignments(v.Operand, into)
	case *ast.Binary:
		collectClassAssignments(v.Left, into)
		collectClassAssignments(v.Right, into)
	case *ast.InList:
		collectClassAssignments(v.Target, into)
		for _, it := range v.Items {
			collectClassAssignments(it, into)
		}
	case *ast.Selection:
		collectClassAssignments(v.Target, into)
		for _, it := range v.Items {
			collectClassAssignments(it, into)
		}
	case *ast.Sieve:
		collectClassAssignments(v.Target, into)
		collectClassAssignments(v.Predicate, into)
	case *ast.Projection:
		collectClassAssignments(v.Target, into)
		collectClassAssignments(v.Kernel, into)
	case *ast.Composition:
		collectClassAssignments(v.Left, into)
		collectClassAssignments(v.Right, into)
	case *ast.Direction:
		collectClassAssignments(v.Operand, into)
	case *ast.NestedSegment:
		collectClassAssignments(v.Root, into)
	case *ast.Group:
		collectClassAssignments(v.Inner, into)
	case *ast.List:
		for _, it := range v.Items {
			collectClassAssignments(it, into)
		}
	}
}

func (b *Binder) bindLiteral(lit *ast.Literal) *bound.Literal {
	kind := catalog.DomainKind(lit.Domain)
	if kind == catalog.Integer {
		if v, err := strconv.Atoi(lit.Text); err == nil {
			return bound.NewLiteral(lit.Span(), v, catalog.Domain{Kind: kind})
		}
	}
	return bound.NewLiteral(lit.Span(), lit.Text, catalog.Domain{Kind: kind})
}

// bindReference resolves `$name`. A name bound locally by an enclosing
// define()/where() always wins; otherwise it is an external parameter
// supplied by the caller at execution time (§6.5), typed from
// paramDomains or untyped if the caller didn't declare it — never a
// diagnostic, since the source language does not distinguish the two at
// the reference site.
func (b *Binder) bindReference(ref *ast.Reference, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	if bnd, ok := env.Scope.LookupReference(ref.Name); ok {
		return bound.NewReference(ref.Span(), ref.Name, bnd.Value), env.Scope, nil
	}
	domain, ok := b.paramDomains[ref.Name]
	if !ok {
		domain = catalog.Domain{Kind: catalog.Untyped}
	}
	param := bound.NewParameter(ref.Span(), ref.Name, domain)
	return bound.NewReference(ref.Span(), ref.Name, param), env.Scope, nil
}

func (b *Binder) bindWildcard(w *ast.Wildcard, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	if env.Base == nil {
		return nil, env.Scope, diag.New(diag.Unknown, w.Span(), "'*' has no base flow to expand")
	}
	entity := env.Base.Domain().Entity
	ent, ok := b.cat.Entity(entity)
	if !ok {
		return nil, env.Scope, diag.New(diag.Unknown, w.Span(), "'*' over unknown entity %q", entity)
	}
	if w.N == 0 {
		fields := make([]bound.Field, 0, len(ent.Attributes))
		for _, a := range ent.Attributes {
			if a.Hidden {
				continue
			}
			fields = append(fields, bound.Field{Name: a.Name, Value: bound.NewAttribute(w.Span(), env.Base, a)})
		}
		return bound.NewSelection(w.Span(), env.Base, fields), env.Scope, nil
	}
	visible := make([]catalog.Attribute, 0, len(ent.Attributes))
	for _, a := range ent.Attributes {
		if !a.Hidden {
			visible = append(visible, a)
		}
	}
	if w.N < 1 || w.N > len(visible) {
		return nil, env.Scope, diag.New(diag.Unknown, w.Span(), "wildcard index *%d out of range for %q", w.N, entity)
	}
	a := visible[w.N-1]
	return bound.NewAttribute(w.Span(), env.Base, a), env.Scope, nil
}

func (b *Binder) bindComplementAtom(c *ast.Complement, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	if bnd, ok := env.Scope.Complement(); ok {
		return bound.NewComplement(c.Span(), bnd.ClassName), env.Scope, nil
	}
	return nil, env.Scope, diag.New(diag.Unknown, c.Span(), "'^' used outside a projection kernel")
}

// ensureSelection wraps a non-Selection Record-domain flow with an
// implicit all-attributes selection, so every query has an explicit
// output column list by the time it reaches the encoder (spec.md §8
// scenario 1: "/school -> SQL selects every attribute of school").
func (b *Binder) ensureSelection(n bound.Node) bound.Node {
	if n == nil {
		return nil
	}
	if _, ok := n.(*bound.Selection); ok {
		return n
	}
	if n.Domain().Kind != catalog.Record || n.Domain().Entity == "" {
		return n
	}
	ent, ok := b.cat.Entity(n.Domain().Entity)
	if !ok {
		return n
	}
	fields := make([]bound.Field, 0, len(ent.Attributes))
	for _, a := range ent.Attributes {
		if a.Hidden {
			continue
		}
		fields = append(fields, bound.Field{Name: a.Name, Value: bound.NewAttribute(n.Span(), n, a)})
	}
	return bound.NewSelection(n.Span(), n, fields)
}

// checkOutputPlurality enforces the output-plurality invariant (§4.5.1,
// §8 invariant 1): every top-level output column must be singular.
func (b *Binder) checkOutputPlurality(n bound.Node) *diag.Diagnostic {
	sel, ok := n.(*bound.Selection)
	if !ok {
		return nil
	}
	for _, f := range sel.Fields {
		if f.Nested != nil {
			continue // nested segments are explicitly plural by design (§4.6.5)
		}
		if f.Value.Plural() {
			return diag.New(diag.PluralityError, f.Value.Span(),
				"output column %q is plural; wrap it in an aggregate", f.Name)
		}
	}
	return nil
}

// scopeForBase builds the name environment for whatever sits "after" base
// in a chain (composition's right side, a sieve's predicate, a
// selection's fields, a projection's kernel): an ordinary class scope for
// a ground flow, or a projection scope (kernel parts + complement) when
// base is itself a projection (§4.4.1).
func (b *Binder) scopeForBase(parent *scope.Scope, base bound.Node) *scope.Scope {
	if sel, ok := base.(*bound.Selection); ok {
		// A Selection's own Domain carries no Entity (it is a Record shape,
		// not a class flow); whatever comes after it — a sieve, a sort —
		// resolves names against the entity (or projection) it selects
		// from, same as if the selection weren't there.
		return b.scopeForBase(parent, sel.Base)
	}
	if p, ok := base.(*bound.Projection); ok {
		sc := scope.Projection(parent, p.KernelNames, p.ComplementEntity, p.ComplementEntity)
		for i, k := range p.Kernel {
			sc = sc.Extend(scope.Binding{Kind: scope.KernelPart, Name: p.KernelNames[i], KernelIndex: i, Value: k})
		}
		return sc
	}
	return b.classScope(parent, base.Domain().Entity, base.Span())
}

// flowBase returns the node whose entity (or projection kernel) name
// resolution and attribute selection attach to: n itself, unless n is a
// Selection — a pure output shape with no entity of its own (§4.5) — in
// which case its underlying flow, peeled recursively.
func flowBase(n bound.Node) bound.Node {
	for {
		sel, ok := n.(*bound.Selection)
		if !ok {
			return n
		}
		n = sel.Base
	}
}

// rootClassOf peels through Attribute/Link/Cast wrappers to find the Class
// flow a chain of traversals ultimately bottoms out at, for the root-level
// aggregate-argument plurality special case in bindAggregate.
func rootClassOf(n bound.Node) bound.Node {
	for {
		switch v := n.(type) {
		case *bound.Attribute:
			n = v.Base
		case *bound.Link:
			n = v.Base
		case *bound.Cast:
			n = v.Base
		default:
			return n
		}
	}
}

// classScope builds a class scope for entity and records a NameShadowed
// warning for every attribute whose name collides with a link of the same
// entity: the link wins the binding (§4.4.2), but the shadowing is still
// reported.
func (b *Binder) classScope(parent *scope.Scope, entity string, span token.Span) *scope.Scope {
	sc := scope.Class(parent, b.cat, entity)
	links := make(map[string]bool, len(b.cat.Links(entity)))
	for _, l := range b.cat.Links(entity) {
		links[l.Name] = true
	}
	for _, a := range b.cat.Attributes(entity) {
		if links[a.Name] {
			b.bag.Warn(diag.New(diag.NameShadowed, span,
				"%s.%s: link shadows attribute of the same name", entity, a.Name))
		}
	}
	return sc
}

// --- Composition (A.B) ---

func (b *Binder) bindComposition(c *ast.Composition, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	if fc, ok := c.Left.(*ast.FunctionCall); ok && fc.Name == "define" {
		extended, err := b.bindScopeAugmentation(fc, env)
		if err != nil {
			return nil, env.Scope, err
		}
		rightEnv := Env{Scope: extended, Base: env.Base}
		node, outScope, err := b.bind(c.Right, rightEnv)
		return node, outScope, err
	}

	left, leftScope, err := b.bind(c.Left, env)
	if err != nil {
		return nil, env.Scope, err
	}
	if left.Domain().Kind != catalog.Record {
		return nil, env.Scope, diag.New(diag.TypeMismatch, c.Span(), "cannot traverse into a non-record value")
	}
	rightEnv := Env{Scope: b.scopeForBase(leftScope, left), Base: left}

	if fc, ok := c.Right.(*ast.FunctionCall); ok && flowBuiltins[fc.Name] {
		node, err := b.bindFlowCallOn(fc, left, rightEnv)
		return node, leftScope, err
	}
	if w, ok := c.Right.(*ast.Wildcard); ok {
		node, sc, err := b.bindWildcard(w, rightEnv)
		return node, sc, err
	}
	node, _, err := b.bind(c.Right, rightEnv)
	return node, leftScope, err
}

// --- Sieve (F?predicate) ---

func (b *Binder) bindSieve(s *ast.Sieve, env Env) (bound.Node, *scope.Scope, *diag.Diagnostic) {
	base, baseScope, err := b.bind(s.Target, env)
	if err != nil {
		return nil, env.Scope, err
	}
	predEnv := Env{Scope: b.scopeForBase(baseScope, base), Base: flowBase(base)}
	pred, _, err := b.bind(s.Predicate, predEnv)
	if err != nil {
		return nil, env.Scope, err
	}
	pred = b.coerceToBoolean(pred)
	return bound.NewSieve(s.Span(), base, pred), env.Scope, nil
}

// --- Selection (F{a,b,...}) ---

// bindSelection returns the scope its Target propagated (e.g. a
// define(...) augmentation from within the target chain), not env.Scope
// unchanged: a sieve wrapping this selection must still see it (§8
// scenario 5: "the average is evaluated once" and remains visible to the
// outer filter that follows the selection textually).
func (b *Binder) bindSelection(s *ast.Selection, env Env) (*bound.Selection, *scope.Scope, *diag.Diagnostic) {
	base, baseScope, err := b.bind(s.Target, env)
	if err != nil {
		return nil, env.Scope, err
	}
	fieldEnv := Env{Scope: b.scopeForBase(baseScope, base), Base: base}

	fields := make([]bound.Field, 0, len(s.Items))
	for _, item := range s.Items {
		f, err := b.bindSelectionField(item, fieldEnv)
		if err != nil {
			return nil, baseScope, err
		}
		fields = append(fields, f)
	}
	return bound.NewSelection(s.Span(), base, fields), baseScope, nil
}

func (b *Binder) bindSelectionField(item ast.Node, env Env) (bound.Field, *diag.Diagnostic) {
	if ns, ok := item.(*ast.NestedSegment); ok {
		node, _, err := b.bind(ns.Root, env)
		if err != nil {
			return bound.Field{}, err
		}
		sel, ok := node.(*bound.Selection)
		if !ok {
			sel = b.ensureSelection(node).(*bound.Selection)
		}
		return bound.Field{Name: fieldName(ns.Root), Value: sel, Nested: sel}, nil
	}
	value, err := b.bindFieldExpr(item, env)
	if err != nil {
		return bound.Field{}, err
	}
	return bound.Field{Name: fieldName(item), Value: value}, nil
}

func (b *Binder) bindFieldExpr(item ast.Node, env Env) (bound.Node, *diag.Diagnostic) {
	_, inner := splitAs(item) // `:as` only renames the field; bindSelectionField reads the alias via fieldName
	node, _, err := b.bind(inner, env)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// splitAs unwraps a trailing `:as 'alias'` infix call, returning the
// requested alias (empty if none) and the inner expression.
func splitAs(n ast.Node) (alias string, inner ast.Node) {
	if ic, ok := n.(*ast.InfixCall); ok && ic.Name == "as" && len(ic.Args) == 1 {
		if lit, ok := ic.Args[0].(*ast.Literal); ok {
			return lit.Text, ic.Left
		}
	}
	return "", n
}

// fieldName derives the output column name the way the spec's worked
// examples imply: the last identifier/function name in the expression, or
// an explicit :as alias.
func fieldName(n ast.Node) string {
	if alias, inner := splitAs(n); alias != "" {
		return alias
	} else if inner != n {
		return fieldName(inner)
	}
	switch v := n.(type) {
	case *ast.Identifier:
		return v.Name
	case *ast.FunctionCall:
		return v.Name
	case *ast.Composition:
		return fieldName(v.Right)
	case *ast.NestedSegment:
		return fieldName(v.Root)
	case *ast.Direction:
		return fieldName(v.Operand)
	case *ast.Selection:
		return fieldName(v.Target)
	case *ast.Sieve:
		return fieldName(v.Target)
	case *ast.Projection:
		return fieldName(v.Target)
	}
	return ""
}

// --- Projection (T^K) ---

func (b *Binder) bindProjection(p *ast.Projection, env Env) (bound.Node, *diag.Diagnostic) {
	target, targetScope, err := b.bind(p.Target, env)
	if err != nil {
		return nil, err
	}
	baseEntity := target.Domain().Entity
	kernelEnv := Env{Scope: b.scopeForBase(targetScope, target), Base: target}

	var kernelItems []ast.Node
	if lst, ok := p.Kernel.(*ast.List); ok {
		kernelItems = lst.Items
	} else if grp, ok := p.Kernel.(*ast.Group); ok {
		kernelItems = []ast.Node{grp.Inner}
	} else {
		kernelItems = []ast.Node{p.Kernel}
	}

	kernel := make([]bound.Node, 0, len(kernelItems))
	names := make([]string, 0, len(kernelItems))
	for _, item := range kernelItems {
		node, _, err := b.bind(item, kernelEnv)
		if err != nil {
			return nil, err
		}
		kernel = append(kernel, node)
		names = append(names, fieldNameOr(item, len(names)))
	}

	complementName := baseEntity
	if complementName == "" {
		complementName = "^"
	}

	return bound.NewProjection(p.Span(), target, kernel, names, complementName), nil
}

func fieldNameOr(n ast.Node, idx int) string {
	if name := fieldName(n); name != "" {
		return name
	}
	return fmt.Sprintf("kernel%d", idx)
}

// --- function calls, infix calls, operators ---

func (b *Binder) bindFunctionCall(fc *ast.FunctionCall, env Env) (bound.Node, *diag.Diagnostic) {
	switch fc.Name {
	case "define":
		extended, err := b.bindScopeAugmentation(fc, env)
		if err != nil {
			return nil, err
		}
		if env.Base != nil {
			return env.Base, nil // transparent to the flow; caller threads `extended` onward
		}
		_ = extended
		return nil, diag.New(diag.UnexpectedToken, fc.Span(), "define() used without a base flow")
	case "where":
		// where(expr, name := value, ...): unlike define, the first argument
		// is a plain expression (not an assignment) and the call's result is
		// that expression's value, bound against a scope extended only for
		// this one evaluation (§4.4.1) — the extension never leaks outward.
		if len(fc.Args) < 1 {
			return nil, diag.New(diag.UnexpectedToken, fc.Span(), "where() requires an expression argument")
		}
		extended, err := b.bindAssignments(fc.Args[1:], fc.Name, env)
		if err != nil {
			return nil, err
		}
		node, _, err := b.bind(fc.Args[0], Env{Scope: extended, Base: env.Base})
		return node, err
	case "sort", "limit", "filter", "select", "fork", "distinct", "as":
		if env.Base == nil {
			return nil, diag.New(diag.UnexpectedToken, fc.Span(), "%s() used without a base flow", fc.Name)
		}
		return b.bindFlowCallOn(fc, env.Base, env)
	case "true":
		return bound.NewLiteral(fc.Span(), "true", catalog.Domain{Kind: catalog.Boolean}), nil
	case "false":
		return bound.NewLiteral(fc.Span(), "false", catalog.Domain{Kind: catalog.Boolean}), nil
	case "null":
		return bound.NewLiteral(fc.Span(), nil, catalog.Domain{Kind: catalog.Untyped}), nil
	case "today":
		return bound.NewCall(fc.Span(), "today", nil, catalog.Domain{Kind: catalog.Date}, false), nil
	case "now":
		return bound.NewCall(fc.Span(), "now", nil, catalog.Domain{Kind: catalog.DateTime}, false), nil
	case "root", "this":
		if env.Base != nil {
			return env.Base, nil
		}
		return bound.NewClass(fc.Span(), ""), nil
	case "if":
		return b.bindIf(fc, env)
	case "switch":
		return b.bindSwitch(fc, env)
	}

	if aggregateNames[fc.Name] {
		return b.bindAggregate(fc, env)
	}

	args := make([]bound.Node, 0, len(fc.Args))
	for _, a := range fc.Args {
		node, _, err := b.bind(a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, node)
	}

	if bnd, ok := env.Scope.Lookup(fc.Name); ok && bnd.Kind == scope.Calculated {
		return b.bindCalcUse(bnd, args, env.Base, fc.Span())
	}
	if node, handled, err := b.tryClassDefUse(fc.Name, fc.Span(), env); handled {
		return node, err
	}

	return b.bindScalarCall(fc.Name, fc.Span(), args)
}

// bindFlowCallOn binds one of the flow-reshaping builtins (sort, limit,
// filter, select, fork, distinct, as, define) applied to base, either via
// `base.name(args)` (Composition) or `name(base, args)` form.
func (b *Binder) bindFlowCallOn(fc *ast.FunctionCall, base bound.Node, env Env) (bound.Node, *diag.Diagnostic) {
	switch fc.Name {
	case "sort":
		keys := make([]bound.SortKey, 0, len(fc.Args))
		for _, a := range fc.Args {
			key, err := b.bindSortKey(a, env)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
		return bound.NewOrdered(fc.Span(), base, keys), nil
	case "limit":
		n, k, err := b.bindLimitArgs(fc, env)
		if err != nil {
			return nil, err
		}
		return bound.NewSliced(fc.Span(), base, n, k), nil
	case "filter":
		if len(fc.Args) != 1 {
			return nil, diag.New(diag.UnexpectedToken, fc.Span(), "filter() takes exactly one predicate argument")
		}
		pred, _, err := b.bind(fc.Args[0], env)
		if err != nil {
			return nil, err
		}
		return bound.NewSieve(fc.Span(), base, b.coerceToBoolean(pred)), nil
	case "select":
		fields := make([]bound.Field, 0, len(fc.Args))
		for _, a := range fc.Args {
			f, err := b.bindSelectionField(a, env)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return bound.NewSelection(fc.Span(), base, fields), nil
	case "distinct":
		return base, nil // deduplication is a term-compiler concern over an unchanged flow shape
	case "fork":
		// fork(k) re-links the base flow to itself on equal k; modeled here
		// as a self-referential projection-like node reusing Projection's
		// shape (its kernel is the fork key).
		kernel := make([]bound.Node, 0, len(fc.Args))
		names := make([]string, 0, len(fc.Args))
		for _, a := range fc.Args {
			node, _, err := b.bind(a, env)
			if err != nil {
				return nil, err
			}
			kernel = append(kernel, node)
			names = append(names, fieldNameOr(a, len(names)))
		}
		return bound.NewProjection(fc.Span(), base, kernel, names, base.Domain().Entity), nil
	case "as":
		if len(fc.Args) != 1 {
			return nil, diag.New(diag.UnexpectedToken, fc.Span(), "as() takes exactly one title argument")
		}
		return base, nil
	case "define":
		extended, err := b.bindScopeAugmentation(fc, env)
		_ = extended
		return base, err
	}
	return nil, diag.New(diag.Unknown, fc.Span(), "unknown flow operator %q", fc.Name)
}

func (b *Binder) bindSortKey(n ast.Node, env Env) (bound.SortKey, *diag.Diagnostic) {
	desc := false
	operand := n
	if d, ok := n.(*ast.Direction); ok {
		desc = d.Dir == "-"
		operand = d.Operand
	}
	node, _, err := b.bind(operand, env)
	if err != nil {
		return bound.SortKey{}, err
	}
	return bound.SortKey{Value: node, Descending: desc}, nil
}

func (b *Binder) bindLimitArgs(fc *ast.FunctionCall, env Env) (*int, *int, *diag.Diagnostic) {
	if len(fc.Args) < 1 || len(fc.Args) > 2 {
		return nil, nil, diag.New(diag.UnexpectedToken, fc.Span(), "limit() takes one or two arguments")
	}
	parseIntArg := func(a ast.Node) (*int, *diag.Diagnostic) {
		lit, ok := a.(*ast.Literal)
		if !ok || lit.Domain != "integer" {
			return nil, diag.New(diag.NonIntegerLimit, a.Span(), "limit()/offset() arguments must be integer literals")
		}
		v, convErr := strconv.Atoi(lit.Text)
		if convErr != nil {
			return nil, diag.New(diag.NonIntegerLimit, a.Span(), "invalid integer %q", lit.Text)
		}
		if v < 0 {
			return nil, diag.New(diag.NegativeLimit, a.Span(), "limit()/offset() must not be negative")
		}
		return &v, nil
	}
	n, err := parseIntArg(fc.Args[0])
	if err != nil {
		return nil, nil, err
	}
	var k *int
	if len(fc.Args) == 2 {
		k, err = parseIntArg(fc.Args[1])
		if err != nil {
			return nil, nil, err
		}
	}
	return n, k, nil
}

// bindScopeAugmentation implements define(...): every argument must be an
// Assignment (name := expr, $name := expr, or name(params...) := expr);
// each produces one new scope.Binding layered onto env.Scope.
func (b *Binder) bindScopeAugmentation(fc *ast.FunctionCall, env Env) (*scope.Scope, *diag.Diagnostic) {
	return b.bindAssignments(fc.Args, fc.Name, env)
}

// bindAssignments is the shared implementation behind define(...)'s full
// argument list and where(...)'s trailing assignment arguments.
func (b *Binder) bindAssignments(args []ast.Node, callName string, env Env) (*scope.Scope, *diag.Diagnostic) {
	sc := env.Scope
	for _, arg := range args {
		if ca, ok := arg.(*ast.ClassAssignment); ok {
			if err := b.registerClassAssignment(ca, Env{Scope: sc, Base: env.Base}); err != nil {
				return nil, err
			}
			continue
		}
		asn, ok := arg.(*ast.Assignment)
		if !ok {
			return nil, diag.New(diag.UnexpectedToken, arg.Span(), "%s() arguments must be `name := expr` assignments", callName)
		}
		if asn.IsReference {
			// define($a := expr): evaluated exactly once, right now, in the
			// current scope (§4.4.3, §8 scenario 5).
			value, _, err := b.bind(asn.Value, Env{Scope: sc, Base: env.Base})
			if err != nil {
				return nil, err
			}
			sc = sc.Extend(scope.Binding{Kind: scope.Reference, Name: asn.Name, Value: value})
			continue
		}
		if len(asn.Params) > 0 {
			sc = sc.Extend(scope.Binding{
				Kind: scope.Calculated, Name: asn.Name, Params: asn.Params,
				Expr: asn.Value, DefScope: sc,
			})
			continue
		}
		sc = sc.Extend(scope.Binding{Kind: scope.Calculated, Name: asn.Name, Expr: asn.Value, DefScope: sc})
	}
	return sc, nil
}

// registerClassAssignment implements `T.name := expr` inside define(...):
// it is recorded globally (keyed by entity, ordered by source position)
// rather than added to the current scope chain (§4.4.1).
func (b *Binder) registerClassAssignment(ca *ast.ClassAssignment, env Env) *diag.Diagnostic {
	entity := strings.ToLower(ca.Class)
	if _, ok := b.cat.Entity(entity); !ok {
		return diag.New(diag.Unknown, ca.Span(), "define(%s.%s := ...) refers to unknown entity %q", ca.Class, ca.Name, ca.Class)
	}
	defScope := scope.Class(env.Scope, b.cat, entity)
	b.classDefs[entity] = append(b.classDefs[entity], classDef{
		span: ca.Span(), name: ca.Name, params: ca.Params, value: ca.Value, defScope: defScope,
	})
	return nil
}

// bindCalcUse re-binds a calculated attribute's expression at a use site:
// name resolution happens in its DefScope (closure semantics), but it is
// evaluated fresh against the current Base every time (unlike a
// Reference, which is evaluated once).
func (b *Binder) bindCalcUse(bnd scope.Binding, args []bound.Node, base bound.Node, useSpan token.Span) (bound.Node, *diag.Diagnostic) {
	sc := bnd.DefScope
	if len(bnd.Params) > 0 {
		if len(args) != len(bnd.Params) {
			return nil, diag.New(diag.UnexpectedToken, useSpan, "%s() expects %d argument(s), got %d", bnd.Name, len(bnd.Params), len(args))
		}
		for i, p := range bnd.Params {
			sc = sc.Extend(scope.Binding{Kind: scope.Reference, Name: p, Value: args[i]})
		}
	}
	node, _, err := b.bind(bnd.Expr, Env{Scope: sc, Base: base})
	return node, err
}

// --- infix calls (`x :f y`) ---

func (b *Binder) bindInfixCall(ic *ast.InfixCall, env Env) (bound.Node, *diag.Diagnostic) {
	if ic.Name == "as" {
		left, _, err := b.bind(ic.Left, env)
		return left, err
	}
	args := append([]ast.Node{ic.Left}, ic.Args...)
	return b.bindFunctionCall(ast.NewFunctionCall(ic.Span(), ic.Name, args), env)
}

// --- operators ---

func (b *Binder) bindUnary(u *ast.Unary, env Env) (bound.Node, *diag.Diagnostic) {
	operand, _, err := b.bind(u.Operand, env)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "!":
		operand = b.coerceToBoolean(operand)
		return bound.NewCall(u.Span(), "!", []bound.Node{operand}, catalog.Domain{Kind: catalog.Boolean}, false), nil
	case "+", "-":
		if lit, ok := operand.(*bound.Literal); ok && lit.Domain().Kind == catalog.Untyped {
			operand = b.pinLiteral(lit, catalog.Domain{Kind: catalog.Integer})
		}
		return bound.NewCall(u.Span(), "unary"+u.Op, []bound.Node{operand}, operand.Domain(), false), nil
	}
	return nil, diag.New(diag.UnexpectedToken, u.Span(), "unknown unary operator %q", u.Op)
}

func (b *Binder) bindBinary(bin *ast.Binary, env Env) (bound.Node, *diag.Diagnostic) {
	left, _, err := b.bind(bin.Left, env)
	if err != nil {
		return nil, err
	}
	right, _, err := b.bind(bin.Right, env)
	if err != nil {
		return nil, err
	}
	left, right, domain, err := b.coerceOperands(bin.Op, left, right, bin.Span())
	if err != nil {
		return nil, err
	}
	return bound.NewCall(bin.Span(), bin.Op, []bound.Node{left, right}, domain, false), nil
}

func (b *Binder) bindInList(il *ast.InList, env Env) (bound.Node, *diag.Diagnostic) {
	target, _, err := b.bind(il.Target, env)
	if err != nil {
		return nil, err
	}
	var result bound.Node
	for _, item := range il.Items {
		itemNode, _, err := b.bind(item, env)
		if err != nil {
			return nil, err
		}
		l, r, _, err := b.coerceOperands("=", target, itemNode, il.Span())
		if err != nil {
			return nil, err
		}
		eq := bound.NewCall(il.Span(), "=", []bound.Node{l, r}, catalog.Domain{Kind: catalog.Boolean}, false)
		if result == nil {
			result = eq
		} else {
			result = bound.NewCall(il.Span(), "|", []bound.Node{result, eq}, catalog.Domain{Kind: catalog.Boolean}, false)
		}
	}
	if result == nil {
		return bound.NewLiteral(il.Span(), "false", catalog.Domain{Kind: catalog.Boolean}), nil
	}
	if il.Negate {
		result = bound.NewCall(il.Span(), "!", []bound.Node{result}, catalog.Domain{Kind: catalog.Boolean}, false)
	}
	return result, nil
}

var comparisonOps = map[string]bool{"=": true, "!=": true, "==": true, "!==": true, "<": true, "<=": true, ">": true, ">=": true, "~": true, "!~": true}
var logicalOps = map[string]bool{"&": true, "|": true}
var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}

// coerceOperands applies the coercion ladder of §4.4.4 and inserts Cast
// nodes (or pins untyped literals) so both operands share a domain.
func (b *Binder) coerceOperands(op string, left, right bound.Node, span token.Span) (bound.Node, bound.Node, catalog.Domain, *diag.Diagnostic) {
	if logicalOps[op] {
		return b.coerceToBoolean(left), b.coerceToBoolean(right), catalog.Domain{Kind: catalog.Boolean}, nil
	}

	ld, rd := left.Domain(), right.Domain()
	if ld.Kind == catalog.Untyped && rd.Kind != catalog.Untyped {
		if pinned, ok := b.pinUntyped(left, rd); ok {
			left = pinned
			ld = left.Domain()
		}
	}
	if rd.Kind == catalog.Untyped && ld.Kind != catalog.Untyped {
		if pinned, ok := b.pinUntyped(right, ld); ok {
			right = pinned
			rd = right.Domain()
		}
	}

	if arithmeticOps[op] {
		if ld.IsNumeric() && rd.IsNumeric() {
			widest := ld
			if rd.Rank() > ld.Rank() {
				widest = rd
			}
			if ld.Kind != widest.Kind {
				left = bound.NewCast(span, left, widest)
			}
			if rd.Kind != widest.Kind {
				right = bound.NewCast(span, right, widest)
			}
			return left, right, widest, nil
		}
		if op == "+" && ld.Kind == catalog.String && rd.Kind == catalog.String {
			return left, right, catalog.Domain{Kind: catalog.String}, nil
		}
		if (op == "+" || op == "-") && ld.Kind == catalog.Date && rd.Kind == catalog.Integer {
			return left, right, catalog.Domain{Kind: catalog.Date}, nil
		}
		if op == "-" && ld.Kind == catalog.Date && rd.Kind == catalog.Date {
			return left, right, catalog.Domain{Kind: catalog.Integer}, nil
		}
		return left, right, catalog.Domain{}, diag.New(diag.TypeMismatch, span, "operator %q not defined for %s and %s", op, ld.Kind, rd.Kind)
	}

	if comparisonOps[op] {
		if ld.Kind == rd.Kind {
			return left, right, catalog.Domain{Kind: catalog.Boolean}, nil
		}
		if ld.IsNumeric() && rd.IsNumeric() {
			widest := ld
			if rd.Rank() > ld.Rank() {
				widest = rd
			}
			if ld.Kind != widest.Kind {
				left = bound.NewCast(span, left, widest)
			}
			if rd.Kind != widest.Kind {
				right = bound.NewCast(span, right, widest)
			}
			return left, right, catalog.Domain{Kind: catalog.Boolean}, nil
		}
		return left, right, catalog.Domain{}, diag.New(diag.TypeMismatch, span, "cannot compare %s with %s", ld.Kind, rd.Kind)
	}

	return left, right, catalog.Domain{}, diag.New(diag.UnexpectedToken, span, "unknown operator %q", op)
}

// pinLiteral retypes an untyped literal to target, keeping its Value
// (only `null` is bound untyped; every other literal is typed by its
// token shape). The value is not parsed or checked against target.
func (b *Binder) pinLiteral(lit *bound.Literal, target catalog.Domain) *bound.Literal {
	return bound.NewLiteral(lit.Span(), lit.Value, target)
}

// pinUntyped adapts an untyped operand to target's domain, the same
// accommodation pinLiteral makes for a bare literal, for the other shape
// an untyped operand can take: an external `$name` parameter with no
// caller-declared domain (§6.5), wrapped in a Reference whose own Domain()
// just mirrors its Value. Returns ok=false (leaving the caller to raise
// its own TypeMismatch) for any other untyped shape.
func (b *Binder) pinUntyped(node bound.Node, target catalog.Domain) (bound.Node, bool) {
	switch v := node.(type) {
	case *bound.Literal:
		return b.pinLiteral(v, target), true
	case *bound.Reference:
		if param, ok := v.Value.(*bound.Parameter); ok {
			pinned := bound.NewParameter(param.Span(), param.Name, target)
			return bound.NewReference(v.Span(), v.Name, pinned), true
		}
	}
	return nil, false
}

// coerceToBoolean inserts the Cast-to-boolean node documented in spec.md
// §9: empty string and null are false, everything else true.
func (b *Binder) coerceToBoolean(n bound.Node) bound.Node {
	if n.Domain().Kind == catalog.Boolean {
		return n
	}
	return bound.NewCast(n.Span(), n, catalog.Domain{Kind: catalog.Boolean})
}

// --- aggregates ---

func (b *Binder) bindAggregate(fc *ast.FunctionCall, env Env) (bound.Node, *diag.Diagnostic) {
	if len(fc.Args) != 1 {
		return nil, diag.New(diag.UnexpectedToken, fc.Span(), "%s() takes exactly one argument", fc.Name)
	}
	arg, _, err := b.bind(fc.Args[0], env)
	if err != nil {
		return nil, err
	}
	plural := arg.Plural()
	if env.Base == nil {
		// At the query's root (no ambient row context, e.g. inside a
		// define() that precedes the first flow), a bare class traversal
		// is singular relative to itself (§9's plurality design note) but
		// still denotes every row of that class relative to the implicit
		// root — exactly as plural, for aggregation purposes, as a catalog
		// link traversed from some other class (§8 scenario 5).
		if _, ok := rootClassOf(arg).(*bound.Class); ok {
			plural = true
		}
	}
	if !plural {
		return nil, diag.New(diag.AggregateOfSingular, fc.Span(), "%s() requires a plural argument", fc.Name)
	}
	var domain catalog.Domain
	switch fc.Name {
	case "count":
		domain = catalog.Domain{Kind: catalog.Integer}
	case "exists", "every":
		domain = catalog.Domain{Kind: catalog.Boolean}
		arg = b.coerceToBoolean(arg)
	case "avg":
		domain = catalog.Domain{Kind: catalog.Decimal}
	case "sum", "min", "max":
		domain = arg.Domain()
	}
	return bound.NewCall(fc.Span(), fc.Name, []bound.Node{arg}, domain, true), nil
}

// --- if / switch ---

func (b *Binder) bindIf(fc *ast.FunctionCall, env Env) (bound.Node, *diag.Diagnostic) {
	if len(fc.Args) < 2 {
		return nil, diag.New(diag.UnexpectedToken, fc.Span(), "if() takes at least (condition, then[, else])")
	}
	args := make([]bound.Node, 0, len(fc.Args))
	for i, a := range fc.Args {
		node, _, err := b.bind(a, env)
		if err != nil {
			return nil, err
		}
		if i%2 == 0 && i != len(fc.Args)-1 {
			node = b.coerceToBoolean(node)
		}
		args = append(args, node)
	}
	domain := widestResultDomain(args, 1)
	return bound.NewCall(fc.Span(), "if", args, domain, false), nil
}

func (b *Binder) bindSwitch(fc *ast.FunctionCall, env Env) (bound.Node, *diag.Diagnostic) {
	if len(fc.Args) < 3 {
		return nil, diag.New(diag.UnexpectedToken, fc.Span(), "switch() takes (expr, case, result, ...[, default])")
	}
	args := make([]bound.Node, 0, len(fc.Args))
	for _, a := range fc.Args {
		node, _, err := b.bind(a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, node)
	}
	domain := widestResultDomain(args[1:], 1)
	return bound.NewCall(fc.Span(), "switch", args, domain, false), nil
}

// widestResultDomain scans args at positions start, start+2, start+4, ...
// (the "result" arms of an if/switch) and returns the first arm's domain,
// widened to the widest numeric arm when the first arm is numeric; a
// non-numeric arm after the first does not change the result.
func widestResultDomain(args []bound.Node, start int) catalog.Domain {
	var best catalog.Domain
	for i := start; i < len(args); i += 2 {
		d := args[i].Domain()
		if best.Kind == "" {
			best = d
			continue
		}
		if best.IsNumeric() && d.IsNumeric() && d.Rank() > best.Rank() {
			best = d
		}
	}
	return best
}

// --- scalar builtin functions ---

func (b *Binder) bindScalarCall(name string, span token.Span, args []bound.Node) (bound.Node, *diag.Diagnostic) {
	castKinds := map[string]catalog.DomainKind{
		"string": catalog.String, "integer": catalog.Integer, "decimal": catalog.Decimal,
		"float": catalog.Float, "boolean": catalog.Boolean, "date": catalog.Date,
		"time": catalog.Time, "datetime": catalog.DateTime,
	}
	if kind, ok := castKinds[name]; ok {
		if len(args) != 1 {
			return nil, diag.New(diag.UnexpectedToken, span, "%s() takes exactly one argument", name)
		}
		return bound.NewCast(span, args[0], catalog.Domain{Kind: kind}), nil
	}

	switch name {
	case "round":
		if len(args) < 1 {
			return nil, diag.New(diag.UnexpectedToken, span, "round() takes at least one argument")
		}
		return bound.NewCall(span, name, args, args[0].Domain(), false), nil
	case "length", "year", "month", "day", "hour", "minute", "second":
		return bound.NewCall(span, name, args, catalog.Domain{Kind: catalog.Integer}, false), nil
	case "upper", "lower", "trim", "ltrim", "rtrim", "head", "tail", "slice", "at", "replace":
		return bound.NewCall(span, name, args, catalog.Domain{Kind: catalog.String}, false), nil
	case "is_null":
		return bound.NewCall(span, name, args, catalog.Domain{Kind: catalog.Boolean}, false), nil
	case "if_null", "null_if":
		if len(args) == 0 {
			return nil, diag.New(diag.UnexpectedToken, span, "%s() takes at least one argument", name)
		}
		return bound.NewCall(span, name, args, args[0].Domain(), false), nil
	}
	return nil, diag.New(diag.Unknown, span, "unknown function %q", name)
}

// Package ast defines the untyped syntax tree produced by the parser.
// Every node carries its source span for diagnostics (§3.2, §8 invariant 4).
package ast

import "github.com/syssam/navql/token"

// Node is any syntax tree node.
type Node interface {
	Span() token.Span
	astNode()
}

type base struct{ span token.Span }

// Span returns the node's source span.
func (b base) Span() token.Span { return b.span }
func (base) astNode()           {}

// Literal is a number or string literal. Domain is one of "integer",
// "decimal", "float", "string" as determined by the scanned token shape.
// The binder uses Domain as the literal's domain as is, without pinning
// it by context; an integer literal is bound with its parsed int value,
// any other with Text.
type Literal struct {
	base
	Domain string
	Text   string
}

// NewLiteral builds a Literal node.
func NewLiteral(span token.Span, domain, text string) *Literal {
	return &Literal{base{span}, domain, text}
}

// Identifier is a bare name (attribute, link, entity class or function).
type Identifier struct {
	base
	Name string // canonical (case-folded) form
	Raw  string // original-cased source text
}

// NewIdentifier builds an Identifier node.
func NewIdentifier(span token.Span, name, raw string) *Identifier {
	return &Identifier{base{span}, name, raw}
}

// Reference is a `$name` cross-scope value reference.
type Reference struct {
	base
	Name string
}

// NewReference builds a Reference node.
func NewReference(span token.Span, name string) *Reference {
	return &Reference{base{span}, name}
}

// Wildcard is `*` (N == 0) or `*N` (select the N-th prior output).
type Wildcard struct {
	base
	N int
}

// NewWildcard builds a Wildcard node.
func NewWildcard(span token.Span, n int) *Wildcard {
	return &Wildcard{base{span}, n}
}

// Complement is the bare `^` atom: the implicit reverse link back to a
// projection's base flow, used inside a projection's kernel scope.
type Complement struct{ base }

// NewComplement builds a Complement node.
func NewComplement(span token.Span) *Complement { return &Complement{base{span}} }

// Group is a parenthesized expression `(test)`.
type Group struct {
	base
	Inner Node
}

// NewGroup builds a Group node.
func NewGroup(span token.Span, inner Node) *Group { return &Group{base{span}, inner} }

// List is a comma-separated sequence, used for selector bodies and
// function/call-args bodies.
type List struct {
	base
	Items []Node
}

// NewList builds a List node.
func NewList(span token.Span, items []Node) *List { return &List{base{span}, items} }

// FunctionCall is `NAME(args...)`.
type FunctionCall struct {
	base
	Name string
	Args []Node
}

// NewFunctionCall builds a FunctionCall node.
func NewFunctionCall(span token.Span, name string, args []Node) *FunctionCall {
	return &FunctionCall{base{span}, name, args}
}

// InfixCall is the `x :f y`, `x :f (y,z)`, `x :f` infix-call form, which
// desugars to f(x, y, ...) / f(x, y, z) / f(x) respectively.
type InfixCall struct {
	base
	Left Node
	Name string
	Args []Node // already-flattened argument list from call-args, if any
}

// NewInfixCall builds an InfixCall node.
func NewInfixCall(span token.Span, left Node, name string, args []Node) *InfixCall {
	return &InfixCall{base{span}, left, name, args}
}

// Unary is a prefix operator: `!test`, unary `+x`/`-x`.
type Unary struct {
	base
	Op      string
	Operand Node
}

// NewUnary builds a Unary node.
func NewUnary(span token.Span, op string, operand Node) *Unary {
	return &Unary{base{span}, op, operand}
}

// Binary is an infix operator: `|`, `&`, comparisons, additive, multiplicative.
type Binary struct {
	base
	Op          string
	Left, Right Node
}

// NewBinary builds a Binary node.
func NewBinary(span token.Span, op string, left, right Node) *Binary {
	return &Binary{base{span}, op, left, right}
}

// InList is `expr = {a, b, ...}`, which desugars to (x=a)|(x=b)|....
type InList struct {
	base
	Target Node
	Items  []Node
	Negate bool // `!= {...}` has no direct grammar form but kept for symmetry
}

// NewInList builds an InList node.
func NewInList(span token.Span, target Node, items []Node) *InList {
	return &InList{base: base{span}, Target: target, Items: items}
}

// Selection is `F{a, b, ...}`: a selector applied to a base flow.
type Selection struct {
	base
	Target Node
	Items  []Node
}

// NewSelection builds a Selection node.
func NewSelection(span token.Span, target Node, items []Node) *Selection {
	return &Selection{base{span}, target, items}
}

// Sieve is `F?predicate`: a filter applied to a base flow.
type Sieve struct {
	base
	Target    Node
	Predicate Node
}

// NewSieve builds a Sieve node.
func NewSieve(span token.Span, target Node, predicate Node) *Sieve {
	return &Sieve{base{span}, target, predicate}
}

// Projection is `T^K`: the distinct-kernel quotient of a base flow.
type Projection struct {
	base
	Target Node
	Kernel Node
}

// NewProjection builds a Projection node.
func NewProjection(span token.Span, target, kernel Node) *Projection {
	return &Projection{base{span}, target, kernel}
}

// Composition is `A.B`, left-associative dot traversal/attribute access.
type Composition struct {
	base
	Left, Right Node
}

// NewComposition builds a Composition node.
func NewComposition(span token.Span, left, right Node) *Composition {
	return &Composition{base{span}, left, right}
}

// Assignment is `name := expr`, `name(params...) := expr`, or (when
// IsReference is set) `$name := expr` — a reference declaration
// introduced by define($name := expr) or where(expr, $name := value)
// (§4.4.3).
type Assignment struct {
	base
	Name        string
	Params      []string // parameter names declared as name($p, ...)
	Value       Node
	IsReference bool
}

// NewAssignment builds a calculated-attribute Assignment node.
func NewAssignment(span token.Span, name string, params []string, value Node) *Assignment {
	return &Assignment{base: base{span}, Name: name, Params: params, Value: value}
}

// NewReferenceAssignment builds a `$name := expr` reference-declaration
// Assignment node.
func NewReferenceAssignment(span token.Span, name string, value Node) *Assignment {
	return &Assignment{base: base{span}, Name: name, Value: value, IsReference: true}
}

// ClassAssignment is `T.name := expr`, attaching a calculation to a named
// class scope (§4.4.1).
type ClassAssignment struct {
	base
	Class  string
	Name   string
	Params []string
	Value  Node
}

// NewClassAssignment builds a ClassAssignment node.
func NewClassAssignment(span token.Span, class, name string, params []string, value Node) *ClassAssignment {
	return &ClassAssignment{base{span}, class, name, params, value}
}

// Direction is a sort-key suffix: `+` (ascending) or `-` (descending).
type Direction struct {
	base
	Operand Node
	Dir     string // "+" or "-"
}

// NewDirection builds a Direction node.
func NewDirection(span token.Span, operand Node, dir string) *Direction {
	return &Direction{base{span}, operand, dir}
}

// NestedSegment is a `/sub` item appearing inside a selector or call-args
// list, requesting a hierarchical (nested) result (§4.6.5).
type NestedSegment struct {
	base
	Root Node
}

// NewNestedSegment builds a NestedSegment node.
func NewNestedSegment(span token.Span, root Node) *NestedSegment {
	return &NestedSegment{base{span}, root}
}

// Query is the parse root: the leading `/`, the optional segment, and the
// optional `/:format` decorator.
type Query struct {
	base
	Root   Node
	Format string // "" if no decorator was given
}

// NewQuery builds a Query node.
func NewQuery(span token.Span, root Node, format string) *Query {
	return &Query{base{span}, root, format}
}

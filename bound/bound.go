// Package bound defines the binder's output tree: the syntax tree (ast)
// after name resolution, overload selection, and domain/plurality
// inference (§4.4). Every node knows its result Domain and whether it is
// singular or plural; the flow encoder (package flow) lowers a bound tree
// into flow algebra.
package bound

import (
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/token"
)

// Node is a bound (name-resolved, type-checked) expression or flow.
type Node interface {
	Span() token.Span
	Domain() catalog.Domain
	// Plural reports whether this node denotes a plural (set-valued) flow,
	// as opposed to a singular scalar or record value (§3.1, §4.4.4).
	Plural() bool
}

type base struct {
	span   token.Span
	domain catalog.Domain
	plural bool
}

func (b base) Span() token.Span          { return b.span }
func (b base) Domain() catalog.Domain    { return b.domain }
func (b base) Plural() bool              { return b.plural }

// Class is a flow over every instance of an entity class: `T` or `/T`.
type Class struct {
	base
	Entity string
}

// NewClass builds a Class flow over entity. It is singular: plurality is
// relative to an enclosing row context (§4.5.1), and a bare class is its
// own context — traversing a plural link from it is what introduces
// plurality, not the class itself (composition's "both sides singular"
// rule in §4.5.1 would be vacuous otherwise).
func NewClass(span token.Span, entity string) *Class {
	return &Class{base: base{span: span, domain: catalog.Domain{Kind: catalog.Record, Entity: entity}, plural: false}, Entity: entity}
}

// Link traverses a catalog.Link from a base flow: `base.name`.
type Link struct {
	base
	Base Node
	Link catalog.Link
}

// NewLink builds a Link flow; plurality follows the link's cardinality,
// combined with the base's own plurality (a plural base makes every
// traversal plural, §4.4.4).
func NewLink(span token.Span, baseNode Node, link catalog.Link) *Link {
	plural := baseNode.Plural() || link.Cardinality.Plural
	return &Link{
		base: base{span: span, domain: catalog.Domain{Kind: catalog.Record, Entity: link.Target}, plural: plural},
		Base: baseNode,
		Link: link,
	}
}

// Attribute selects a column off a base flow: `base.name`.
type Attribute struct {
	base
	Base Node
	Attr catalog.Attribute
}

// NewAttribute builds an Attribute node; it is plural exactly when its
// base flow is plural (selecting a column does not itself introduce
// plurality).
func NewAttribute(span token.Span, baseNode Node, attr catalog.Attribute) *Attribute {
	return &Attribute{base: base{span: span, domain: attr.Domain, plural: baseNode.Plural()}, Base: baseNode, Attr: attr}
}

// Literal is a constant value with a pinned domain (§4.4.4).
type Literal struct {
	base
	Value any
}

// NewLiteral builds a singular Literal node.
func NewLiteral(span token.Span, value any, domain catalog.Domain) *Literal {
	return &Literal{base: base{span: span, domain: domain}, Value: value}
}

// Parameter is an external `$name` reference with no local `define()`
// binding: its value is supplied by the caller at SQL execution time,
// not known to the compiler (§6.5). Domain is the caller-declared
// parameter domain, or untyped if the caller didn't declare one.
type Parameter struct {
	base
	Name string
}

// NewParameter builds a singular Parameter node.
func NewParameter(span token.Span, name string, domain catalog.Domain) *Parameter {
	return &Parameter{base: base{span: span, domain: domain}, Name: name}
}

// Call is a resolved function or operator application. Aggregate marks a
// function that collapses a plural argument flow to a singular result
// (e.g. count, avg) — the only mechanism (besides projection) by which a
// plural flow becomes singular again (§4.4.4, §4.6.5).
type Call struct {
	base
	Name      string
	Args      []Node
	Aggregate bool
}

// NewCall builds a Call node. When aggregate is true the result is forced
// singular regardless of the arguments' plurality; otherwise the result is
// plural if any argument is.
func NewCall(span token.Span, name string, args []Node, domain catalog.Domain, aggregate bool) *Call {
	plural := false
	if !aggregate {
		for _, a := range args {
			if a.Plural() {
				plural = true
				break
			}
		}
	}
	return &Call{base: base{span: span, domain: domain, plural: plural}, Name: name, Args: args, Aggregate: aggregate}
}

// Sieve filters a base flow by a boolean predicate: `base?predicate`.
type Sieve struct {
	base
	Base      Node
	Predicate Node
}

// NewSieve builds a Sieve node; filtering never changes plurality.
func NewSieve(span token.Span, baseNode, predicate Node) *Sieve {
	return &Sieve{base: base{span: span, domain: baseNode.Domain(), plural: baseNode.Plural()}, Base: baseNode, Predicate: predicate}
}

// Field is one named output column of a Selection, optionally carrying a
// nested segment (a sub-selection materialized as a nested result, §4.2
// NestedSegment / §4.6's hierarchical output).
type Field struct {
	Name    string
	Value   Node
	Nested  *Selection
}

// Selection names the output columns of a base flow: `base{f1, f2, ...}`.
type Selection struct {
	base
	Base   Node
	Fields []Field
}

// NewSelection builds a Selection node; it has the base's plurality and a
// Record domain (its own shape, not any single field's).
func NewSelection(span token.Span, baseNode Node, fields []Field) *Selection {
	return &Selection{base: base{span: span, domain: catalog.Domain{Kind: catalog.Record}, plural: baseNode.Plural()}, Base: baseNode, Fields: fields}
}

// Projection is a quotient flow `base^kernel`: one output row per distinct
// kernel value, always plural (it re-groups a plural base into a new,
// generally smaller, plural flow of kernel classes).
type Projection struct {
	base
	Base             Node
	Kernel           []Node
	KernelNames      []string
	ComplementEntity string
}

// NewProjection builds a Projection node.
func NewProjection(span token.Span, baseNode Node, kernel []Node, kernelNames []string, complementEntity string) *Projection {
	return &Projection{
		base:             base{span: span, domain: catalog.Domain{Kind: catalog.Record}, plural: true},
		Base:             baseNode,
		Kernel:           kernel,
		KernelNames:      kernelNames,
		ComplementEntity: complementEntity,
	}
}

// Complement refers to the base flow from within a projection's kernel or
// selector scope (the implicit reverse link, §4.2).
type Complement struct {
	base
	Entity string
}

// NewComplement builds a Complement node; it is always plural (it denotes
// the group of base-flow rows folded into one kernel value).
func NewComplement(span token.Span, entity string) *Complement {
	return &Complement{base: base{span: span, domain: catalog.Domain{Kind: catalog.Record, Entity: entity}, plural: true}, Entity: entity}
}

// SortKey is one key of an Ordered flow.
type SortKey struct {
	Value      Node
	Descending bool
}

// Ordered applies a sort order to a base flow: `base.sort(...)`.
type Ordered struct {
	base
	Base Node
	Keys []SortKey
}

// NewOrdered builds an Ordered node; sorting never changes plurality.
func NewOrdered(span token.Span, baseNode Node, keys []SortKey) *Ordered {
	return &Ordered{base: base{span: span, domain: baseNode.Domain(), plural: baseNode.Plural()}, Base: baseNode, Keys: keys}
}

// Sliced applies a limit/offset to a base flow: `base.limit(n)` / `base.limit(n, k)`.
type Sliced struct {
	base
	Base   Node
	Limit  *int
	Offset *int
}

// NewSliced builds a Sliced node; slicing never changes plurality.
func NewSliced(span token.Span, baseNode Node, limit, offset *int) *Sliced {
	return &Sliced{base: base{span: span, domain: baseNode.Domain(), plural: baseNode.Plural()}, Base: baseNode, Limit: limit, Offset: offset}
}

// Reference is a resolved `$name` occurrence: it carries the value bound
// at the defining site, reused verbatim at every use site (§4.4.3).
type Reference struct {
	base
	Name  string
	Value Node
}

// NewReference builds a Reference node, inheriting its domain/plurality
// from the referenced value.
func NewReference(span token.Span, name string, value Node) *Reference {
	return &Reference{base: base{span: span, domain: value.Domain(), plural: value.Plural()}, Name: name, Value: value}
}

// Cast coerces a base node to a target domain along the numeric ladder or
// an explicit conversion (§4.4.4).
type Cast struct {
	base
	Base Node
}

// NewCast builds a Cast node.
func NewCast(span token.Span, baseNode Node, target catalog.Domain) *Cast {
	return &Cast{base: base{span: span, domain: target, plural: baseNode.Plural()}, Base: baseNode}
}

// Query is the top-level bound tree for one compiled source string.
type Query struct {
	base
	Root Node
}

// NewQuery wraps the bound root flow.
func NewQuery(span token.Span, root Node) *Query {
	return &Query{base: base{span: span, domain: root.Domain(), plural: root.Plural()}, Root: root}
}

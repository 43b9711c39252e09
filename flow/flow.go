// Package flow implements the encoder's output: the flow algebra a bound
// tree is lowered into (spec.md §4.5). Every expression becomes either a
// Flow (a sequence, described by an ancestor flow plus one operator) or a
// Code (a scalar over a flow, carrying a domain, nullability, and any
// Units — handles to sub-computations over other flows that must be
// aggregated before the code can be evaluated in its own flow's context).
package flow

import (
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/token"
)

// Flow is a sequence: one row per matching instance, built from an
// ancestor flow plus an operator. Flow trees are shared by the encoder
// (package-level interning, see Encoder) so that two syntactic traversals
// of the same link path lower to the same Flow value, letting the term
// compiler recognize a shared join rather than duplicating it (§4.5.3).
type Flow interface {
	Span() token.Span
	// Entity names the catalog entity this flow's rows belong to, or ""
	// for a flow whose rows are not a single entity's rows (Quotient,
	// Linked, Forked).
	Entity() string
	flowNode()
}

type flowBase struct {
	span token.Span
}

func (f flowBase) Span() token.Span { return f.span }

// Class is a flow over every instance of an entity class.
type Class struct {
	flowBase
	entity string
}

func (c *Class) Entity() string { return c.entity }
func (*Class) flowNode()        {}

// NewClass builds a Class flow.
func NewClass(span token.Span, entity string) *Class {
	return &Class{flowBase: flowBase{span: span}, entity: entity}
}

// Composed traverses a catalog link from a base flow.
type Composed struct {
	flowBase
	Base Flow
	Link catalog.Link
}

func (c *Composed) Entity() string { return c.Link.Target }
func (*Composed) flowNode()        {}

// NewComposed builds a Composed flow.
func NewComposed(span token.Span, base Flow, link catalog.Link) *Composed {
	return &Composed{flowBase: flowBase{span: span}, Base: base, Link: link}
}

// Filtered restricts a base flow by a boolean predicate.
type Filtered struct {
	flowBase
	Base      Flow
	Predicate Code
}

func (f *Filtered) Entity() string { return f.Base.Entity() }
func (*Filtered) flowNode()        {}

// NewFiltered builds a Filtered flow.
func NewFiltered(span token.Span, base Flow, predicate Code) *Filtered {
	return &Filtered{flowBase: flowBase{span: span}, Base: base, Predicate: predicate}
}

// SortKey is one key of an Ordered flow.
type SortKey struct {
	Value      Code
	Descending bool
	// NullsFirst resolves §4.6.2's default (ascending → nulls last,
	// descending → nulls first), already decided by the encoder so the
	// term/SQL stages don't re-derive it.
	NullsFirst bool
}

// Ordered applies an explicit sort order to a base flow.
type Ordered struct {
	flowBase
	Base Flow
	Keys []SortKey
}

func (o *Ordered) Entity() string { return o.Base.Entity() }
func (*Ordered) flowNode()        {}

// NewOrdered builds an Ordered flow.
func NewOrdered(span token.Span, base Flow, keys []SortKey) *Ordered {
	return &Ordered{flowBase: flowBase{span: span}, Base: base, Keys: keys}
}

// Sliced applies a limit/offset to a base flow.
type Sliced struct {
	flowBase
	Base   Flow
	Limit  *int
	Offset *int
}

func (s *Sliced) Entity() string { return s.Base.Entity() }
func (*Sliced) flowNode()        {}

// NewSliced builds a Sliced flow.
func NewSliced(span token.Span, base Flow, limit, offset *int) *Sliced {
	return &Sliced{flowBase: flowBase{span: span}, Base: base, Limit: limit, Offset: offset}
}

// Quotient groups a base flow by a kernel, one output row per distinct
// kernel tuple (`T^K`). ComplementFlow is the same Base flow, kept under a
// separate field name for clarity at call sites that aggregate over it.
type Quotient struct {
	flowBase
	Base             Flow
	Kernel           []Code
	KernelNames      []string
	ComplementEntity string
}

func (q *Quotient) Entity() string { return "" }
func (*Quotient) flowNode()        {}

// NewQuotient builds a Quotient flow.
func NewQuotient(span token.Span, base Flow, kernel []Code, kernelNames []string, complementEntity string) *Quotient {
	return &Quotient{flowBase: flowBase{span: span}, Base: base, Kernel: kernel, KernelNames: kernelNames, ComplementEntity: complementEntity}
}

// Linked re-expresses `x -> T` as a flow operator: a join from the
// current flow to Class(T) on leftCode = rightCode, without collapsing
// into Composed (§9 design note: "model as first-class flow operators").
type Linked struct {
	flowBase
	Base      Flow
	LeftCode  Code
	Target    *Class
	RightCode Code
}

func (l *Linked) Entity() string { return l.Target.Entity() }
func (*Linked) flowNode()        {}

// NewLinked builds a Linked flow.
func NewLinked(span token.Span, base Flow, leftCode Code, target *Class, rightCode Code) *Linked {
	return &Linked{flowBase: flowBase{span: span}, Base: base, LeftCode: leftCode, Target: target, RightCode: rightCode}
}

// Forked re-links a flow to itself on equal kernel values (`fork(k)`).
type Forked struct {
	flowBase
	Base   Flow
	Kernel []Code
}

func (f *Forked) Entity() string { return f.Base.Entity() }
func (*Forked) flowNode()        {}

// NewForked builds a Forked flow.
func NewForked(span token.Span, base Flow, kernel []Code) *Forked {
	return &Forked{flowBase: flowBase{span: span}, Base: base, Kernel: kernel}
}

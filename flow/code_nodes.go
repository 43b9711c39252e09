package flow

import (
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/token"
)

type codeBase struct {
	span token.Span
}

func (c codeBase) Span() token.Span { return c.span }
func (codeBase) codeNode()          {}

// Column selects a physical attribute off a flow.
type Column struct {
	codeBase
	Base Flow
	Attr catalog.Attribute
}

func (c *Column) Domain() catalog.Domain { return c.Attr.Domain }
func (c *Column) Nullable() bool         { return c.Attr.Nullable }
func (c *Column) Units() []Unit          { return nil }

// NewColumn builds a Column code.
func NewColumn(span token.Span, base Flow, attr catalog.Attribute) *Column {
	return &Column{codeBase: codeBase{span: span}, Base: base, Attr: attr}
}

// Literal is a constant value with a pinned domain.
type Literal struct {
	codeBase
	Value  any
	domain catalog.Domain
}

func (l *Literal) Domain() catalog.Domain { return l.domain }
func (l *Literal) Nullable() bool         { return l.Value == nil }
func (l *Literal) Units() []Unit          { return nil }

// NewLiteral builds a Literal code.
func NewLiteral(span token.Span, value any, domain catalog.Domain) *Literal {
	return &Literal{codeBase: codeBase{span: span}, Value: value, domain: domain}
}

// Parameter is an external `$name` reference with no local binding: its
// value is supplied by the caller at SQL execution time (§6.5), so the
// compiler renders it as a bound placeholder rather than a fixed value.
type Parameter struct {
	codeBase
	Name   string
	domain catalog.Domain
}

func (p *Parameter) Domain() catalog.Domain { return p.domain }
func (p *Parameter) Nullable() bool         { return true }
func (p *Parameter) Units() []Unit          { return nil }

// NewParameter builds a Parameter code.
func NewParameter(span token.Span, name string, domain catalog.Domain) *Parameter {
	return &Parameter{codeBase: codeBase{span: span}, Name: name, domain: domain}
}

// Formula is a resolved function or operator application over other codes.
type Formula struct {
	codeBase
	Name   string
	Args   []Code
	domain catalog.Domain
}

func (f *Formula) Domain() catalog.Domain { return f.domain }

func (f *Formula) Nullable() bool {
	for _, a := range f.Args {
		if a.Nullable() {
			return true
		}
	}
	return false
}

func (f *Formula) Units() []Unit {
	var units []Unit
	for _, a := range f.Args {
		units = append(units, a.Units()...)
	}
	return units
}

// NewFormula builds a Formula code.
func NewFormula(span token.Span, name string, args []Code, domain catalog.Domain) *Formula {
	return &Formula{codeBase: codeBase{span: span}, Name: name, Args: args, domain: domain}
}

// Cast coerces a base code to a target domain along the numeric ladder or
// an explicit boolean conversion (§4.4.4, §9).
type Cast struct {
	codeBase
	Base   Code
	target catalog.Domain
}

func (c *Cast) Domain() catalog.Domain { return c.target }
func (c *Cast) Nullable() bool         { return c.Base.Nullable() }
func (c *Cast) Units() []Unit          { return c.Base.Units() }

// NewCast builds a Cast code.
func NewCast(span token.Span, base Code, target catalog.Domain) *Cast {
	return &Cast{codeBase: codeBase{span: span}, Base: base, target: target}
}

// Aggregate wraps a plural flow into a singular code over the outer flow
// (count, sum, avg, min, max, exists, every) — the mechanism, besides a
// Quotient, by which a plural flow becomes a singular code (§4.5.1,
// §4.6.1). Arg is nil for a bare count of rows.
type Aggregate struct {
	codeBase
	Name   string
	Flow   Flow
	Arg    Code
	domain catalog.Domain
}

func (a *Aggregate) Domain() catalog.Domain { return a.domain }

// Nullable reports whether the aggregate's missing-group identity is a SQL
// NULL rather than a zero/false value (§4.6.1: count/sum → 0, min/max/avg
// → null, exists → false, every → true).
func (a *Aggregate) Nullable() bool {
	switch a.Name {
	case "min", "max", "avg":
		return true
	default:
		return false
	}
}

func (a *Aggregate) Units() []Unit { return []Unit{{Flow: a.Flow, Code: a.Arg}} }

// IdentityLiteral is the COALESCE(_, identity) fallback for an aggregate
// whose grouped subquery produced no row for some outer row (§4.6.1).
func (a *Aggregate) IdentityLiteral() any {
	switch a.Name {
	case "count", "sum":
		return 0
	case "exists":
		return false
	case "every":
		return true
	default: // avg, min, max: no numeric identity, left NULL
		return nil
	}
}

// NewAggregate builds an Aggregate code.
func NewAggregate(span token.Span, name string, f Flow, arg Code, domain catalog.Domain) *Aggregate {
	return &Aggregate{codeBase: codeBase{span: span}, Name: name, Flow: f, Arg: arg, domain: domain}
}

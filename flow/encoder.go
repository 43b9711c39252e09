package flow

import (
	"fmt"

	"github.com/syssam/navql/bound"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/token"
)

// Encoder lowers a bound tree into flow algebra (§4.5). It interns Class
// and Composed flows so that two syntactic traversals of the same link
// path from the same ancestor flow share one Flow value (§4.5.3), letting
// the term compiler recognize a shared join instead of duplicating it.
type Encoder struct {
	classes  map[string]*Class
	composed map[string]*Composed
	refs     map[bound.Node]Code
	// complements maps a projection's complement entity name to the flow
	// it refers back to (the projection's own pre-quotient base flow,
	// §4.2). Populated when a Projection is encoded and read when a bare
	// *bound.Complement atom is encountered beneath it; shared mutably for
	// the whole Encode call since a complement name is only ever valid
	// within the lexical extent of the projection that introduced it.
	complements map[string]Flow
}

// NewEncoder builds an Encoder with a fresh interning table.
func NewEncoder() *Encoder {
	return &Encoder{
		classes:     make(map[string]*Class),
		composed:    make(map[string]*Composed),
		refs:        make(map[bound.Node]Code),
		complements: make(map[string]Flow),
	}
}

// Encode lowers a bound query's root into a top-level Selection. A root
// sieve over a selection (`F{...}?p`) becomes that selection with its
// base flow filtered by p.
func (e *Encoder) Encode(q *bound.Query) (*Selection, error) {
	if sieve, ok := q.Root.(*bound.Sieve); ok {
		if inner, ok := sieve.Base.(*bound.Selection); ok {
			sel, err := e.encodeSelection(inner)
			if err != nil {
				return nil, err
			}
			pred, err := e.encodeCode(sieve.Predicate)
			if err != nil {
				return nil, err
			}
			sel.Base = NewFiltered(sieve.Span(), sel.Base, pred)
			return sel, nil
		}
	}
	sel, ok := q.Root.(*bound.Selection)
	if !ok {
		return nil, fmt.Errorf("flow: query root %T is not a Selection (binder must wrap bare flows)", q.Root)
	}
	return e.encodeSelection(sel)
}

func (e *Encoder) encodeSelection(s *bound.Selection) (*Selection, error) {
	base, err := e.encodeFlow(s.Base)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Nested != nil {
			nestedSel, err := e.encodeSelection(f.Nested)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: f.Name, Nested: &Segment{Flow: nestedSel.Base, Selection: nestedSel}})
			continue
		}
		code, err := e.encodeCode(f.Value)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: f.Name, Value: code})
	}
	return &Selection{Base: base, Fields: fields}, nil
}

// encodeFlow lowers a bound node that denotes a sequence into a Flow.
func (e *Encoder) encodeFlow(n bound.Node) (Flow, error) {
	switch v := n.(type) {
	case *bound.Class:
		return e.classFlow(v.Span(), v.Entity), nil

	case *bound.Link:
		base, err := e.encodeFlow(v.Base)
		if err != nil {
			return nil, err
		}
		return e.composedFlow(v.Span(), base, v.Link), nil

	case *bound.Sieve:
		base, err := e.encodeFlow(v.Base)
		if err != nil {
			return nil, err
		}
		pred, err := e.encodeCode(v.Predicate)
		if err != nil {
			return nil, err
		}
		return NewFiltered(v.Span(), base, pred), nil

	case *bound.Ordered:
		base, err := e.encodeFlow(v.Base)
		if err != nil {
			return nil, err
		}
		keys := make([]SortKey, 0, len(v.Keys))
		for _, k := range v.Keys {
			code, err := e.encodeCode(k.Value)
			if err != nil {
				return nil, err
			}
			keys = append(keys, SortKey{Value: code, Descending: k.Descending, NullsFirst: k.Descending})
		}
		return NewOrdered(v.Span(), base, keys), nil

	case *bound.Sliced:
		base, err := e.encodeFlow(v.Base)
		if err != nil {
			return nil, err
		}
		return NewSliced(v.Span(), base, v.Limit, v.Offset), nil

	case *bound.Projection:
		base, err := e.encodeFlow(v.Base)
		if err != nil {
			return nil, err
		}
		e.complements[v.ComplementEntity] = base
		kernel := make([]Code, 0, len(v.Kernel))
		for _, k := range v.Kernel {
			code, err := e.encodeCode(k)
			if err != nil {
				return nil, err
			}
			kernel = append(kernel, code)
		}
		return NewQuotient(v.Span(), base, kernel, v.KernelNames, v.ComplementEntity), nil

	case *bound.Complement:
		if f, ok := e.complements[v.Entity]; ok {
			return f, nil
		}
		return nil, fmt.Errorf("flow: unresolved complement %q (binder scoping invariant violated)", v.Entity)

	case *bound.Selection:
		return e.encodeFlow(v.Base)

	default:
		return nil, fmt.Errorf("flow: %T does not denote a flow", n)
	}
}

// encodeCode lowers a bound node that denotes a scalar into a Code.
func (e *Encoder) encodeCode(n bound.Node) (Code, error) {
	switch v := n.(type) {
	case *bound.Attribute:
		base, err := e.encodeFlow(v.Base)
		if err != nil {
			return nil, err
		}
		return NewColumn(v.Span(), base, v.Attr), nil

	case *bound.Literal:
		return NewLiteral(v.Span(), v.Value, v.Domain()), nil

	case *bound.Parameter:
		return NewParameter(v.Span(), v.Name, v.Domain()), nil

	case *bound.Reference:
		if c, ok := e.refs[v.Value]; ok {
			return c, nil
		}
		code, err := e.encodeCode(v.Value)
		if err != nil {
			return nil, err
		}
		e.refs[v.Value] = code
		return code, nil

	case *bound.Cast:
		base, err := e.encodeCode(v.Base)
		if err != nil {
			return nil, err
		}
		return NewCast(v.Span(), base, v.Domain()), nil

	case *bound.Call:
		if v.Aggregate {
			return e.encodeAggregate(v)
		}
		args := make([]Code, 0, len(v.Args))
		for _, a := range v.Args {
			code, err := e.encodeCode(a)
			if err != nil {
				return nil, err
			}
			args = append(args, code)
		}
		return NewFormula(v.Span(), v.Name, args, v.Domain()), nil

	case *bound.Complement:
		return nil, fmt.Errorf("flow: complement %q used as a scalar outside an aggregate (binder must reject this at bind time)", v.Entity)

	default:
		return nil, fmt.Errorf("flow: %T does not denote a code", n)
	}
}

// encodeAggregate splits an aggregate call's argument into the plural flow
// it ranges over and the (optional) code computed within that flow, then
// builds the embedding Unit (§4.5, §4.6.1).
func (e *Encoder) encodeAggregate(call *bound.Call) (Code, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("flow: aggregate %q takes exactly one argument", call.Name)
	}
	flowNode, codeNode := splitAggregateArg(call.Args[0])
	f, err := e.encodeFlow(flowNode)
	if err != nil {
		return nil, err
	}
	var arg Code
	if codeNode != nil {
		arg, err = e.encodeCode(codeNode)
		if err != nil {
			return nil, err
		}
	}
	return NewAggregate(call.Span(), call.Name, f, arg, call.Domain()), nil
}

// splitAggregateArg separates an aggregate argument into the flow it
// ranges over and the column computed within it: `count(department)` has
// no column (a bare row count); `avg(course.credits)` ranges over the
// attribute's own base flow and computes `credits` within it.
func splitAggregateArg(n bound.Node) (flowNode, codeNode bound.Node) {
	if attr, ok := n.(*bound.Attribute); ok {
		return attr.Base, attr
	}
	return n, nil
}

func (e *Encoder) classFlow(span token.Span, entity string) *Class {
	if c, ok := e.classes[entity]; ok {
		return c
	}
	c := NewClass(span, entity)
	e.classes[entity] = c
	return c
}

func (e *Encoder) composedFlow(span token.Span, base Flow, link catalog.Link) *Composed {
	key := fmt.Sprintf("%p|%s", base, link.Name)
	if c, ok := e.composed[key]; ok {
		return c
	}
	c := NewComposed(span, base, link)
	e.composed[key] = c
	return c
}

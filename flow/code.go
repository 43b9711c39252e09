package flow

import (
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/token"
)

// Unit is a handle to a sub-computation over another flow — a plural
// reference embedded in an otherwise-singular code, which the term
// compiler turns into a correlated aggregate join (§4.5, §4.6.1).
type Unit struct {
	Flow Flow
	// Code is the value computed within Flow, or nil for a bare-count
	// aggregate with no argument column (`count(department)`).
	Code Code
}

// Code is a scalar over a flow.
type Code interface {
	Span() token.Span
	Domain() catalog.Domain
	Nullable() bool
	// Units lists every embedded plural sub-computation this code depends
	// on (possibly none, for a code with no aggregate beneath it).
	Units() []Unit
	codeNode()
}

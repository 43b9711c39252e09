// Package diag implements the diagnostic reporting used by every stage of
// the compiler pipeline: scan errors, syntax errors, name errors, type
// errors, structure errors, cardinality errors and limit errors all flow
// through the same Diagnostic type, carrying source spans from the
// original query text through every transformation.
package diag

import (
	"fmt"
	"strings"

	"github.com/syssam/navql/token"
)

// Kind enumerates the diagnostic kinds named by the specification.
type Kind string

const (
	BadEncoding Kind = "BadEncoding"
	BadNumber   Kind = "BadNumber"
	BadString   Kind = "BadString"
	BadSymbol   Kind = "BadSymbol"

	UnexpectedToken Kind = "UnexpectedToken"
	UnexpectedEnd   Kind = "UnexpectedEnd"

	Unknown      Kind = "Unknown"
	NameShadowed Kind = "NameShadowed"
	Ambiguous    Kind = "Ambiguous"

	TypeMismatch Kind = "TypeMismatch"
	BadLiteral   Kind = "BadLiteral"
	BadCast      Kind = "BadCast"
	BadCoercion  Kind = "BadCoercion"

	PluralityError               Kind = "PluralityError"
	AggregateOfSingular           Kind = "AggregateOfSingular"
	NestedSegmentInScalarContext Kind = "NestedSegmentInScalarContext"
	InvalidKernel                Kind = "InvalidKernel"
	InvalidProjection             Kind = "InvalidProjection"

	OrderingNotSupported Kind = "OrderingNotSupported"

	NegativeLimit   Kind = "NegativeLimit"
	NonIntegerLimit Kind = "NonIntegerLimit"

	// ForwardReference resolves the open question in spec.md §9: a
	// define(T.name := expr) that is referenced before its textual
	// position is rejected rather than guessed at.
	ForwardReference Kind = "ForwardReference"
)

// Note is one entry in a diagnostic's explanatory chain, e.g. pointing at
// the conflicting declaration for an Ambiguous error.
type Note struct {
	Message string
	Span    token.Span
}

// Diagnostic is the error type returned by every compiler stage. It is
// immutable; WithNote returns a new Diagnostic with the note appended.
type Diagnostic struct {
	Kind    Kind
	Spans   []token.Span
	Message string
	Notes   []Note
}

// New creates a Diagnostic of the given kind anchored at span.
func New(kind Kind, span token.Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:    kind,
		Spans:   []token.Span{span},
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", d.Kind, d.Message)
	for _, s := range d.Spans {
		fmt.Fprintf(&b, " [%s]", s)
	}
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "\n  note: %s [%s]", n.Message, n.Span)
	}
	return b.String()
}

// Is allows errors.Is(err, diag.Kind) style matching against a sentinel
// Diagnostic carrying only a Kind (no spans/message).
func (d *Diagnostic) Is(target error) bool {
	t, ok := target.(*Diagnostic)
	if !ok {
		return false
	}
	if t.Message == "" && len(t.Spans) == 0 {
		return d.Kind == t.Kind
	}
	return d == t
}

// Sentinel returns a zero-value Diagnostic usable with errors.Is to test
// only the Kind of a returned error, e.g. errors.Is(err, diag.Sentinel(diag.Unknown)).
func Sentinel(kind Kind) *Diagnostic { return &Diagnostic{Kind: kind} }

// WithNote returns a copy of d with an additional note appended.
func (d *Diagnostic) WithNote(span token.Span, format string, args ...any) *Diagnostic {
	nd := *d
	nd.Notes = append(append([]Note{}, d.Notes...), Note{Message: fmt.Sprintf(format, args...), Span: span})
	return &nd
}

// Bag accumulates non-fatal warnings (e.g. NameShadowed) collected during a
// compile call and returned alongside the result on success.
type Bag struct {
	Warnings []*Diagnostic
}

// Warn appends a warning diagnostic.
func (b *Bag) Warn(d *Diagnostic) { b.Warnings = append(b.Warnings, d) }

// Package token defines the lexical tokens produced by the scanner and
// consumed by the parser.
package token

import "fmt"

// Kind identifies the lexical category of a Token.
type Kind int

const (
	// EOF marks the end of the token stream.
	EOF Kind = iota
	// NAME is a letter/underscore-led identifier (case-folded for lookup).
	NAME
	// NUMBER_INT is an all-digit numeral.
	NUMBER_INT
	// NUMBER_DECIMAL is a numeral containing a decimal point.
	NUMBER_DECIMAL
	// NUMBER_FLOAT is a numeral with an exponent.
	NUMBER_FLOAT
	// STRING is a single-quoted string literal.
	STRING
	// SYMBOL is an operator or punctuation token.
	SYMBOL
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case NAME:
		return "NAME"
	case NUMBER_INT:
		return "NUMBER_INT"
	case NUMBER_DECIMAL:
		return "NUMBER_DECIMAL"
	case NUMBER_FLOAT:
		return "NUMBER_FLOAT"
	case STRING:
		return "STRING"
	case SYMBOL:
		return "SYMBOL"
	}
	return "UNKNOWN"
}

// Span is a byte-offset range into the percent-decoded source text.
// Start is inclusive, End is exclusive.
type Span struct {
	Start, End int
}

// String renders the span as "start:end" for diagnostics.
func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Start, s.End)
}

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	u := s
	if o.Start < u.Start {
		u.Start = o.Start
	}
	if o.End > u.End {
		u.End = o.End
	}
	return u
}

// Empty reports whether the span covers no text.
func (s Span) Empty() bool { return s.Start >= s.End }

// Token is one lexeme together with its source span.
type Token struct {
	Kind Kind
	// Text is the raw source text as written (original casing preserved).
	Text string
	// Canonical is the lowered, lookup-ready form for NAME tokens, or the
	// decoded value for STRING tokens. Unused for other kinds.
	Canonical string
	Span      Span
}

// IsSymbol reports whether t is a SYMBOL token with the given text.
func (t Token) IsSymbol(s string) bool {
	return t.Kind == SYMBOL && t.Text == s
}

// Package navql is the URI-to-SQL translator's entry point: it accepts a
// query written in the source language, a catalog snapshot, and a
// parameter-domain map, and returns a rendered SQL statement plus its
// bound parameters (spec.md §6.2).
//
// Compilation is single-threaded and pure with respect to its inputs
// (§5): a Compiler wrapping a catalog snapshot is immutable and safe to
// share and call concurrently from many goroutines. The package does
// not cache; see navqlcache for a content-addressed cache an embedder
// can place in front of Compile.
package navql

import (
	"fmt"

	"github.com/syssam/navql/binder"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/dialect"
	"github.com/syssam/navql/flow"
	"github.com/syssam/navql/parser"
	"github.com/syssam/navql/sqlwriter"
	"github.com/syssam/navql/term"
)

// ColumnSchema describes the shape of one output column (§6.2): its
// name, domain, nullability, and — for a nested segment — the schema of
// its own child columns.
type ColumnSchema struct {
	Name     string
	Domain   catalog.Domain
	Nullable bool
	Nested   bool
	Children []ColumnSchema
}

// Result is a successful compilation's output.
type Result struct {
	SQL    string
	Params []any
	Schema []ColumnSchema
	Nested []NestedResult
}

// NestedResult is a correlated child statement produced by a `/sub`
// segment (§4.6.5).
type NestedResult struct {
	FieldName string
	Result
}

// Compiler wraps one immutable catalog snapshot and dialect profile.
// Build one per catalog version and reuse it across compiles.
type Compiler struct {
	catalog catalog.Catalog
	profile dialect.Profile
}

// New builds a Compiler over a catalog snapshot, rendering for the given
// dialect profile.
func New(cat catalog.Catalog, profile dialect.Profile) *Compiler {
	return &Compiler{catalog: cat, profile: profile}
}

// Compile runs the full pipeline — scan, parse, bind, encode, compile,
// render — over source and returns the rendered statement, or a
// *diag.Diagnostic (satisfying error) describing the first failure.
//
// paramDomains maps `$name` parameter names to the domain they should be
// bound as; an unlisted name defaults to untyped (§6.5).
func (c *Compiler) Compile(source string, paramDomains map[string]catalog.Domain) (*Result, error) {
	q, err := parser.ParseSource(source)
	if err != nil {
		return nil, err
	}

	b := binder.NewWithParamDomains(c.catalog, paramDomains)
	bq, _, berr := b.Bind(q)
	if berr != nil {
		return nil, berr
	}

	sel, err := flow.NewEncoder().Encode(bq)
	if err != nil {
		return nil, fmt.Errorf("navql: %w", err)
	}

	compiled, err := term.NewCompiler(c.catalog).Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("navql: %w", err)
	}

	rendered, nested, err := sqlwriter.New(c.profile).Write(compiled)
	if err != nil {
		return nil, fmt.Errorf("navql: %w", err)
	}

	return &Result{
		SQL:    rendered.SQL,
		Params: rendered.Params,
		Schema: schemaOf(sel),
		Nested: nestedResultsOf(sel, nested),
	}, nil
}

func schemaOf(sel *flow.Selection) []ColumnSchema {
	out := make([]ColumnSchema, 0, len(sel.Fields))
	for _, f := range sel.Fields {
		if f.Nested != nil {
			out = append(out, ColumnSchema{Name: f.Name, Nested: true, Children: schemaOf(f.Nested.Selection)})
			continue
		}
		out = append(out, ColumnSchema{Name: f.Name, Domain: f.Value.Domain(), Nullable: f.Value.Nullable()})
	}
	return out
}

func nestedResultsOf(sel *flow.Selection, written []sqlwriter.NestedResult) []NestedResult {
	out := make([]NestedResult, 0, len(written))
	for _, w := range written {
		var childSel *flow.Selection
		for _, f := range sel.Fields {
			if f.Nested != nil && f.Name == w.FieldName {
				childSel = f.Nested.Selection
				break
			}
		}
		r := NestedResult{FieldName: w.FieldName, Result: Result{SQL: w.Result.SQL, Params: w.Result.Params}}
		if childSel != nil {
			r.Schema = schemaOf(childSel)
			r.Nested = nestedResultsOf(childSel, w.Children)
		}
		out = append(out, r)
	}
	return out
}

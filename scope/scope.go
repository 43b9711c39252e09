// Package scope implements the binder's name environment: an immutable,
// persistent stack of scopes (§4.4.1). A scope extension ("define" /
// "where" / entering a class or projection) produces a new Scope sharing
// its parent; nothing is ever mutated in place, matching the "persistent
// maps backed by small immutable vectors" design note in spec.md §9.
package scope

import (
	"github.com/syssam/navql/ast"
	"github.com/syssam/navql/bound"
	"github.com/syssam/navql/catalog"
)

// Kind identifies what a Binding resolves to.
type Kind int

const (
	// Attribute is a column of the current class scope.
	Attribute Kind = iota
	// Link is an outgoing link (forward or reverse) of the current class scope.
	Link
	// Calculated is a user `name := expr` augmentation (define/where).
	Calculated
	// Builtin is one of the top-level functions/constants (§4.4.1).
	Builtin
	// Reference is a `$name` cross-scope value (§4.4.3).
	Reference
	// Complement is the implicit reverse link back to a projection's base flow.
	Complement
	// KernelPart is a named part of a projection's kernel.
	KernelPart
	// Class is a bare entity-class name resolving to Flow: Class(T).
	Class
)

// Binding is what a name resolves to within a Scope.
type Binding struct {
	Kind Kind
	Name string

	Attribute catalog.Attribute
	Link      catalog.Link
	ClassName string // for Kind == Class

	// Calculated carries an unevaluated expression plus the scope it was
	// declared in (closure semantics: a calculated attribute is re-bound
	// against a fresh Base at every use site, but name resolution inside
	// its expression always happens in the scope it was defined in).
	Expr     ast.Node
	DefScope *Scope
	Params   []string // parameter names, for a parameterized calculation

	// Reference and KernelPart are evaluated exactly once, at the point
	// they are introduced (define($name := expr), a kernel part), so they
	// carry the already-bound value (§4.4.3, §9 scenario 5: "evaluated
	// once").
	Value bound.Node

	KernelIndex int
}

// Scope is an immutable name environment. Ordinary lookups (Lookup) never
// walk to the parent (§4.4.2: "do not walk the stack by default"); only
// LookupReference walks outward, and only ever finds Reference bindings
// (§4.4.3).
type Scope struct {
	parent *Scope
	entity string // "" when this scope is not a class scope
	locals map[string]Binding
	order  []string // insertion order, for deterministic '*' expansion
}

// Entity returns the class-scope entity name, or "" if this scope is not
// a class scope (e.g. the root scope, or a projection scope).
func (s *Scope) Entity() string { return s.entity }

// Root builds the root scope: its base flow is a singleton, and its names
// are every entity class plus the built-in top-level functions (§4.4.1).
func Root(cat catalog.Catalog, builtins []string) *Scope {
	s := &Scope{locals: make(map[string]Binding)}
	for _, e := range cat.Entities() {
		s.set(Binding{Kind: Class, Name: e.Name, ClassName: e.Name})
	}
	for _, b := range builtins {
		if _, exists := s.locals[b]; exists {
			continue
		}
		s.set(Binding{Kind: Builtin, Name: b})
	}
	return s
}

func (s *Scope) set(b Binding) {
	if _, exists := s.locals[b.Name]; !exists {
		s.order = append(s.order, b.Name)
	}
	s.locals[b.Name] = b
}

// clone returns a new Scope with the same parent-walkability as s but an
// independent, copied locals map so extension never mutates an ancestor.
func (s *Scope) clone() *Scope {
	n := &Scope{parent: s.parent, entity: s.entity, locals: make(map[string]Binding, len(s.locals)+4)}
	for _, name := range s.order {
		n.locals[name] = s.locals[name]
		n.order = append(n.order, name)
	}
	return n
}

// Class enters a class scope for entity e: names resolve to e's
// attributes, e's outgoing links, and the ambient builtins already visible
// in s. Link names shadow same-named attributes (§4.4.2).
func Class(parent *Scope, cat catalog.Catalog, entityName string) *Scope {
	s := &Scope{parent: parent, entity: entityName, locals: make(map[string]Binding)}
	// Builtins remain visible by falling through to the parent chain only
	// via Builtin entries copied in; a class scope is otherwise a fresh
	// lexical frame per §4.4.2.
	for _, name := range parent.order {
		if b := parent.locals[name]; b.Kind == Builtin {
			s.set(b)
		}
	}
	for _, a := range cat.Attributes(entityName) {
		s.set(Binding{Kind: Attribute, Name: a.Name, Attribute: a})
	}
	for _, l := range cat.Links(entityName) {
		// A link shadows a same-named attribute (the broader capability wins).
		s.set(Binding{Kind: Link, Name: l.Name, Link: l})
	}
	return s
}

// Projection enters a projection scope for `T^K`: names resolve to the
// kernel's named parts and a complement link back to the base flow.
func Projection(parent *Scope, kernelNames []string, complementName string, baseEntity string) *Scope {
	s := &Scope{parent: parent, locals: make(map[string]Binding)}
	for _, name := range parent.order {
		if b := parent.locals[name]; b.Kind == Builtin {
			s.set(b)
		}
	}
	for i, name := range kernelNames {
		s.set(Binding{Kind: KernelPart, Name: name, KernelIndex: i})
	}
	s.set(Binding{Kind: Complement, Name: complementName, ClassName: baseEntity})
	return s
}

// Extend returns a new scope with bindings added on top of s, used by
// define(...) (bindings visible from the point of appearance onward in
// the enclosing flow) and where(...) (bindings visible only within one
// expression). Mechanically identical; the binder decides how broadly the
// result is threaded.
func (s *Scope) Extend(bindings ...Binding) *Scope {
	n := s.clone()
	for _, b := range bindings {
		n.set(b)
	}
	return n
}

// Lookup resolves name in the innermost scope only (§4.4.2 step 2–3): it
// never walks to the parent.
func (s *Scope) Lookup(name string) (Binding, bool) {
	b, ok := s.locals[name]
	return b, ok
}

// LookupReference walks outward through the scope chain looking for a
// Reference binding for name (§4.4.3). Bare identifiers never leak across
// scopes; only references do.
func (s *Scope) LookupReference(name string) (Binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.locals[name]; ok && b.Kind == Reference {
			return b, true
		}
	}
	return Binding{}, false
}

// Complement returns this scope's Complement binding, if it has one. The
// literal `^` atom (as opposed to the complement's ordinary name) always
// means "whichever binding is the complement," regardless of what it was
// named when the projection scope was built.
func (s *Scope) Complement() (Binding, bool) {
	for _, name := range s.order {
		if b := s.locals[name]; b.Kind == Complement {
			return b, true
		}
	}
	return Binding{}, false
}

// Names returns the scope's bindings in declaration order (used for `*`
// wildcard expansion of a projection's kernel parts, and for iterating a
// class scope's attributes).
func (s *Scope) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Package parser implements the recursive-descent parser that turns a
// token stream into the untyped syntax tree defined by package ast.
//
// The grammar, precedence and associativity followed here are the ones in
// spec.md §4.2, except that the '^' chain is folded left inside the sieve
// rule (see parsePower), so a selector or filter attaches to the whole
// projection:
//
//	query        := '/' segment? format?
//	segment      := selector | specifier selector? filter?
//	filter       := '?' test
//	format       := '/' ':' NAME
//	test         := or_test ( ':' NAME call-args? )* direction?
//	or_test      := and_test ( '|' and_test )*
//	and_test     := not_test ( '&' not_test )*
//	not_test     := '!' not_test | cmp
//	cmp          := expr ( (=|!=|==|!==|~|!~|<|<=|>|>=) expr )?
//	expr         := term ( (+|-) term )*
//	term         := factor ( (*|/) factor )*
//	factor       := ('+'|'-') factor | power
//	power        := sieve
//	sieve        := specifier ( '^' specifier )* selector? filter?
//	specifier    := atom ( '.' NAME call-args? )* ( '.' '*' )?
//	atom         := wildcard | complement | group | NAME call-args? | LITERAL | '$' NAME
//	call-args    := '(' ( test (',' test)* ','? )? ')'
//	selector     := '{' ( test (',' test)* ','? )? '}'
//	group        := '(' test ')'
package parser

import (
	"strconv"

	"github.com/syssam/navql/ast"
	"github.com/syssam/navql/diag"
	"github.com/syssam/navql/lexer"
	"github.com/syssam/navql/token"
)

// cmpOps is the set of comparison operator symbols accepted by cmp.
var cmpOps = map[string]bool{
	"=": true, "!=": true, "==": true, "!==": true,
	"~": true, "!~": true, "<": true, "<=": true, ">": true, ">=": true,
}

// ParseSource scans and parses a raw (not yet decoded) query source string.
func ParseSource(source string) (*ast.Query, error) {
	toks, err := lexer.Scan(source)
	if err != nil {
		return nil, err
	}
	return Parse(toks)
}

// Parse parses a complete token stream (including its trailing EOF token)
// into a Query node.
func Parse(toks []token.Token) (*ast.Query, error) {
	p := &Parser{toks: toks}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.EOF {
		return nil, p.unexpected("end of input")
	}
	return q, nil
}

// Parser holds the token buffer and current read position.
type Parser struct {
	toks []token.Token
	pos  int
}

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) unexpected(expected string) error {
	t := p.cur()
	if t.Kind == token.EOF {
		return diag.New(diag.UnexpectedEnd, t.Span, "unexpected end of input, expected %s", expected)
	}
	return diag.New(diag.UnexpectedToken, t.Span, "unexpected token %q, expected %s", t.Text, expected)
}

func (p *Parser) expectSymbol(sym string) (token.Token, error) {
	if !p.cur().IsSymbol(sym) {
		return token.Token{}, p.unexpected("'" + sym + "'")
	}
	return p.advance(), nil
}

func (p *Parser) expectName() (token.Token, error) {
	if p.cur().Kind != token.NAME {
		return token.Token{}, p.unexpected("a name")
	}
	return p.advance(), nil
}

// --- query / segment / filter / format ---

func (p *Parser) parseQuery() (*ast.Query, error) {
	start, err := p.expectSymbol("/")
	if err != nil {
		return nil, err
	}
	var root ast.Node
	if !p.cur().IsSymbol("/") && p.cur().Kind != token.EOF {
		root, err = p.parseSegment()
		if err != nil {
			return nil, err
		}
	}
	format := ""
	end := start.Span
	if root != nil {
		end = root.Span()
	}
	if p.cur().IsSymbol("/") {
		slash := p.advance()
		if _, err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		nameTok, err := p.expectName()
		if err != nil {
			return nil, err
		}
		format = nameTok.Canonical
		end = slash.Span.Union(nameTok.Span)
	}
	return ast.NewQuery(start.Span.Union(end), root, format), nil
}

func (p *Parser) parseSegment() (ast.Node, error) {
	if p.cur().IsSymbol("{") {
		items, span, err := p.parseSelectorBody()
		if err != nil {
			return nil, err
		}
		rootIdent := ast.NewIdentifier(span, "root", "root")
		return ast.NewSelection(span, rootIdent, items), nil
	}
	return p.parseSieve()
}

// --- test / or_test / and_test / not_test / cmp ---

func (p *Parser) parseTest() (ast.Node, error) {
	if node, ok, err := p.tryParseAssignment(); err != nil {
		return nil, err
	} else if ok {
		return node, nil
	}
	return p.parseTestBody()
}

func (p *Parser) parseTestBody() (ast.Node, error) {
	left, err := p.parseOrTest()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol(":") {
		p.advance()
		nameTok, err := p.expectName()
		if err != nil {
			return nil, err
		}
		var args []ast.Node
		end := nameTok.Span
		if p.cur().IsSymbol("(") {
			args, end, err = p.parseCallArgs()
			if err != nil {
				return nil, err
			}
		}
		left = ast.NewInfixCall(left.Span().Union(end), left, nameTok.Canonical, args)
	}
	if p.cur().IsSymbol("+") || p.cur().IsSymbol("-") {
		dirTok := p.advance()
		left = ast.NewDirection(left.Span().Union(dirTok.Span), left, dirTok.Text)
	}
	return left, nil
}

// tryParseAssignment speculatively parses `name := expr`, `name(params) :=
// expr`, or `T.name(params) := expr`; it restores position and returns
// ok=false if the input does not match.
func (p *Parser) tryParseAssignment() (ast.Node, bool, error) {
	save := p.pos
	fail := func() (ast.Node, bool, error) { p.pos = save; return nil, false, nil }

	if p.cur().IsSymbol("$") {
		dollar := p.advance()
		if p.cur().Kind != token.NAME {
			return fail()
		}
		nameTok := p.advance()
		if !p.cur().IsSymbol(":=") {
			return fail()
		}
		p.advance()
		value, err := p.parseTestBody()
		if err != nil {
			return nil, false, err
		}
		return ast.NewReferenceAssignment(dollar.Span.Union(value.Span()), nameTok.Canonical, value), true, nil
	}

	if p.cur().Kind != token.NAME {
		return fail()
	}
	first := p.advance()
	class := ""
	name := first.Canonical
	start := first.Span
	if p.cur().IsSymbol(".") {
		p.advance()
		if p.cur().Kind != token.NAME {
			return fail()
		}
		class = name
		nameTok := p.advance()
		name = nameTok.Canonical
	}
	var params []string
	if p.cur().IsSymbol("(") {
		p.advance()
		for !p.cur().IsSymbol(")") {
			if !p.cur().IsSymbol("$") {
				return fail()
			}
			p.advance()
			if p.cur().Kind != token.NAME {
				return fail()
			}
			params = append(params, p.advance().Canonical)
			if p.cur().IsSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if !p.cur().IsSymbol(")") {
			return fail()
		}
		p.advance()
	}
	if !p.cur().IsSymbol(":=") {
		return fail()
	}
	p.advance()
	value, err := p.parseTestBody()
	if err != nil {
		return nil, false, err
	}
	span := start.Union(value.Span())
	if class != "" {
		return ast.NewClassAssignment(span, class, name, params, value), true, nil
	}
	return ast.NewAssignment(span, name, params, value), true, nil
}

func (p *Parser) parseOrTest() (ast.Node, error) {
	left, err := p.parseAndTest()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol("|") {
		p.advance()
		right, err := p.parseAndTest()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(left.Span().Union(right.Span()), "|", left, right)
	}
	return left, nil
}

func (p *Parser) parseAndTest() (ast.Node, error) {
	left, err := p.parseNotTest()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol("&") {
		p.advance()
		right, err := p.parseNotTest()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(left.Span().Union(right.Span()), "&", left, right)
	}
	return left, nil
}

func (p *Parser) parseNotTest() (ast.Node, error) {
	if p.cur().IsSymbol("!") {
		bang := p.advance()
		operand, err := p.parseNotTest()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(bang.Span.Union(operand.Span()), "!", operand), nil
	}
	return p.parseCmp()
}

func (p *Parser) parseCmp() (ast.Node, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == token.SYMBOL && cmpOps[p.cur().Text] {
		opTok := p.advance()
		if opTok.Text == "=" && p.cur().IsSymbol("{") {
			items, span, err := p.parseSelectorBody()
			if err != nil {
				return nil, err
			}
			return ast.NewInList(left.Span().Union(span), left, items), nil
		}
		right, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.NewBinary(left.Span().Union(right.Span()), opTok.Text, left, right), nil
	}
	return left, nil
}

// --- expr / term / factor / power / sieve / specifier / atom ---

func canStartFactor(t token.Token) bool {
	switch t.Kind {
	case token.NAME, token.NUMBER_INT, token.NUMBER_DECIMAL, token.NUMBER_FLOAT, token.STRING:
		return true
	}
	if t.Kind != token.SYMBOL {
		return false
	}
	switch t.Text {
	case "(", "$", "^", "*", "+", "-":
		return true
	}
	return false
}

func (p *Parser) parseExpr() (ast.Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol("+") || p.cur().IsSymbol("-") {
		if !canStartFactor(p.peekAt(1)) {
			break
		}
		op := p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(left.Span().Union(right.Span()), op.Text, left, right)
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol("*") || p.cur().IsSymbol("/") {
		op := p.advance()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(left.Span().Union(right.Span()), op.Text, left, right)
	}
	return left, nil
}

func (p *Parser) parseFactor() (ast.Node, error) {
	if p.cur().IsSymbol("+") || p.cur().IsSymbol("-") {
		op := p.advance()
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(op.Span.Union(operand.Span()), op.Text, operand), nil
	}
	return p.parsePower()
}

// parsePower delegates to parseSieve: the projection chain ('^') is folded
// into sieve parsing below so that a selector or filter following a
// projection (e.g. `school^campus{campus, count(school)}`) attaches to the
// projection's result rather than to its kernel, matching the worked
// examples in spec.md §8 rather than a literal naive reading of the BNF
// (see DESIGN.md).
func (p *Parser) parsePower() (ast.Node, error) {
	return p.parseSieve()
}

func (p *Parser) parseSieve() (ast.Node, error) {
	node, err := p.parseSpecifier()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol("^") {
		p.advance()
		kernel, err := p.parseSpecifier()
		if err != nil {
			return nil, err
		}
		node = ast.NewProjection(node.Span().Union(kernel.Span()), node, kernel)
	}
	if p.cur().IsSymbol("{") {
		items, span, err := p.parseSelectorBody()
		if err != nil {
			return nil, err
		}
		node = ast.NewSelection(node.Span().Union(span), node, items)
	}
	if p.cur().IsSymbol("?") {
		p.advance()
		pred, err := p.parseTest()
		if err != nil {
			return nil, err
		}
		node = ast.NewSieve(node.Span().Union(pred.Span()), node, pred)
	}
	return node, nil
}

func (p *Parser) parseSpecifier() (ast.Node, error) {
	node, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.cur().IsSymbol(".") {
		dot := p.cur()
		p.advance()
		if p.cur().IsSymbol("*") {
			star := p.advance()
			node = ast.NewComposition(node.Span().Union(star.Span), node, ast.NewWildcard(star.Span, 0))
			break
		}
		nameTok, err := p.expectName()
		if err != nil {
			return nil, err
		}
		var right ast.Node
		if p.cur().IsSymbol("(") {
			args, end, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			right = ast.NewFunctionCall(nameTok.Span.Union(end), nameTok.Canonical, args)
		} else {
			right = ast.NewIdentifier(nameTok.Span, nameTok.Canonical, nameTok.Text)
		}
		_ = dot
		node = ast.NewComposition(node.Span().Union(right.Span()), node, right)
	}
	return node, nil
}

func (p *Parser) parseAtom() (ast.Node, error) {
	t := p.cur()
	switch {
	case t.IsSymbol("*"):
		p.advance()
		n := 0
		end := t.Span
		if p.cur().Kind == token.NUMBER_INT && p.cur().Span.Start == t.Span.End {
			numTok := p.advance()
			v, err := strconv.Atoi(numTok.Text)
			if err != nil {
				return nil, diag.New(diag.BadNumber, numTok.Span, "invalid wildcard index %q", numTok.Text)
			}
			n = v
			end = numTok.Span
		}
		return ast.NewWildcard(t.Span.Union(end), n), nil
	case t.IsSymbol("^"):
		p.advance()
		return ast.NewComplement(t.Span), nil
	case t.IsSymbol("("):
		p.advance()
		items, err := p.parseListItems(")")
		if err != nil {
			return nil, err
		}
		closeTok, err := p.expectSymbol(")")
		if err != nil {
			return nil, err
		}
		span := t.Span.Union(closeTok.Span)
		if len(items) == 1 {
			return ast.NewGroup(span, items[0]), nil
		}
		return ast.NewList(span, items), nil
	case t.Kind == token.NAME:
		p.advance()
		if p.cur().IsSymbol("(") {
			args, end, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			return ast.NewFunctionCall(t.Span.Union(end), t.Canonical, args), nil
		}
		return ast.NewIdentifier(t.Span, t.Canonical, t.Text), nil
	case t.Kind == token.NUMBER_INT:
		p.advance()
		return ast.NewLiteral(t.Span, "integer", t.Text), nil
	case t.Kind == token.NUMBER_DECIMAL:
		p.advance()
		return ast.NewLiteral(t.Span, "decimal", t.Text), nil
	case t.Kind == token.NUMBER_FLOAT:
		p.advance()
		return ast.NewLiteral(t.Span, "float", t.Text), nil
	case t.Kind == token.STRING:
		p.advance()
		return ast.NewLiteral(t.Span, "string", t.Canonical), nil
	case t.IsSymbol("$"):
		p.advance()
		nameTok, err := p.expectName()
		if err != nil {
			return nil, err
		}
		return ast.NewReference(t.Span.Union(nameTok.Span), nameTok.Canonical), nil
	}
	return nil, p.unexpected("an expression")
}

// --- call-args / selector (shared list bodies, allowing nested segments) ---

func (p *Parser) parseCallArgs() ([]ast.Node, token.Span, error) {
	open, err := p.expectSymbol("(")
	if err != nil {
		return nil, token.Span{}, err
	}
	items, err := p.parseListItems(")")
	if err != nil {
		return nil, token.Span{}, err
	}
	closeTok, err := p.expectSymbol(")")
	if err != nil {
		return nil, token.Span{}, err
	}
	return items, open.Span.Union(closeTok.Span), nil
}

func (p *Parser) parseSelectorBody() ([]ast.Node, token.Span, error) {
	open, err := p.expectSymbol("{")
	if err != nil {
		return nil, token.Span{}, err
	}
	items, err := p.parseListItems("}")
	if err != nil {
		return nil, token.Span{}, err
	}
	closeTok, err := p.expectSymbol("}")
	if err != nil {
		return nil, token.Span{}, err
	}
	return items, open.Span.Union(closeTok.Span), nil
}

func (p *Parser) parseListItems(closer string) ([]ast.Node, error) {
	var items []ast.Node
	if p.cur().IsSymbol(closer) {
		return items, nil
	}
	for {
		item, err := p.parseListItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur().IsSymbol(",") {
			p.advance()
			if p.cur().IsSymbol(closer) {
				break
			}
			continue
		}
		break
	}
	return items, nil
}

func (p *Parser) parseListItem() (ast.Node, error) {
	if p.cur().IsSymbol("/") {
		slash := p.advance()
		seg, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		return ast.NewNestedSegment(slash.Span.Union(seg.Span()), seg), nil
	}
	return p.parseTest()
}

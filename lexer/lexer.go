// Package lexer implements the scanner stage: percent-decoding followed by
// tokenization of the query language's source text.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/syssam/navql/diag"
	"github.com/syssam/navql/token"
)

// fold is the Unicode-aware case folder used to produce the canonical,
// lookup-ready form of NAME tokens (§4.1, §6.1: identifier case-folding is
// unconditional and applies beyond plain ASCII).
var fold = cases.Fold()

// symbols is the fixed operator/punctuation table, ordered longest-first so
// a greedy scan performs longest-match disambiguation.
var symbols = []string{
	"!==", "=~~",
	"!=", "==", "<=", ">=", "!~", "->", ":=", "=~", "^~", "$~",
	"/", ".", ",", ";", ":", "?", "&", "|", "!", "=", "<", ">",
	"~", "+", "-", "*", "^", "$", "@", "{", "}", "(", ")",
}

// Decode percent-decodes s: three-character %HH sequences become the
// decoded byte. It fails on %00, malformed %HH, or invalid UTF-8 in the
// decoded result. The null byte is forbidden anywhere in the source,
// encoded or not (§6.1).
func Decode(s string) (string, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return "", diag.New(diag.BadEncoding, token.Span{Start: 0, End: len(s)}, "null byte is forbidden in source")
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", diag.New(diag.BadEncoding, token.Span{Start: i, End: len(s)}, "truncated percent-escape")
		}
		hi, ok1 := hexVal(s[i+1])
		lo, ok2 := hexVal(s[i+2])
		if !ok1 || !ok2 {
			return "", diag.New(diag.BadEncoding, token.Span{Start: i, End: i + 3}, "malformed percent-escape %%%s", s[i+1:i+3])
		}
		decoded := byte(hi<<4 | lo)
		if decoded == 0 {
			return "", diag.New(diag.BadEncoding, token.Span{Start: i, End: i + 3}, "null byte is forbidden in source")
		}
		b.WriteByte(decoded)
		i += 2
	}
	out := b.String()
	if !utf8.ValidString(out) {
		return "", diag.New(diag.BadEncoding, token.Span{Start: 0, End: len(out)}, "invalid UTF-8 after percent-decoding")
	}
	return out, nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// Lexer scans a percent-decoded source string into a token stream.
type Lexer struct {
	src []byte
	pos int
}

// New returns a Lexer over the percent-decoded source text.
func New(decoded string) *Lexer {
	return &Lexer{src: []byte(decoded)}
}

// Scan runs Decode then tokenizes the result in one call, returning every
// token including a trailing EOF token.
func Scan(source string) ([]token.Token, error) {
	decoded, err := Decode(source)
	if err != nil {
		return nil, err
	}
	lx := New(decoded)
	var toks []token.Token
	for {
		t, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' {
			l.pos++
			continue
		}
		break
	}
}

// Next returns the next token, or an EOF token once the input is exhausted.
func (l *Lexer) Next() (token.Token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Span: token.Span{Start: start, End: start}}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '\'':
		return l.scanString()
	case c >= '0' && c <= '9':
		return l.scanNumber()
	case isNameStart(rune(c)) || c >= utf8.RuneSelf:
		return l.scanName()
	default:
		return l.scanSymbol()
	}
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) scanName() (token.Token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if !isNameCont(r) {
			break
		}
		l.pos += size
	}
	text := string(l.src[start:l.pos])
	return token.Token{
		Kind:      token.NAME,
		Text:      text,
		Canonical: fold.String(text),
		Span:      token.Span{Start: start, End: l.pos},
	}, nil
}

func (l *Lexer) scanNumber() (token.Token, error) {
	start := l.pos
	kind := token.NUMBER_INT
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		// Only consume the dot as a decimal point if followed by a digit;
		// otherwise it is the composition operator.
		if l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
			kind = token.NUMBER_DECIMAL
			l.pos++
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		save := l.pos
		p := l.pos + 1
		if p < len(l.src) && (l.src[p] == '+' || l.src[p] == '-') {
			p++
		}
		if p < len(l.src) && isDigit(l.src[p]) {
			for p < len(l.src) && isDigit(l.src[p]) {
				p++
			}
			l.pos = p
			kind = token.NUMBER_FLOAT
		} else {
			l.pos = save
		}
	}
	text := string(l.src[start:l.pos])
	return token.Token{Kind: kind, Text: text, Span: token.Span{Start: start, End: l.pos}}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *Lexer) scanString() (token.Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token.Token{}, diag.New(diag.BadString, token.Span{Start: start, End: l.pos}, "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == '\'' {
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\'' {
				b.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			break
		}
		if c == 0 {
			return token.Token{}, diag.New(diag.BadString, token.Span{Start: l.pos, End: l.pos + 1}, "null byte is forbidden in source")
		}
		b.WriteByte(c)
		l.pos++
	}
	return token.Token{
		Kind:      token.STRING,
		Text:      string(l.src[start:l.pos]),
		Canonical: b.String(),
		Span:      token.Span{Start: start, End: l.pos},
	}, nil
}

func (l *Lexer) scanSymbol() (token.Token, error) {
	start := l.pos
	rest := string(l.src[l.pos:])
	for _, sym := range symbols {
		if strings.HasPrefix(rest, sym) {
			l.pos += len(sym)
			return token.Token{Kind: token.SYMBOL, Text: sym, Span: token.Span{Start: start, End: l.pos}}, nil
		}
	}
	r, size := utf8.DecodeRune(l.src[l.pos:])
	end := l.pos + size
	return token.Token{}, diag.New(diag.BadSymbol, token.Span{Start: start, End: end}, "unrecognized symbol %q", fmt.Sprintf("%c", r))
}

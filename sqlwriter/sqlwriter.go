// Package sqlwriter renders a relational term tree into SQL text and an
// ordered list of bound parameters (spec.md §4.7). All per-backend
// variation is parametrized by a dialect.Profile; the term tree itself
// never names a dialect.
package sqlwriter

import (
	"fmt"
	"strings"

	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/dialect"
	"github.com/syssam/navql/term"
)

// Result is a rendered statement ready to execute.
type Result struct {
	SQL    string
	Params []any
}

// Param occupies a Result.Params position whose value is not known at
// compile time: an external `$name` reference (§6.5). The embedder
// supplies the actual value by Name before executing the statement.
type Param struct {
	Name   string
	Domain catalog.Domain
}

// Writer renders one term.Select tree (and any nested segments it
// carries) against a fixed dialect profile.
type Writer struct {
	profile dialect.Profile
	params  []any
}

// New builds a Writer for the given dialect profile.
func New(profile dialect.Profile) *Writer {
	return &Writer{profile: profile}
}

// Write renders sel into its own Result. Nested segments render to
// their own independent Results, returned in field-declaration order
// alongside the parent's.
func (w *Writer) Write(sel *term.Select) (*Result, []NestedResult, error) {
	w.params = nil
	var b strings.Builder
	if err := w.writeSelect(&b, sel); err != nil {
		return nil, nil, err
	}

	var nested []NestedResult
	for _, n := range sel.Nested {
		childWriter := New(w.profile)
		childResult, grandchildren, err := childWriter.Write(n.Select)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlwriter: nested segment %q: %w", n.FieldName, err)
		}
		nested = append(nested, NestedResult{FieldName: n.FieldName, Result: *childResult, Children: grandchildren})
	}

	return &Result{SQL: b.String(), Params: w.params}, nested, nil
}

// NestedResult is a correlated child statement produced for a `/sub`
// segment, carrying its own (possibly further-nested) Result.
type NestedResult struct {
	FieldName string
	Result    Result
	Children  []NestedResult
}

func (w *Writer) writeSelect(b *strings.Builder, sel *term.Select) error {
	b.WriteString("SELECT ")
	for i, col := range sel.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		expr, err := w.writeExpr(col.Expr)
		if err != nil {
			return err
		}
		b.WriteString(expr)
		b.WriteString(" AS ")
		b.WriteString(w.profile.QuoteIdentifier(col.Name))
	}

	b.WriteString(" FROM ")
	if err := w.writeRelation(b, sel.From); err != nil {
		return err
	}

	if sel.Where != nil {
		where, err := w.writeExpr(sel.Where)
		if err != nil {
			return err
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(sel.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, g := range sel.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			expr, err := w.writeExpr(g)
			if err != nil {
				return err
			}
			b.WriteString(expr)
		}
	}

	if len(sel.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range sel.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			expr, err := w.writeExpr(o.Expr)
			if err != nil {
				return err
			}
			b.WriteString(expr)
			if o.Descending {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
			if w.profile.SupportsNullsOrdering {
				if o.NullsFirst {
					b.WriteString(" NULLS FIRST")
				} else {
					b.WriteString(" NULLS LAST")
				}
			}
		}
	}

	if sel.Limit != nil {
		fmt.Fprintf(b, " LIMIT %d", *sel.Limit)
	}
	if sel.Offset != nil {
		fmt.Fprintf(b, " OFFSET %d", *sel.Offset)
	}
	return nil
}

func (w *Writer) writeRelation(b *strings.Builder, rel term.Relation) error {
	switch v := rel.(type) {
	case *term.Source:
		b.WriteString(w.profile.QuoteIdentifier(v.Table.Name))
		b.WriteString(" AS ")
		b.WriteString(w.profile.QuoteIdentifier(v.Table.Alias))
		return nil

	case *term.Subquery:
		b.WriteString("(")
		if err := w.writeSelect(b, v.Select); err != nil {
			return err
		}
		b.WriteString(") AS ")
		b.WriteString(w.profile.QuoteIdentifier(v.Alias))
		return nil

	case *term.Join:
		if err := w.writeRelation(b, v.Left); err != nil {
			return err
		}
		switch v.Kind {
		case term.InnerJoin:
			b.WriteString(" JOIN ")
		default:
			b.WriteString(" LEFT JOIN ")
		}
		if err := w.writeRelation(b, v.Right); err != nil {
			return err
		}
		b.WriteString(" ON ")
		for i, eq := range v.On {
			if i > 0 {
				b.WriteString(" AND ")
			}
			left, err := w.writeExpr(eq.Left)
			if err != nil {
				return err
			}
			right, err := w.writeExpr(eq.Right)
			if err != nil {
				return err
			}
			b.WriteString(left)
			b.WriteString(" = ")
			b.WriteString(right)
		}
		return nil

	default:
		return fmt.Errorf("sqlwriter: %T is not a renderable relation", rel)
	}
}

func (w *Writer) writeExpr(e term.Expr) (string, error) {
	switch v := e.(type) {
	case term.ColumnExpr:
		return fmt.Sprintf("%s.%s", w.profile.QuoteIdentifier(v.Alias), w.profile.QuoteIdentifier(v.Column)), nil

	case term.LiteralExpr:
		return w.bindParam(v.Value), nil

	case term.ParamExpr:
		return w.bindParam(Param{Name: v.Name, Domain: v.Domain}), nil

	case term.CallExpr:
		return w.writeCall(v)

	case term.CastExpr:
		inner, err := w.writeExpr(v.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("CAST(%s AS %s)", inner, sqlTypeName(string(v.Target.Kind))), nil

	case term.CoalesceExpr:
		inner, err := w.writeExpr(v.Expr)
		if err != nil {
			return "", err
		}
		identity, err := w.writeExpr(v.Identity)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("COALESCE(%s, %s)", inner, identity), nil

	case term.ScalarSubqueryExpr:
		var b strings.Builder
		b.WriteString("(")
		if err := w.writeSelect(&b, v.Select); err != nil {
			return "", err
		}
		b.WriteString(")")
		return b.String(), nil

	default:
		return "", fmt.Errorf("sqlwriter: %T is not a renderable expression", e)
	}
}

func (w *Writer) writeCall(c term.CallExpr) (string, error) {
	if c.Name == "*" && len(c.Args) == 0 {
		return "*", nil
	}
	if fn, ok := aggregateFuncs[c.Name]; ok {
		arg, err := w.writeExpr(c.Args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", fn, arg), nil
	}

	if (c.Name == "~" || c.Name == "!~") && len(c.Args) == 2 {
		left, right, err := w.writeOperands(c)
		if err != nil {
			return "", err
		}
		rendered := w.profile.CaseInsensitiveLike(left, right)
		if c.Name == "!~" {
			rendered = fmt.Sprintf("NOT (%s)", rendered)
		}
		return rendered, nil
	}

	if (c.Name == "==" || c.Name == "!==") && len(c.Args) == 2 {
		left, right, err := w.writeOperands(c)
		if err != nil {
			return "", err
		}
		if c.Name == "==" {
			return w.profile.NullSafeEqual(left, right), nil
		}
		return w.profile.NullSafeNotEqual(left, right), nil
	}

	if c.Name == "+" && len(c.Args) == 2 && c.Domain.Kind == catalog.String {
		left, right, err := w.writeOperands(c)
		if err != nil {
			return "", err
		}
		return w.profile.Concat(left, right), nil
	}

	if op, ok := infixOperators[c.Name]; ok && len(c.Args) == 2 {
		left, right, err := w.writeOperands(c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil
	}

	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		s, err := w.writeExpr(a)
		if err != nil {
			return "", err
		}
		args = append(args, s)
	}
	return fmt.Sprintf("%s(%s)", strings.ToUpper(c.Name), strings.Join(args, ", ")), nil
}

// writeOperands renders a binary CallExpr's two arguments in order.
func (w *Writer) writeOperands(c term.CallExpr) (string, string, error) {
	left, err := w.writeExpr(c.Args[0])
	if err != nil {
		return "", "", err
	}
	right, err := w.writeExpr(c.Args[1])
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

var aggregateFuncs = map[string]string{
	"count": "COUNT",
	"sum":   "SUM",
	"avg":   "AVG",
	"min":   "MIN",
	"max":   "MAX",
	"exists": "COUNT",
	"every":  "BOOL_AND",
}

var infixOperators = map[string]string{
	"&":  "AND",
	"|":  "OR",
	"=":  "=",
	"!=": "<>",
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
	"+":  "+",
	"-":  "-",
	"*":  "*",
	"/":  "/",
}

func sqlTypeName(kind string) string {
	switch kind {
	case "integer":
		return "INTEGER"
	case "decimal":
		return "DECIMAL"
	case "float":
		return "DOUBLE PRECISION"
	case "string":
		return "TEXT"
	case "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "time":
		return "TIME"
	case "datetime":
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (w *Writer) bindParam(value any) string {
	w.params = append(w.params, value)
	return w.profile.Placeholder(len(w.params))
}

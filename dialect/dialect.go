// Package dialect abstracts the per-backend SQL rendering differences
// the SQL writer needs (spec.md §4.7, §6.4): identifier quoting,
// parameter placeholders, boolean/date literal rendering, NULLS
// FIRST/LAST support, and division/LIKE semantics. The term tree itself
// is dialect-agnostic; a Profile is the sole source of variation.
package dialect

import (
	"fmt"
	"strings"
	"time"
)

// Dialect name constants, identifying a backend the same way a
// database/sql driver name does.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// LimitOffsetStyle selects how a dialect spells row limiting.
type LimitOffsetStyle int

const (
	// LimitOffset renders `LIMIT n OFFSET k`.
	LimitOffset LimitOffsetStyle = iota
	// FetchOffset renders the SQL-standard `OFFSET k ROWS FETCH NEXT n ROWS ONLY`.
	FetchOffset
)

// Profile parametrizes SQL rendering for one backend (§6.4). All methods
// are pure functions of their arguments; a Profile value is immutable and
// safe to share across compilations.
type Profile struct {
	Name string

	// Placeholder renders the n-th (1-based) bound parameter's
	// placeholder: "?" for MySQL/SQLite, "$n" for Postgres.
	Placeholder func(n int) string

	// QuoteIdentifier quotes a table/column identifier.
	QuoteIdentifier func(name string) string

	// StringLiteral renders a string as an inline SQL literal (used only
	// where a bound parameter can't be used, e.g. DDL; query compilation
	// always prefers bound parameters).
	StringLiteral func(s string) string

	// BooleanLiteral renders a boolean constant.
	BooleanLiteral func(b bool) string

	// DateTimeLiteral renders a date/time/datetime constant.
	DateTimeLiteral func(t time.Time) string

	// CaseInsensitiveLike renders a case-insensitive substring
	// comparison of the two already-rendered operands.
	CaseInsensitiveLike func(lhs, rhs string) string

	// Concat renders string concatenation of the two already-rendered
	// operands (`+` on two strings, §4.4.4) — MySQL has no `||`
	// concatenation operator by default, so this is backend-specific.
	Concat func(lhs, rhs string) string

	// NullSafeEqual renders `==`'s null-strict equality: null == null is
	// true, a value compared to null is false (§4.4.4).
	NullSafeEqual func(lhs, rhs string) string

	// NullSafeNotEqual renders `!==`, the negation of NullSafeEqual.
	NullSafeNotEqual func(lhs, rhs string) string

	// DivisionPromotesToDecimal reports whether integer / integer must
	// be explicitly cast to avoid truncating division.
	DivisionPromotesToDecimal bool

	// SupportsFullOuterJoin reports whether FULL OUTER JOIN is available
	// (SQLite and older MySQL do not).
	SupportsFullOuterJoin bool

	// SupportsNullsOrdering reports whether NULLS FIRST/LAST can be
	// rendered directly in ORDER BY.
	SupportsNullsOrdering bool

	LimitOffsetStyle LimitOffsetStyle
}

// ByName returns the built-in Profile for a database/sql driver name.
func ByName(name string) (Profile, bool) {
	switch name {
	case Postgres:
		return PostgresProfile, true
	case MySQL:
		return MySQLProfile, true
	case SQLite:
		return SQLiteProfile, true
	default:
		return Profile{}, false
	}
}

func quoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// PostgresProfile renders `$n` placeholders, double-quoted identifiers,
// native ILIKE, and NULLS FIRST/LAST.
var PostgresProfile = Profile{
	Name:                      Postgres,
	Placeholder:               func(n int) string { return fmt.Sprintf("$%d", n) },
	QuoteIdentifier:           quoteDouble,
	StringLiteral:             quoteSingle,
	BooleanLiteral:            func(b bool) string { return map[bool]string{true: "true", false: "false"}[b] },
	DateTimeLiteral:           func(t time.Time) string { return quoteSingle(t.Format("2006-01-02 15:04:05.999999-07")) },
	CaseInsensitiveLike:       func(lhs, rhs string) string { return fmt.Sprintf("%s ILIKE %s", lhs, rhs) },
	Concat:                    func(lhs, rhs string) string { return fmt.Sprintf("(%s || %s)", lhs, rhs) },
	NullSafeEqual:             func(lhs, rhs string) string { return fmt.Sprintf("(%s IS NOT DISTINCT FROM %s)", lhs, rhs) },
	NullSafeNotEqual:          func(lhs, rhs string) string { return fmt.Sprintf("(%s IS DISTINCT FROM %s)", lhs, rhs) },
	DivisionPromotesToDecimal: true,
	SupportsFullOuterJoin:     true,
	SupportsNullsOrdering:     true,
	LimitOffsetStyle:          LimitOffset,
}

// MySQLProfile renders `?` placeholders, backtick-quoted identifiers, no
// native NULLS FIRST/LAST (emulated with `IS NULL` tiebreakers upstream),
// and LOWER(...)-based case-insensitive matching.
var MySQLProfile = Profile{
	Name:                      MySQL,
	Placeholder:               func(int) string { return "?" },
	QuoteIdentifier:           quoteBacktick,
	StringLiteral:             quoteSingle,
	BooleanLiteral:            func(b bool) string { return map[bool]string{true: "1", false: "0"}[b] },
	DateTimeLiteral:           func(t time.Time) string { return quoteSingle(t.Format("2006-01-02 15:04:05.999999")) },
	CaseInsensitiveLike:       func(lhs, rhs string) string { return fmt.Sprintf("LOWER(%s) LIKE LOWER(%s)", lhs, rhs) },
	Concat:                    func(lhs, rhs string) string { return fmt.Sprintf("CONCAT(%s, %s)", lhs, rhs) },
	NullSafeEqual:             func(lhs, rhs string) string { return fmt.Sprintf("(%s <=> %s)", lhs, rhs) },
	NullSafeNotEqual:          func(lhs, rhs string) string { return fmt.Sprintf("NOT (%s <=> %s)", lhs, rhs) },
	DivisionPromotesToDecimal: true,
	SupportsFullOuterJoin:     false,
	SupportsNullsOrdering:     false,
	LimitOffsetStyle:          LimitOffset,
}

// SQLiteProfile renders `?` placeholders, double-quoted identifiers, no
// FULL OUTER JOIN, and LOWER(...)-based case-insensitive matching.
var SQLiteProfile = Profile{
	Name:                      SQLite,
	Placeholder:               func(int) string { return "?" },
	QuoteIdentifier:           quoteDouble,
	StringLiteral:             quoteSingle,
	BooleanLiteral:            func(b bool) string { return map[bool]string{true: "1", false: "0"}[b] },
	DateTimeLiteral:           func(t time.Time) string { return quoteSingle(t.Format("2006-01-02 15:04:05")) },
	CaseInsensitiveLike:       func(lhs, rhs string) string { return fmt.Sprintf("%s LIKE %s", lhs, rhs) },
	Concat:                    func(lhs, rhs string) string { return fmt.Sprintf("(%s || %s)", lhs, rhs) },
	NullSafeEqual:             func(lhs, rhs string) string { return fmt.Sprintf("(%s IS %s)", lhs, rhs) },
	NullSafeNotEqual:          func(lhs, rhs string) string { return fmt.Sprintf("(%s IS NOT %s)", lhs, rhs) },
	DivisionPromotesToDecimal: true,
	SupportsFullOuterJoin:     false,
	SupportsNullsOrdering:     false,
	LimitOffsetStyle:          LimitOffset,
}

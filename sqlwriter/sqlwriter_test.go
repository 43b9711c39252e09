package sqlwriter_test

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/navql/binder"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/dialect"
	"github.com/syssam/navql/flow"
	"github.com/syssam/navql/parser"
	"github.com/syssam/navql/sqlwriter"
	"github.com/syssam/navql/term"
)

func universityCatalog(t *testing.T) catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(catalog.StaticSpec{
		Entities: []catalog.EntitySpec{
			{
				Name:       "school",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "name", Domain: "string"},
				},
			},
			{
				Name:       "course",
				PrimaryKey: []string{"code"},
				Attributes: []catalog.AttributeSpec{
					{Name: "code", Domain: "string"},
					{Name: "title", Domain: "string"},
					{Name: "credits", Domain: "integer"},
					{Name: "school_code", Domain: "string", Nullable: true},
				},
				ForeignKeys: []catalog.ForeignKeySpec{
					{Name: "school", Columns: []string{"school_code"}, Target: "school", Nullable: true, ReverseName: "course"},
				},
			},
		},
	})
	require.NoError(t, err)
	return c
}

func compileSQL(t *testing.T, source string, profile dialect.Profile) (*sqlwriter.Result, []sqlwriter.NestedResult) {
	t.Helper()
	cat := universityCatalog(t)
	q, err := parser.ParseSource(source)
	require.NoError(t, err)
	bq, _, berr := binder.New(cat).Bind(q)
	require.NoError(t, berr)
	sel, err := flow.NewEncoder().Encode(bq)
	require.NoError(t, err)
	compiled, err := term.NewCompiler(cat).Compile(sel)
	require.NoError(t, err)
	result, nested, err := sqlwriter.New(profile).Write(compiled)
	require.NoError(t, err)
	return result, nested
}

// A rendered statement for the Postgres profile uses $n placeholders and
// is accepted by a mocked connection expecting that exact text.
func TestWritePostgresPlaceholders(t *testing.T) {
	t.Parallel()

	result, _ := compileSQL(t, "/course?credits>3", dialect.PostgresProfile)
	assert.Contains(t, result.SQL, "$1")
	assert.Equal(t, []any{3}, result.Params)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM "course" AS "\w+" WHERE .*`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"code", "title", "credits"}))

	rows, err := db.Query(result.SQL, result.Params...)
	require.NoError(t, err)
	defer rows.Close()
	require.NoError(t, mock.ExpectationsWereMet())
}

// The MySQL profile renders `?` placeholders and backtick-quoted
// identifiers instead of Postgres's double quotes.
func TestWriteMySQLPlaceholders(t *testing.T) {
	t.Parallel()

	result, _ := compileSQL(t, "/course?credits>3", dialect.MySQLProfile)
	assert.NotContains(t, result.SQL, "$1")
	assert.Contains(t, result.SQL, "?")
	assert.Contains(t, result.SQL, "`")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"code", "title", "credits"}))

	rows, err := db.Query(result.SQL, result.Params...)
	require.NoError(t, err)
	defer rows.Close()
	require.NoError(t, mock.ExpectationsWereMet())
}

// `~` renders as the dialect's case-insensitive substring comparison.
func TestWriteCaseInsensitiveLike(t *testing.T) {
	t.Parallel()

	pg, _ := compileSQL(t, "/course?title~'intro'", dialect.PostgresProfile)
	assert.Contains(t, pg.SQL, "ILIKE")

	my, _ := compileSQL(t, "/course?title~'intro'", dialect.MySQLProfile)
	assert.Contains(t, my.SQL, "LOWER(")
}

// `!~` negates the dialect's case-insensitive substring comparison.
func TestWriteNegatedCaseInsensitiveLike(t *testing.T) {
	t.Parallel()

	result, _ := compileSQL(t, "/course?title!~'intro'", dialect.PostgresProfile)
	assert.Contains(t, result.SQL, "NOT (")
	assert.Contains(t, result.SQL, "ILIKE")
}

// `==`/`!==` render null-strict equality, dialect-specific since MySQL has
// no IS [NOT] DISTINCT FROM.
func TestWriteNullStrictEquality(t *testing.T) {
	t.Parallel()

	pg, _ := compileSQL(t, "/course?title=='intro'", dialect.PostgresProfile)
	assert.Contains(t, pg.SQL, "IS NOT DISTINCT FROM")

	neq, _ := compileSQL(t, "/course?title!=='intro'", dialect.PostgresProfile)
	assert.Contains(t, neq.SQL, "IS DISTINCT FROM")

	my, _ := compileSQL(t, "/course?title=='intro'", dialect.MySQLProfile)
	assert.Contains(t, my.SQL, "<=>")
}

// `+` on two strings concatenates rather than adding numerically, and
// MySQL's lack of a `||` operator is handled with CONCAT(...).
func TestWriteStringConcatenation(t *testing.T) {
	t.Parallel()

	pg, _ := compileSQL(t, "/define(course.label := title + title).course{label}", dialect.PostgresProfile)
	assert.Contains(t, pg.SQL, "||")

	my, _ := compileSQL(t, "/define(course.label := title + title).course{label}", dialect.MySQLProfile)
	assert.Contains(t, my.SQL, "CONCAT(")
}

// A nested segment renders to its own independent Result.
func TestWriteNestedSegment(t *testing.T) {
	t.Parallel()

	_, nested := compileSQL(t, "/school{name, /course{title}}", dialect.PostgresProfile)
	require.Len(t, nested, 1)
	assert.Equal(t, "course", nested[0].FieldName)
	assert.Contains(t, nested[0].Result.SQL, "SELECT")
}

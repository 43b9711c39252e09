// Package dialect abstracts the differences between the SQL dialects a
// compiled query can be rendered for.
//
// A Profile is a bundle of rendering functions and flags — placeholder
// style, identifier quoting, literal formatting, and feature flags such
// as whether NULLS FIRST/LAST ordering or FULL OUTER JOIN is available.
// The term and sqlwriter packages are dialect-agnostic: they take a
// Profile as a parameter rather than branching on a dialect name
// themselves.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL
//   - MySQL: MySQL/MariaDB
//   - SQLite: SQLite
//
// # Usage
//
//	profile, ok := dialect.ByName(dialect.Postgres)
//	if !ok {
//	    log.Fatal("unknown dialect")
//	}
//	writer := sqlwriter.New(profile)
//
// Open returns a *sql.DB for a dialect name alongside its Profile, for
// embedders that also want to execute the rendered SQL:
//
//	db, profile, err := dialect.Open(dialect.Postgres, dsn)
package dialect

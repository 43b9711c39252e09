package dialect

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// driverNames maps a Profile name to the database/sql driver name
// registered for it; SQLite's pure-Go driver registers itself as
// "sqlite" rather than the common "sqlite3" name.
var driverNames = map[string]string{
	Postgres: "postgres",
	MySQL:    "mysql",
	SQLite:   "sqlite",
}

// Open opens a *sql.DB for the named dialect and returns it along with
// the matching rendering Profile, so callers never have to keep the two
// in sync by hand.
func Open(name, dsn string) (*sql.DB, Profile, error) {
	profile, ok := ByName(name)
	if !ok {
		return nil, Profile{}, fmt.Errorf("dialect: unknown dialect %q", name)
	}
	driverName, ok := driverNames[name]
	if !ok {
		return nil, Profile{}, fmt.Errorf("dialect: no registered driver for %q", name)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, Profile{}, fmt.Errorf("dialect: open %s: %w", name, err)
	}
	return db, profile, nil
}

// ProfileForDB infers a Profile from a live connection's driver name,
// for embedders that already own a *sql.DB (e.g. via connection
// pooling) and just need the matching rendering rules.
func ProfileForDB(driverName string) (Profile, bool) {
	for name, registered := range driverNames {
		if registered == driverName {
			return ByName(name)
		}
	}
	return Profile{}, false
}

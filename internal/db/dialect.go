package db

import (
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

func init() {
	// modernc.org/sqlite registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Dialect captures the two things that differ between the supported drivers:
// the native placeholder syntax and identifier quoting.
type Dialect struct {
	driver string
	bind   int
}

// DialectFor returns the dialect for a database/sql driver name.
// Unknown drivers get MySQL-style quoting and '?' placeholders.
func DialectFor(driver string) Dialect {
	if driver == "" {
		driver = DriverMySQL
	}
	return Dialect{driver: driver, bind: sqlx.BindType(driver)}
}

// Driver returns the database/sql driver name.
func (d Dialect) Driver() string { return d.driver }

// Rebind translates '?' placeholders into the driver's native form.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bind, query)
}

// Quote quotes a table or column name.
func (d Dialect) Quote(ident string) string {
	if d.driver == DriverPostgres {
		return pq.QuoteIdentifier(ident)
	}
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// MigrateName is the dialect name understood by sql-migrate.
func (d Dialect) MigrateName() string {
	switch d.driver {
	case DriverPostgres:
		return "postgres"
	case DriverSQLite:
		return "sqlite3"
	}
	return "mysql"
}

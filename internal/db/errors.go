package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrEngineInitialized is returned when CreateEngine is called a second time.
	// It is a configuration error and must never be retried.
	ErrEngineInitialized = errors.New("db: engine is already initialized")

	// ErrEngineNotInitialized is returned by Default before CreateEngine has run.
	ErrEngineNotInitialized = errors.New("db: engine is not initialized")

	// ErrMultiColumns is returned by SelectScalar when the row has more than one column.
	ErrMultiColumns = errors.New("db: expect only one column")

	// ErrNoRows is returned by SelectScalar and SelectInt when the query matched nothing.
	ErrNoRows = errors.New("db: scalar query returned no rows")

	// ErrNoSuchAttribute is returned when a record is asked for a key it does not hold.
	// It is distinct from an empty result, which is reported as a nil record.
	ErrNoSuchAttribute = errors.New("no such attribute")

	// ErrTxDone is returned when a transaction scope is ended twice.
	ErrTxDone = errors.New("db: transaction scope already ended")
)

// IsUniqueViolation reports whether err is a driver error for a duplicate
// primary or unique key.
func IsUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// extended result codes disabled
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

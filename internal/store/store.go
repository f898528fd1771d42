// Package store contains the persistence layer. One store type per table, all on
// plain database/sql over SQLite. Methods on the award critical path take an
// explicit *sql.Tx so rule resolution, the daily-cap read, the event insert, and
// the scoped score upserts share a single transaction.
package store

import (
	"errors"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure. The award pipeline relies on this to distinguish a benign
// duplicate from a real store failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

package turso

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// NewDB opens a libsql database. authToken may be empty for local
// file-backed databases.
func NewDB(databaseURL, authToken string) (*sql.DB, error) {
	connStr := databaseURL
	if authToken != "" {
		connStr += "?authToken=" + authToken
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for Turso's Hrana protocol. Turso
	// aggressively closes idle streams, causing "stream not found"
	// errors on stale connections, so keep no idle connections around.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// IsUniqueViolation checks if an error is a SQLite unique-constraint
// failure. The driver does not expose structured error codes, so this
// matches on the message like the rest of the libsql ecosystem does.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}

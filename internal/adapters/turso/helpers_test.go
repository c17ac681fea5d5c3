package turso_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/hatchpoint/variance/internal/migrate"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// A unique name per test keeps the shared-cache memory DB isolated:
	// the driver keeps "file::memory:?cache=shared" alive for the whole
	// process, leaking state between tests.
	db, err := sql.Open("libsql", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	ctx := context.Background()
	if err := migrate.RunAll(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

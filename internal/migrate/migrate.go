// Package migrate applies the embedded SQL schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hatchpoint/variance/migrations"
)

// Migration represents a single database migration with up and down SQL.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// EnsureMigrationsTable creates the schema_migrations table if it doesn't exist.
func EnsureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// GetCurrentVersion returns the current migration version and dirty state.
func GetCurrentVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var version int
	var dirty int

	err := db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return version, dirty == 1, nil
}

// SetVersion sets the migration version and dirty state.
func SetVersion(ctx context.Context, db *sql.DB, version int, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}

	_, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`)
	if err != nil {
		return err
	}

	if version > 0 {
		_, err = db.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)`, version, dirtyInt)
	}
	return err
}

// LoadMigrations reads all embedded migration files and returns them sorted by version.
func LoadMigrations() ([]Migration, error) {
	byVersion := make(map[int]*Migration)

	upPattern := regexp.MustCompile(`^(\d+)_(.+)\.up\.sql$`)
	downPattern := regexp.MustCompile(`^(\d+)_(.+)\.down\.sql$`)

	err := fs.WalkDir(migrations.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		var version int
		var name string
		var up bool
		if m := upPattern.FindStringSubmatch(path); m != nil {
			version, _ = strconv.Atoi(m[1])
			name = m[2]
			up = true
		} else if m := downPattern.FindStringSubmatch(path); m != nil {
			version, _ = strconv.Atoi(m[1])
			name = m[2]
		} else {
			return nil
		}

		content, err := fs.ReadFile(migrations.FS, path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", path, err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: name}
			byVersion[version] = mig
		}
		if up {
			mig.UpSQL = string(content)
		} else {
			mig.DownSQL = string(content)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		result = append(result, *mig)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Version < result[j].Version })
	return result, nil
}

// RunAll applies every pending migration.
func RunAll(ctx context.Context, db *sql.DB) error {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	current, dirty, err := GetCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	all, err := LoadMigrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	for _, mig := range all {
		if mig.Version <= current {
			continue
		}
		if err := apply(ctx, db, mig.Version, mig.UpSQL); err != nil {
			return fmt.Errorf("apply migration %d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// DownTo rolls back migrations above target, newest first.
func DownTo(ctx context.Context, db *sql.DB, target int) error {
	current, dirty, err := GetCurrentVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", current)
	}

	all, err := LoadMigrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	for i := len(all) - 1; i >= 0; i-- {
		mig := all[i]
		if mig.Version > current || mig.Version <= target {
			continue
		}
		if err := applyDown(ctx, db, mig.Version-1, mig.DownSQL); err != nil {
			return fmt.Errorf("roll back migration %d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

func apply(ctx context.Context, db *sql.DB, version int, sqlText string) error {
	if err := SetVersion(ctx, db, version, true); err != nil {
		return err
	}
	if err := execStatements(ctx, db, sqlText); err != nil {
		return err
	}
	return SetVersion(ctx, db, version, false)
}

func applyDown(ctx context.Context, db *sql.DB, newVersion int, sqlText string) error {
	if err := SetVersion(ctx, db, newVersion+1, true); err != nil {
		return err
	}
	if err := execStatements(ctx, db, sqlText); err != nil {
		return err
	}
	return SetVersion(ctx, db, newVersion, false)
}

// execStatements runs each semicolon-terminated statement separately;
// the libsql driver does not accept multi-statement Exec.
func execStatements(ctx context.Context, db *sql.DB, sqlText string) error {
	for _, stmt := range strings.Split(sqlText, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

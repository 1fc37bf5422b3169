// Package migrate brings the cell-store schema up to date from the SQL
// scripts embedded under sql/. Applied progress is tracked in sqlite's
// user_version pragma, so the database carries its own version and no
// bookkeeping table is needed.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var scripts embed.FS

type script struct {
	version int
	name    string
	body    string
}

// Migrate applies every embedded script with a version above the database's
// current user_version, in ascending order. Each script runs in its own
// transaction together with the version bump, so a failure leaves the store
// at the last fully applied version.
func Migrate(db *sql.DB) error {
	pending, err := loadScripts()
	if err != nil {
		return err
	}
	var current int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, s := range pending {
		if s.version <= current {
			continue
		}
		if err := apply(db, s); err != nil {
			return err
		}
		current = s.version
	}
	return nil
}

func apply(db *sql.DB, s script) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(s.body); err != nil {
		return fmt.Errorf("apply %s: %w", s.name, err)
	}
	// PRAGMA does not take placeholders; the version comes from our own
	// embedded filenames.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
		return fmt.Errorf("record version for %s: %w", s.name, err)
	}
	return tx.Commit()
}

// loadScripts reads the embedded directory. Filenames follow
// NNN_description.sql; the numeric prefix is the schema version.
func loadScripts() ([]script, error) {
	entries, err := scripts.ReadDir("sql")
	if err != nil {
		return nil, err
	}
	out := make([]script, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			return nil, fmt.Errorf("script %s: name must start with a numeric version and underscore", e.Name())
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("script %s: bad version prefix %q", e.Name(), prefix)
		}
		body, err := scripts.ReadFile("sql/" + e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, script{version: version, name: e.Name(), body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var v int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	return v
}

func TestMigrateCreatesSchemaAndRecordsVersion(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if got := userVersion(t, db); got < 1 {
		t.Fatalf("user_version = %d, want >= 1", got)
	}
	for _, table := range []string{"cells", "sheet_meta"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing after migrate: %v", table, err)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	first := userVersion(t, db)
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if got := userVersion(t, db); got != first {
		t.Fatalf("user_version changed on rerun: %d -> %d", first, got)
	}
}

func TestScriptsAreOrderedAndVersioned(t *testing.T) {
	loaded, err := loadScripts()
	if err != nil {
		t.Fatalf("load scripts: %v", err)
	}
	if len(loaded) == 0 {
		t.Fatal("no embedded scripts")
	}
	prev := 0
	for _, s := range loaded {
		if s.version <= prev {
			t.Fatalf("script %s: version %d not above previous %d", s.name, s.version, prev)
		}
		prev = s.version
	}
}

package migration

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func migrationFS(files map[string]string) fstest.MapFS {
	out := fstest.MapFS{}
	for name, content := range files {
		out[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return out
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n); err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return n == 1
}

func TestGetCurrentVersion(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, migrationFS(map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	}), DialectSQLite)

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	version, err = runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	runner := NewRunner(setupTestDB(t), migrationFS(map[string]string{
		"003_another.sql": "CREATE TABLE test2 (id INTEGER);",
		"001_init.sql":    "CREATE TABLE test1 (id INTEGER);",
		"002_update.sql":  "ALTER TABLE test1 ADD COLUMN name TEXT;",
		"README.md":       "ignored",
	}), DialectSQLite)

	migrations, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatalf("ReadMigrationFiles failed: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	want := []struct {
		version int
		name    string
	}{{1, "init"}, {2, "update"}, {3, "another"}}
	for i, w := range want {
		if migrations[i].Version != w.version || migrations[i].Name != w.name {
			t.Errorf("migration %d: got %d/%s, want %d/%s", i, migrations[i].Version, migrations[i].Name, w.version, w.name)
		}
	}
}

func TestReadMigrationFilesInvalid(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"no underscore", map[string]string{"001.sql": ""}, "invalid migration filename"},
		{"non-numeric", map[string]string{"abc_init.sql": ""}, "invalid version number"},
		{"zero version", map[string]string{"000_init.sql": ""}, "at least 1"},
		{"duplicate", map[string]string{"001_a.sql": "", "1_b.sql": ""}, "duplicate migration version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewRunner(setupTestDB(t), migrationFS(tt.files), DialectSQLite)
			_, err := runner.ReadMigrationFiles()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestApplyMigrations(t *testing.T) {
	db := setupTestDB(t)
	files := map[string]string{
		"001_init.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);",
	}
	runner := NewRunner(db, migrationFS(files), DialectSQLite)

	var logs []string
	count, err := runner.ApplyMigrations(func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied, got %d", count)
	}
	if len(logs) == 0 {
		t.Error("expected progress messages")
	}
	if !tableExists(t, db, "users") {
		t.Error("users table was not created")
	}

	// A new file is picked up incrementally
	files["002_posts.sql"] = "CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER);"
	runner = NewRunner(db, migrationFS(files), DialectSQLite)
	count, err = runner.ApplyMigrations(nil)
	if err != nil {
		t.Fatalf("ApplyMigrations (2nd) failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 more migration applied, got %d", count)
	}
	if !tableExists(t, db, "posts") {
		t.Error("posts table was not created")
	}

	// Re-running is a no-op
	count, err = runner.ApplyMigrations(nil)
	if err != nil || count != 0 {
		t.Errorf("expected no-op, got count=%d err=%v", count, err)
	}

	status, err := runner.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Current != 2 || status.Latest != 2 || status.Pending() != 0 {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestApplyMigrationsRollsBackFailedMigration(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, migrationFS(map[string]string{
		"001_init.sql":   "CREATE TABLE users (id INTEGER PRIMARY KEY);",
		"002_broken.sql": "CREATE TABLE broken (id INTEGER; -- syntax error",
	}), DialectSQLite)

	count, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected an error from the broken migration")
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before the failure, got %d", count)
	}

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version to stay at 1, got %d", version)
	}
}

func TestValidateVersionNewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, migrationFS(map[string]string{
		"001_init.sql": "CREATE TABLE users (id INTEGER PRIMARY KEY);",
	}), DialectSQLite)

	if err := runner.SetVersion(3); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	err := runner.ValidateVersion()
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("expected newer-schema error, got %v", err)
	}
	if _, err := runner.ApplyMigrations(nil); err == nil {
		t.Error("ApplyMigrations should refuse a newer database")
	}
}

func TestInsertVersionSQL(t *testing.T) {
	if got := NewRunner(nil, nil, DialectPostgres).insertVersionSQL(); !strings.Contains(got, "$1") {
		t.Errorf("postgres runner should use $1 placeholders, got %q", got)
	}
	if got := NewRunner(nil, nil, "").insertVersionSQL(); !strings.Contains(got, "?") {
		t.Errorf("default runner should use ? placeholders, got %q", got)
	}
}

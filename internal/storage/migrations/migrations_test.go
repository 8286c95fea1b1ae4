package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x Int32);

  -- indented comment
CREATE TABLE b (
    y String
);
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("unexpected first statement: %q", stmts[0])
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b (") {
		t.Errorf("unexpected second statement: %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'a''b'; SELECT 1;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateNoSemicolonInStrings("SELECT 'a;b'"); err == nil {
		t.Error("expected error for semicolon in string")
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://user:pw@localhost:9000/markets")
	if err != nil {
		t.Fatalf("databaseFromDSN: %v", err)
	}
	if db != "markets" {
		t.Errorf("expected markets, got %s", db)
	}

	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for name, fsys := range map[string]fs.FS{"postgres": PostgresFS, "clickhouse": ClickhouseFS} {
		files, err := sqlFiles(fsys, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(files) == 0 {
			t.Errorf("%s: no migrations embedded", name)
		}
		for _, f := range files {
			data, _ := fs.ReadFile(fsys, name+"/"+f)
			if err := validateNoSemicolonInStrings(string(data)); err != nil {
				t.Errorf("%s/%s: %v", name, f, err)
			}
		}
	}

	data, _ := fs.ReadFile(ClickhouseFS, "clickhouse/001_leaderboard_snapshots.sql")
	if n := len(splitStatements(string(data))); n != 2 {
		t.Errorf("expected 2 clickhouse statements, got %d", n)
	}
}

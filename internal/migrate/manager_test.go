package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elnino282/acm-backend/internal/auth"
)

func TestSplitStatements(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{"single", "create table t (id text);", 1},
		{"two", "create table a (id text); create table b (id text);", 2},
		{"semicolon in string", "insert into t values ('a;b'); select 1;", 2},
		{"trailing without semicolon", "select 1; select 2", 2},
		{"whitespace tail ignored", "select 1;\n\n", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitStatements(tc.in)
			if len(got) != tc.want {
				t.Fatalf("splitStatements(%q) = %d statements, want %d: %q", tc.in, len(got), tc.want, got)
			}
		})
	}
}

func TestSplitStatementsKeepsQuotedSemicolon(t *testing.T) {
	stmts := splitStatements("insert into t values ('a;b');")
	if len(stmts) != 1 {
		t.Fatalf("got %d statements: %q", len(stmts), stmts)
	}
	if !strings.Contains(stmts[0], "'a;b'") {
		t.Fatalf("quoted semicolon mangled: %q", stmts[0])
	}
}

func TestCollectSQLMissingDirIsEmpty(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "does-not-exist"), ".sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("got %d files, want none", len(files))
	}
}

func TestCollectSQLSortsLexically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_b.up.sql", "0001_a.up.sql", "ignore.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	files, err := collectSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 2 || files[0].base != "0001_a.up.sql" || files[1].base != "0002_b.up.sql" {
		t.Fatalf("files = %+v", files)
	}
}

// The users.status column default must produce rows the auth layer treats as
// active: a row created outside the application relying on the DB default
// would otherwise be rejected at sign-in as disabled.
func TestInitSchemaUserStatusDefault(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "ops", "migrations", "sql", "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read init migration: %v", err)
	}
	want := fmt.Sprintf("default '%s'", auth.UserStatusActive)
	if !strings.Contains(string(data), want) {
		t.Fatalf("users.status default does not match %q", auth.UserStatusActive)
	}
}

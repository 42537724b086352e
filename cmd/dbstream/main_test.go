package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

const usersDDL = `create table users (id BIGINT, name VARCHAR(40), password VARCHAR(40))`

func sqliteFile(t *testing.T, dir, name string, stmts ...string) string {
	t.Helper()
	path := filepath.Join(dir, name+".db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)"
}

func writeConfig(t *testing.T, dir, src, dst, extra string) string {
	t.Helper()
	body := fmt.Sprintf(`{
  "job": "cli-test",
  "source": { "kind": "sqlite", "dsn": %q },
  "target": { "kind": "sqlite", "dsn": %q }%s
}`, src, dst, extra)
	p := filepath.Join(dir, "run.json")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func countRows(t *testing.T, dsn, query string) int {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(query).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestCopy_WithRedactionAndVerify(t *testing.T) {
	dir := t.TempDir()
	src := sqliteFile(t, dir, "src", usersDDL, `insert into users values (1, 'ann', 'a'), (2, 'bob', 'b'), (3, 'cid', 'c')`)
	dst := sqliteFile(t, dir, "dst", usersDDL)
	cfg := writeConfig(t, dir, src, dst, `,
  "transforms": [ { "table": "users", "column": "password", "kind": "redact", "value": "***" } ],
  "runtime": { "batch_size": 2 }`)

	out, err := execute(t, "copy", "--config", cfg, "--verify")
	if err != nil {
		t.Fatalf("copy: %v\n%s", err, out)
	}
	for _, want := range []string{"users: 3 rows in 2 batch(es)", "copied 3 rows from 1 table(s)", "users: ok 3 rows"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if n := countRows(t, dst, `select count(*) from users where password = '***'`); n != 3 {
		t.Fatalf("redacted rows = %d, want 3", n)
	}
}

func TestCopy_FailedTableExitsWithError(t *testing.T) {
	dir := t.TempDir()
	src := sqliteFile(t, dir, "src", usersDDL, `insert into users values (1, null, 'a')`)
	dst := sqliteFile(t, dir, "dst", `create table users (id BIGINT, name VARCHAR(40) not null, password VARCHAR(40))`)
	cfg := writeConfig(t, dir, src, dst, "")

	out, err := execute(t, "copy", "--config", cfg)
	if err == nil || !strings.Contains(err.Error(), "1 of 1 tables failed") {
		t.Fatalf("err = %v, want table failure", err)
	}
	if !strings.Contains(out, "users: FAILED") {
		t.Fatalf("output = %s", out)
	}
}

func TestCopy_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir, "", "file:x.db", "")

	out, err := execute(t, "copy", "--config", cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(out, "error: source.dsn:") {
		t.Fatalf("output = %s", out)
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	src := sqliteFile(t, dir, "src", `create table scratch (id BIGINT)`)
	dst := sqliteFile(t, dir, "dst", usersDDL, `create table audit (id BIGINT, msg TEXT)`)
	cfg := writeConfig(t, dir, src, dst, `,
  "tables": { "exclude": ["audit"] },
  "columns": [ { "table": "users", "column": "id", "type": "text" } ]`)

	out, err := execute(t, "inspect", "--config", cfg)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "users\n") || strings.Contains(out, "audit") || strings.Contains(out, "scratch") {
		t.Fatalf("output = %s", out)
	}
	if !strings.Contains(out, "password") || !strings.Contains(out, "/text") {
		t.Fatalf("output should list columns with kinds:\n%s", out)
	}
}

func TestVerify_ReportsMismatch(t *testing.T) {
	dir := t.TempDir()
	src := sqliteFile(t, dir, "src", usersDDL, `insert into users values (1, 'ann', 'a'), (2, 'bob', 'b')`)
	dst := sqliteFile(t, dir, "dst", usersDDL, `insert into users values (1, 'ann', 'a')`)
	cfg := writeConfig(t, dir, src, dst, "")

	out, err := execute(t, "verify", "--config", cfg)
	if err == nil || !strings.Contains(out, "users: MISMATCH source=2 target=1 rows") {
		t.Fatalf("err = %v, output = %s", err, out)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := writeConfig(t, dir, sqliteFile(t, dir, "src"), sqliteFile(t, dir, "dst"), "")
	out, err := execute(t, "validate", "--config", good, "--connect")
	if err != nil || !strings.Contains(out, "configuration is valid") {
		t.Fatalf("validate: %v\n%s", err, out)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"job": "x", "source": {"kind": "oracle", "dsn": "x"}, "target": {"kind": "sqlite", "dsn": "y"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "validate", "--config", bad)
	if err == nil || !strings.Contains(out, `unknown storage kind "oracle"`) {
		t.Fatalf("err = %v, output = %s", err, out)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil || strings.TrimSpace(out) != "dbstream "+version {
		t.Fatalf("version = %q, %v", out, err)
	}
}

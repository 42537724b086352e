package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T, d Dialect) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storage.db")
	sqlDB, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := NewDB(sqlDB, d, Config{MaxOpenConns: 4}, nil)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.SQL().QueryRow(db.Dialect().CountSQL(table)).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestDB_IntegrityTogglesRunDialectStatements(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, Dialect{
		Name:          "sqlite",
		DisableChecks: []string{"create table toggles (step text)", "insert into toggles values ('off')"},
		EnableChecks:  []string{"", "insert into toggles values ('on')"},
	})
	ctx := context.Background()

	if err := db.DisableChecks(ctx); err != nil {
		t.Fatalf("DisableChecks: %v", err)
	}
	if err := db.EnableChecks(ctx); err != nil {
		t.Fatalf("EnableChecks: %v", err)
	}

	rows, err := db.SQL().Query("select step from toggles order by rowid")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var steps []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			t.Fatal(err)
		}
		steps = append(steps, s)
	}
	if !reflect.DeepEqual(steps, []string{"off", "on"}) {
		t.Fatalf("steps = %v, want [off on]", steps)
	}
}

func TestDB_ToggleErrorNamesStatement(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, Dialect{DisableChecks: []string{"not valid sql"}})
	err := db.DisableChecks(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := `"not valid sql"`; !strings.Contains(err.Error(), want) {
		t.Fatalf("err = %v, want it to name the statement", err)
	}
}

func TestAcquire_WrapsConnectionError(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, Dialect{})
	_ = db.Close()

	_, err := Acquire(context.Background(), db, RoleTarget)
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want *ConnectionError", err)
	}
	if ce.Role != RoleTarget {
		t.Fatalf("role = %q, want target", ce.Role)
	}
}

func TestExecBatch_CommitsOrRollsBackWholeBatch(t *testing.T) {
	t.Parallel()

	db := openSQLite(t, Dialect{})
	ctx := context.Background()
	if _, err := db.SQL().Exec("create table items (id integer primary key, name text)"); err != nil {
		t.Fatal(err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	stmt, err := conn.PrepareContext(ctx, db.Dialect().InsertSQL("items", []string{"id", "name"}))
	if err != nil {
		t.Fatal(err)
	}
	defer stmt.Close()

	affected, err := ExecBatch(ctx, conn, stmt, [][]any{{1, "a"}, {2, "b"}})
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if !reflect.DeepEqual(affected, []int64{1, 1}) {
		t.Fatalf("affected = %v, want [1 1]", affected)
	}

	// Row 3 is new, row 2 collides: nothing of this batch may stay.
	if _, err := ExecBatch(ctx, conn, stmt, [][]any{{3, "c"}, {2, "dup"}}); err == nil {
		t.Fatalf("expected primary key violation")
	}
	if got := countRows(t, db, "items"); got != 2 {
		t.Fatalf("rows after failed batch = %d, want 2", got)
	}
}

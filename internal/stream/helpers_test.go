package stream

import (
	"context"
	"iter"
	"path/filepath"
	"testing"

	"dbstream/internal/datatype"
	"dbstream/internal/schema"
	"dbstream/internal/storage"
	"dbstream/internal/storage/sqlite"
)

func openDB(t *testing.T, name string, stmts ...string) *storage.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".db")
	db, err := sqlite.NewDatabase(context.Background(), storage.Config{DSN: "file:" + path + "?_pragma=busy_timeout(5000)"})
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, s := range stmts {
		if _, err := db.SQL().Exec(s); err != nil {
			t.Fatalf("exec %q: %v", s, err)
		}
	}
	return db
}

func usersDef(t *testing.T) schema.TableDefinition {
	t.Helper()
	td, err := schema.NewTableDefinition("users", []schema.ColumnDefinition{
		{Table: "users", Ordinal: 1, Name: "id", Type: datatype.Of(datatype.KindInt64)},
		{Table: "users", Ordinal: 2, Name: "name", Type: datatype.Of(datatype.KindText)},
		{Table: "users", Ordinal: 3, Name: "password", Type: datatype.Of(datatype.KindText)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return td
}

const usersDDL = `create table users (id BIGINT primary key, name VARCHAR(40), password VARCHAR(40))`

func row(t *testing.T, td schema.TableDefinition, values ...any) schema.RowUpdate {
	t.Helper()
	r, err := schema.NewRowUpdate(td, values)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// seq yields rows and then, if tail is non-nil, one error.
func seq(rows []schema.RowUpdate, tail error) iter.Seq2[schema.RowUpdate, error] {
	return func(yield func(schema.RowUpdate, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
		if tail != nil {
			yield(schema.RowUpdate{}, tail)
		}
	}
}

type userRow struct {
	ID       int64
	Name     *string
	Password *string
}

func readUsers(t *testing.T, db *storage.DB) []userRow {
	t.Helper()
	rows, err := db.SQL().Query(`select id, name, password from users order by id`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var out []userRow
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.ID, &u.Name, &u.Password); err != nil {
			t.Fatal(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

func strp(s string) *string { return &s }

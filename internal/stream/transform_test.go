package stream

import (
	"errors"
	"testing"

	"dbstream/internal/schema"
)

func TestApplyTransform_RedactsPassword(t *testing.T) {
	t.Parallel()

	td := usersDef(t)
	in := []schema.RowUpdate{
		row(t, td, int64(1), "ann", "hunter2"),
		row(t, td, int64(2), "bob", nil),
	}

	var out []schema.RowUpdate
	for r, err := range ApplyTransform(seq(in, nil), Redact("PASSWORD", "***")) {
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, r)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d", len(out))
	}
	if v, _ := out[0].Value("password"); v != "***" {
		t.Fatalf("password = %v, want ***", v)
	}
	if v, _ := out[0].Value("name"); v != "ann" {
		t.Fatalf("name changed: %v", v)
	}
	if v, _ := out[1].Value("password"); v != nil {
		t.Fatalf("absent password became %v", v)
	}
	for i, c := range out[0].Columns {
		if c.Column != td.Column(i) {
			t.Fatalf("column %d definition changed", i)
		}
	}
	if v, _ := in[0].Value("password"); v != "hunter2" {
		t.Fatalf("input row mutated: %v", v)
	}
}

func TestApplyTransform_PassesErrorsThrough(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	td := usersDef(t)
	var got error
	n := 0
	for _, err := range ApplyTransform(seq([]schema.RowUpdate{row(t, td, int64(1), "a", "b")}, boom), Nullify("name")) {
		if err != nil {
			got = err
			continue
		}
		n++
	}
	if got != boom || n != 1 {
		t.Fatalf("rows=%d err=%v, want 1 row then boom", n, got)
	}
}

func TestTransforms_ForIsScopedToTable(t *testing.T) {
	t.Parallel()

	ts := Transforms{
		{Match: func(table string) bool { return table == "users" }, Fn: Redact("password", "***")},
		{Match: func(table string) bool { return table == "users" }, Fn: ForColumn("name", func(u schema.ColumnUpdate) any {
			return u.Value.(string) + "!"
		})},
	}
	td := usersDef(t)
	r := row(t, td, int64(1), "ann", "pw")

	got := r.WithValues(ts.For("users"))
	if v, _ := got.Value("password"); v != "***" {
		t.Fatalf("password = %v", v)
	}
	if v, _ := got.Value("name"); v != "ann!" {
		t.Fatalf("name = %v", v)
	}

	other := r.WithValues(ts.For("orders"))
	if v, _ := other.Value("password"); v != "pw" {
		t.Fatalf("transform leaked to another table: %v", v)
	}
}

func TestChain_AppliesInOrder(t *testing.T) {
	t.Parallel()

	td := usersDef(t)
	r := row(t, td, int64(1), "a", "p")
	fn := Chain(
		ForColumn("name", func(u schema.ColumnUpdate) any { return u.Value.(string) + "1" }),
		ForColumn("name", func(u schema.ColumnUpdate) any { return u.Value.(string) + "2" }),
	)
	if v, _ := r.WithValues(fn).Value("name"); v != "a12" {
		t.Fatalf("name = %v, want a12", v)
	}
	if v, _ := r.WithValues(Chain()).Value("name"); v != "a" {
		t.Fatalf("empty chain changed value: %v", v)
	}
}

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"dbstream/internal/datatype"
	"dbstream/internal/schema"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

const sampleJSON = `{
  "job": "nightly-copy",
  "source": { "kind": "postgres", "dsn": "postgres://u:p@src/app", "max_open_conns": 8, "conn_max_lifetime": "5m" },
  "target": { "kind": "mysql", "dsn": "u:p@tcp(dst:3306)/app", "disable_checks": ["SET GLOBAL x=0"], "enable_checks": ["SET GLOBAL x=1"] },
  "tables": { "include": ["users", "orders_*"], "exclude": ["*_tmp"], "case_insensitive": true },
  "columns": [ { "table": "orders_*", "column": "total", "type": "decimal" } ],
  "transforms": [ { "table": "users", "column": "password", "kind": "redact", "value": "***" } ],
  "runtime": { "workers": 3, "batch_size": 500 },
  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pgw:9091" }
}`

func TestLoad_JSON(t *testing.T) {
	r, err := Load(writeFile(t, "run.json", sampleJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Job != "nightly-copy" || r.Source.Kind != "postgres" || r.Target.Kind != "mysql" {
		t.Fatalf("run = %+v", r)
	}
	if r.Source.MaxOpenConns != 8 || r.Source.ConnMaxLifetime != 5*time.Minute {
		t.Fatalf("source pool = %+v", r.Source)
	}
	if !reflect.DeepEqual(r.Tables.Include, []string{"users", "orders_*"}) || !r.Tables.CaseInsensitive {
		t.Fatalf("tables = %+v", r.Tables)
	}
	if len(r.Columns) != 1 || r.Columns[0].Type != "decimal" {
		t.Fatalf("columns = %+v", r.Columns)
	}
	if len(r.Transforms) != 1 || r.Transforms[0].Value != "***" {
		t.Fatalf("transforms = %+v", r.Transforms)
	}
	if r.Runtime.Workers != 3 || r.Runtime.BatchSize != 500 {
		t.Fatalf("runtime = %+v", r.Runtime)
	}
	sc := r.Target.StorageConfig()
	if sc.Kind != "mysql" || !reflect.DeepEqual(sc.DisableChecks, []string{"SET GLOBAL x=0"}) {
		t.Fatalf("storage config = %+v", sc)
	}
}

func TestLoad_YAML(t *testing.T) {
	body := `
job: yaml-job
source:
  kind: sqlite
  dsn: file:src.db
target:
  kind: sqlite
  dsn: file:dst.db
tables:
  exclude: [audit]
`
	r, err := Load(writeFile(t, "run.yaml", body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Job != "yaml-job" || r.Target.DSN != "file:dst.db" || !reflect.DeepEqual(r.Tables.Exclude, []string{"audit"}) {
		t.Fatalf("run = %+v", r)
	}
	if r.Metrics.Backend != "none" {
		t.Fatalf("metrics backend default = %q, want none", r.Metrics.Backend)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DBSTREAM_TARGET_DSN", "file:override.db")
	t.Setenv("DBSTREAM_RUNTIME_WORKERS", "9")

	r, err := Load(writeFile(t, "run.json", sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if r.Target.DSN != "file:override.db" {
		t.Fatalf("target.dsn = %q, want env override", r.Target.DSN)
	}
	if r.Runtime.Workers != 9 {
		t.Fatalf("runtime.workers = %d, want 9", r.Runtime.Workers)
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("DBSTREAM_SOURCE_KIND", "sqlite")
	t.Setenv("DBSTREAM_SOURCE_DSN", "file:a.db")

	r, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if r.Source.Kind != "sqlite" || r.Source.DSN != "file:a.db" || r.Job != "dbstream" {
		t.Fatalf("run = %+v", r)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("missing file err = %v", err)
	}
	if _, err := Load(writeFile(t, "bad.json", `{"job": `)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRuntimeResolved(t *testing.T) {
	t.Setenv("DBSTREAM_BATCH_SIZE", "250")
	t.Setenv("DBSTREAM_BUFFER_SIZE", "oops")

	got := RuntimeConfig{Workers: 2}.Resolved()
	want := RuntimeConfig{Workers: 2, BatchSize: 250, BufferSize: 5000}
	if got != want {
		t.Fatalf("Resolved() = %+v, want %+v", got, want)
	}
}

func TestPickInt(t *testing.T) {
	t.Parallel()

	if pickInt(3, 7) != 3 || pickInt(0, 7) != 7 || pickInt(-1, 7) != 7 {
		t.Fatal("pickInt must prefer positive first argument")
	}
}

func TestIncludeExclude(t *testing.T) {
	t.Parallel()

	r := Run{Tables: Tables{Include: []string{"users", "orders_*"}, Exclude: []string{"*_tmp"}}}
	inc, exc := r.Include(), r.Exclude()
	for name, want := range map[string]bool{"users": true, "orders_2024": true, "Users": false, "audit": false} {
		if inc(name) != want {
			t.Errorf("include(%q) = %v, want %v", name, !want, want)
		}
	}
	if !exc("orders_tmp") || exc("orders") {
		t.Error("exclude must match *_tmp only")
	}

	r.Tables.CaseInsensitive = true
	if !r.Include()("USERS") {
		t.Error("case-insensitive include must match USERS")
	}

	empty := Run{}
	if !empty.Include()("anything") || empty.Exclude()("anything") {
		t.Error("empty patterns must include all and exclude none")
	}
}

func TestColumnRewrite(t *testing.T) {
	t.Parallel()

	r := Run{Columns: []ColumnOverride{
		{Table: "orders_*", Column: "TOTAL", Type: "decimal"},
		{Table: "users", Column: "age", Type: "varchar(10)"},
	}}
	fn, err := r.ColumnRewrite(nil)
	if err != nil {
		t.Fatal(err)
	}
	total := schema.ColumnDefinition{Table: "orders_1", Ordinal: 2, Name: "total", Type: datatype.Of(datatype.KindFloat64)}
	if got := fn(total); got.Type.Kind() != datatype.KindDecimal || got.Name != "total" || got.Ordinal != 2 {
		t.Fatalf("rewrite(total) = %v", got)
	}
	age := schema.ColumnDefinition{Table: "users", Ordinal: 3, Name: "age", Type: datatype.Of(datatype.KindInt32)}
	if got := fn(age); got.Type.Kind() != datatype.KindText {
		t.Fatalf("rewrite(age) = %v", got)
	}
	other := schema.ColumnDefinition{Table: "audit", Ordinal: 1, Name: "total", Type: datatype.Of(datatype.KindInt64)}
	if got := fn(other); got.Type.Kind() != datatype.KindInt64 {
		t.Fatalf("rewrite must not touch other tables, got %v", got)
	}

	if fn, err := (Run{}).ColumnRewrite(nil); fn != nil || err != nil {
		t.Fatal("no overrides must yield a nil rewrite")
	}
	bad := Run{Columns: []ColumnOverride{{Table: "t", Column: "c", Type: "geometry"}}}
	if _, err := bad.ColumnRewrite(nil); err == nil || !strings.Contains(err.Error(), "columns[0]") {
		t.Fatalf("err = %v, want columns[0] error", err)
	}
}

func TestTransforms(t *testing.T) {
	t.Parallel()

	r := Run{Transforms: []Transform{
		{Table: "users", Column: "password", Kind: "redact", Value: "***"},
		{Column: "ssn", Kind: "Nullify"},
	}}
	ts, err := r.ValueTransforms()
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 || ts[0].Match == nil || ts[1].Match != nil {
		t.Fatalf("transforms = %+v", ts)
	}
	if !ts[0].Match("users") || ts[0].Match("accounts") {
		t.Fatal("first transform must match users only")
	}

	pw := schema.ColumnUpdate{Column: schema.ColumnDefinition{Table: "users", Name: "password"}, Value: "secret"}
	if got := ts.For("users")(pw); got != "***" {
		t.Fatalf("users.password -> %v, want ***", got)
	}
	if got := ts.For("accounts")(pw); got != "secret" {
		t.Fatalf("accounts.password -> %v, want unchanged", got)
	}
	ssn := schema.ColumnUpdate{Column: schema.ColumnDefinition{Table: "accounts", Name: "ssn"}, Value: "123"}
	if got := ts.For("accounts")(ssn); got != nil {
		t.Fatalf("ssn -> %v, want nil", got)
	}

	if _, err := (Run{Transforms: []Transform{{Column: "x", Kind: "hash"}}}).ValueTransforms(); err == nil {
		t.Fatal("unknown kind must fail")
	}
}

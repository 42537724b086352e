package storage

import "testing"

func TestDialect_InsertSQL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		d    Dialect
		want string
	}{
		{"ansi", Dialect{}, `insert into "users" ("id", "name") values (?, ?)`},
		{"postgres", Dialect{BindVar: DollarN}, `insert into "users" ("id", "name") values ($1, $2)`},
		{"mysql", Dialect{QuoteIdent: QuoteBacktick}, "insert into `users` (`id`, `name`) values (?, ?)"},
		{"mssql", Dialect{QuoteIdent: QuoteBracket, BindVar: AtPN}, `insert into [users] ([id], [name]) values (@p1, @p2)`},
	}
	for _, tc := range cases {
		if got := tc.d.InsertSQL("users", []string{"id", "name"}); got != tc.want {
			t.Errorf("%s: InsertSQL = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDialect_SelectAndCount(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	if got, want := d.SelectSQL("public.orders", []string{"id", "total"}), `select "id", "total" from "public"."orders"`; got != want {
		t.Fatalf("SelectSQL = %s, want %s", got, want)
	}
	if got, want := d.CountSQL("orders"), `select count(*) from "orders"`; got != want {
		t.Fatalf("CountSQL = %s, want %s", got, want)
	}
}

func TestQuote_EscapesEmbeddedDelimiters(t *testing.T) {
	t.Parallel()

	if got := QuoteANSI(`we"ird`); got != `"we""ird"` {
		t.Fatalf("QuoteANSI = %s", got)
	}
	if got := QuoteBacktick("a`b"); got != "`a``b`" {
		t.Fatalf("QuoteBacktick = %s", got)
	}
	if got := QuoteBracket("a]b"); got != "[a]]b]" {
		t.Fatalf("QuoteBracket = %s", got)
	}
}

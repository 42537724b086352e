package storage

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
)

// fakeFactory returns a DB over a closed pool; registry tests never touch it.
func fakeFactory(_ context.Context, cfg Config) (*DB, error) {
	return NewDB(&sql.DB{}, Dialect{Name: cfg.Kind}, cfg, nil), nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding database.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, fakeFactory)

	db, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if db == nil {
		t.Fatalf("New returned nil db")
	}
	if db.Dialect().Name != kind {
		t.Fatalf("dialect name = %q, want %q", db.Dialect().Name, kind)
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, ListKinds())
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if got, want := err.Error(), "unsupported storage.kind=does-not-exist"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory.
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (*DB, error) {
		calls++
		return fakeFactory(ctx, cfg)
	})
	Register(kind, func(ctx context.Context, cfg Config) (*DB, error) {
		calls += 10
		return fakeFactory(ctx, cfg)
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestListKinds_Snapshot checks that ListKinds returns a copy.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", fakeFactory)

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	a[0] = "mutated"

	b := ListKinds()
	if reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

// TestRegister_AllowsErrors shows factories can return errors that bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")

	Register(kind, func(ctx context.Context, cfg Config) (*DB, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestNewDB_AppliesIntegrityOverrides(t *testing.T) {
	t.Parallel()

	base := Dialect{
		Name:          "x",
		DisableChecks: []string{"builtin off"},
		EnableChecks:  []string{"builtin on"},
	}
	db := NewDB(&sql.DB{}, base, Config{DisableChecks: []string{"custom off"}}, nil)

	d := db.Dialect()
	if !reflect.DeepEqual(d.DisableChecks, []string{"custom off"}) {
		t.Fatalf("DisableChecks = %v", d.DisableChecks)
	}
	if !reflect.DeepEqual(d.EnableChecks, []string{"builtin on"}) {
		t.Fatalf("EnableChecks = %v, want builtin kept", d.EnableChecks)
	}
}

package introspect

import (
	"path"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// Predicate selects tables by name.
type Predicate func(table string) bool

// All matches every table.
func All() Predicate { return func(string) bool { return true } }

// None matches no table.
func None() Predicate { return func(string) bool { return false } }

// Equal matches ref exactly.
func Equal(ref string) Predicate {
	return func(table string) bool { return table == ref }
}

// EqualFold matches ref ignoring case.
func EqualFold(ref string) Predicate {
	want := fold(ref)
	return func(table string) bool { return fold(table) == want }
}

// In matches any of names exactly.
func In(names ...string) Predicate {
	set := lo.SliceToMap(names, func(n string) (string, struct{}) { return n, struct{}{} })
	return func(table string) bool {
		_, ok := set[table]
		return ok
	}
}

// InFold matches any of names ignoring case.
func InFold(names ...string) Predicate {
	set := lo.SliceToMap(names, func(n string) (string, struct{}) { return fold(n), struct{}{} })
	return func(table string) bool {
		_, ok := set[fold(table)]
		return ok
	}
}

// Match matches a shell glob as understood by path.Match. A malformed pattern
// matches nothing.
func Match(glob string) Predicate {
	return func(table string) bool {
		ok, err := path.Match(glob, table)
		return err == nil && ok
	}
}

// MatchFold is Match ignoring case.
func MatchFold(glob string) Predicate {
	g := fold(glob)
	return func(table string) bool {
		ok, err := path.Match(g, fold(table))
		return err == nil && ok
	}
}

// Not inverts p.
func Not(p Predicate) Predicate {
	return func(table string) bool { return !p(table) }
}

// Or matches when any of ps matches. Or() matches nothing.
func Or(ps ...Predicate) Predicate {
	return func(table string) bool {
		return lo.SomeBy(ps, func(p Predicate) bool { return p(table) })
	}
}

func fold(s string) string { return cases.Fold().String(s) }

// Package view projects the engine's fixed, mutable entity arrays as
// read-through collections of lightweight facades. Facades share identity with
// their backing record instead of copying it, so writes through a facade are
// writes into engine memory.
package view

import (
	"github.com/rotisserie/eris"
)

// ErrIndexOutOfRange is returned by List.Get for indices outside the exposed
// range. The sentinel (last) slot of every engine array is deliberately out of
// range.
var ErrIndexOutOfRange = eris.New("entity index out of range")

// List is a bounds-checked, index-stable projection of an engine-owned backing
// slice. The last element of the backing slice is a sentinel and is never
// exposed. Facades are constructed lazily on each access through the supplied
// factory; construction is cheap and backing-record identity is stable per
// index, so no caching layer exists.
type List[R any, F any] struct {
	backing []R
	factory func(int, *R) F
}

// NewList wraps backing, which must contain at least one real slot plus the
// sentinel slot.
func NewList[R any, F any](backing []R, factory func(int, *R) F) (*List[R, F], error) {
	if len(backing) < 2 {
		return nil, eris.Errorf("backing array too short: %d slots", len(backing))
	}
	if factory == nil {
		return nil, eris.New("facade factory must not be nil")
	}
	return &List[R, F]{backing: backing, factory: factory}, nil
}

// Count returns the number of exposed slots, sentinel excluded.
func (l *List[R, F]) Count() int {
	return len(l.backing) - 1
}

// Get returns the facade for slot i. The facade wraps the canonical backing
// record at i; repeated calls yield facades over the same record.
func (l *List[R, F]) Get(i int) (F, error) {
	if i < 0 || i >= l.Count() {
		var zero F
		return zero, eris.Wrapf(ErrIndexOutOfRange, "index %d, count %d", i, l.Count())
	}
	return l.factory(i, &l.backing[i]), nil
}

// MustGet is Get for indices the caller has already validated. It panics on a
// range violation, which inside the bridge indicates the engine and bridge
// disagree about array capacity.
func (l *List[R, F]) MustGet(i int) F {
	f, err := l.Get(i)
	if err != nil {
		panic(err)
	}
	return f
}

// Each runs fn over every exposed slot in index order until fn returns false.
// Inactive slots are included; callers check activity themselves.
func (l *List[R, F]) Each(fn func(i int, f F) bool) {
	for i := 0; i < l.Count(); i++ {
		if !fn(i, l.factory(i, &l.backing[i])) {
			return
		}
	}
}

// Reconcile produces a facade for a backing record claiming slot i. When rec
// is the canonical record stored at i, the result is identical to Get(i).
// When it is not (the engine reused or is mid-mutating the slot), a detached
// facade over rec is returned so observers never see a spoofed identity.
func (l *List[R, F]) Reconcile(i int, rec *R) (F, error) {
	if i < 0 || i >= l.Count() {
		var zero F
		return zero, eris.Wrapf(ErrIndexOutOfRange, "index %d, count %d", i, l.Count())
	}
	return l.factory(i, rec), nil
}

// Canonical reports whether rec is the record stored at slot i.
func (l *List[R, F]) Canonical(i int, rec *R) bool {
	if i < 0 || i >= l.Count() {
		return false
	}
	return rec == &l.backing[i]
}

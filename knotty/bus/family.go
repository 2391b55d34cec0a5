package bus

import (
	"reflect"
	"slices"
	"strings"
)

// Family is the key subscribers register under. It is a Go type: a concrete
// variant, an interface the variant implements, or a marker type declared as
// an ancestor with Declare.
type Family struct {
	t reflect.Type
}

// FamilyOf returns the family key of T.
func FamilyOf[T any]() Family {
	return Family{t: reflect.TypeFor[T]()}
}

func familyOfValue(msg any) Family {
	return Family{t: reflect.TypeOf(msg)}
}

func (f Family) IsZero() bool {
	return f.t == nil
}

func (f Family) String() string {
	if f.t == nil {
		return "<nil>"
	}
	return f.t.String()
}

func (f Family) isInterface() bool {
	return f.t != nil && f.t.Kind() == reflect.Interface
}

// chainOf returns the delivery order for variant v: v itself, then its declared
// ancestors, then every known interface family v implements, sorted by name.
// Callers must hold b.mu.
func (b *Bus) chainOf(v Family) []Family {
	if chain, ok := b.chains[v]; ok {
		return chain
	}

	chain := []Family{v}
	seen := map[Family]struct{}{v: {}}
	for _, ancestor := range b.declared[v] {
		if _, dup := seen[ancestor]; dup {
			continue
		}
		seen[ancestor] = struct{}{}
		chain = append(chain, ancestor)
	}

	var implicit []Family
	for family := range b.known {
		if _, dup := seen[family]; dup || !family.isInterface() {
			continue
		}
		if v.t.Implements(family.t) {
			implicit = append(implicit, family)
		}
	}
	slices.SortFunc(implicit, func(a, b Family) int {
		return strings.Compare(a.String(), b.String())
	})
	chain = append(chain, implicit...)

	b.chains[v] = chain
	return chain
}

// learn records a family key. A new key invalidates every cached chain.
// Callers must hold b.mu.
func (b *Bus) learn(family Family) {
	if _, ok := b.known[family]; ok {
		return
	}
	b.known[family] = struct{}{}
	clear(b.chains)
}

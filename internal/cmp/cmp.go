package cmp

type BiPredicator[V any, U any] func(a V, b U) bool

// check a == b, keys and values.
func MapEq[K comparable, V comparable](a map[K]V, b map[K]V) bool {
	return MapEqWith(a, b, func(x, y V) bool { return x == y })
}

// check a == b, in context of comparator.
func MapEqWith[K comparable, V any, U any](a map[K]V, b map[K]U, comparator BiPredicator[V, U]) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !comparator(av, bv) {
			return false
		}
	}
	return true
}

// check a == b, element-wise in order.
func SliceEq[T comparable](a []T, b []T) bool {
	return SliceEqWith(a, b, func(x, y T) bool { return x == y })
}

func SliceEqWith[V any, U any](a []V, b []U, comparator BiPredicator[V, U]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !comparator(a[i], b[i]) {
			return false
		}
	}
	return true
}

// check a and b have same elements, ignoring order.
func SliceContentEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	rest := make([]T, len(b))
	copy(rest, b)
outer:
	for _, av := range a {
		for i, bv := range rest {
			if av == bv {
				rest = append(rest[:i], rest[i+1:]...)
				continue outer
			}
		}
		return false
	}
	return true
}

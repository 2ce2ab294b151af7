package batch

// Result is the response of a remote call that answers a one-name request
// with a bare value and a multi-name request with a list. Callers normalize
// it with List before looking at the items.
type Result[T any] struct {
	items []T
	one   bool
}

// One wraps a bare single value.
func One[T any](v T) Result[T] {
	return Result[T]{items: []T{v}, one: true}
}

// Many wraps a list value.
func Many[T any](vs []T) Result[T] {
	return Result[T]{items: vs}
}

// Mirror shapes items the way the remote API does for a request of
// requested names: a bare value for exactly one name, a list otherwise.
func Mirror[T any](requested int, items []T) Result[T] {
	if requested == 1 && len(items) == 1 {
		return One(items[0])
	}
	return Many(items)
}

// List returns the items as a list. A bare value becomes a one-element
// list; an absent response becomes an empty list.
func (r Result[T]) List() []T {
	if r.items == nil {
		return []T{}
	}
	return r.items
}

// IsOne reports whether the response was a bare value.
func (r Result[T]) IsOne() bool { return r.one }

// Len returns the number of items.
func (r Result[T]) Len() int { return len(r.items) }

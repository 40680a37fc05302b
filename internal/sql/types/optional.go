package types

// Optional distinguishes "no value" from a present value, including a present
// value that has not been validated yet.
type Optional[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None is the absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is held.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the value or def when absent.
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.value
	}
	return def
}

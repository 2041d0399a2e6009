// Package ptr provides utility functions for working with pointers.
package ptr

// Deref returns the value pointed to by the given pointer.
func Deref[T any](ptr *T) T {
	if ptr == nil {
		var zero T

		return zero
	}

	return *ptr
}

// Of returns a pointer to the given value.
func Of[T any](s T) *T { return &s }

// Or returns the pointed value, or def when ptr is nil.
func Or[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}

	return *ptr
}

// Map converts a non-nil pointer with fn and keeps nil as nil.
func Map[T, U any](ptr *T, fn func(T) U) *U {
	if ptr == nil {
		return nil
	}

	v := fn(*ptr)

	return &v
}

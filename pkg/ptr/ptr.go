// Package ptr provides utility functions for working with optional values
// modeled as pointers.
package ptr

// Deref returns the value ptr points to, or the zero value for a nil ptr.
func Deref[T any](ptr *T) T {
	if ptr == nil {
		var zero T

		return zero
	}

	return *ptr
}

// Of returns a pointer to v.
func Of[T any](v T) *T { return &v }

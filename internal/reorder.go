package internal

import "fmt"

// Move returns a copy of items with the element at from reinserted at to.
// All other elements keep their relative order. items is never modified.
func Move[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n {
		return nil, &ValidationError{Field: "index", Reason: fmt.Sprintf("from %d out of range [0, %d)", from, n)}
	}
	if to < 0 || to >= n {
		return nil, &ValidationError{Field: "index", Reason: fmt.Sprintf("to %d out of range [0, %d)", to, n)}
	}

	moved := items[from]
	rest := make([]T, 0, n)
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)

	out := make([]T, 0, n)
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return out, nil
}

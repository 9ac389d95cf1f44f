package mathx

import "golang.org/x/exp/constraints"

// Min of two ordered values.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

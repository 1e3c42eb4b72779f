// Package mathx generalizes the teacher's x/mathx helpers (Clamp/Between/
// Min/Max/Abs/Lerp) with golang.org/x/exp/constraints generics, and adds
// the interpolation and moving-window helpers ported from
// control-core/src/helpers/{interpolation,moving_time_window}.rs.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// OptionalClamp mirrors ClampingTimeagnosticPidController::optional_clamp:
// either bound may be absent.
func OptionalClamp[T constraints.Ordered](v T, lo, hi *T) T {
	if lo != nil && hi != nil {
		return Clamp(v, *lo, *hi)
	}
	if lo != nil {
		return Max(v, *lo)
	}
	if hi != nil {
		return Min(v, *hi)
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// Min/Max for convenience.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Abs for signed numeric types.
func Abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// Package mathx provides small bounded-arithmetic helpers shared by the
// control and safety packages.
package mathx

// Clamp bounds v to [lo, hi]. When lo > hi the lower bound wins; the
// function is total and never panics.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt bounds v to [lo, hi] with the same lo-wins rule as Clamp.
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

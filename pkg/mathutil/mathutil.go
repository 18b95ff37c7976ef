// Package mathutil collects the small numeric helpers shared by the
// attribution, profiling and scoring packages: safe division, clamping,
// and a fractional power that tolerates non-positive bases.
package mathutil

import "math"

// DeltaU64 computes now-prev, treating now < prev (counter wraparound or
// a slot that was reset between reads) as a zero delta rather than
// underflowing.
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	return 0
}

// SafeDiv returns n/d, or 0 when d is within eps of zero.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

// Clamp01 clamps x to [0,1], mapping NaN to 0.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Pow returns a**b, treating non-positive a as 0 rather than producing
// NaN/Inf (activation curves never take a negative occupancy).
func Pow(a, b float64) float64 {
	if a <= 0 {
		return 0
	}
	return math.Exp(b * math.Log(a))
}

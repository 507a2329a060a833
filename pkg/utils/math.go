package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm and returns the norm it had before.
// A zero or non-finite norm leaves x unchanged; callers decide whether that is an error.
func NormalizeL2(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return norm
	}
	inv := 1.0 / norm
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
	return norm
}

// Normalized returns a unit-length copy of x along with the original norm.
// The input slice is never modified, so it is safe to call on cached vectors.
func Normalized(x []float32) ([]float32, float64) {
	out := make([]float32, len(x))
	copy(out, x)
	return out, NormalizeL2(out)
}

// ValidNorm reports whether a norm returned by NormalizeL2 produced a unit vector.
func ValidNorm(norm float64) bool {
	return norm > 0 && !math.IsNaN(norm) && !math.IsInf(norm, 0)
}

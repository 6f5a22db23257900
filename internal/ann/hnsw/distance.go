package hnsw

import "math"

// DotProduct computes the dot product of two vectors.
// Returns 0 if the vectors have different lengths.
func DotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Magnitude computes the L2 norm of a vector.
func Magnitude(v []float32) float64 {
	return math.Sqrt(float64(DotProduct(v, v)))
}

// CosineDistance computes 1 - cosine similarity using pre-computed magnitudes,
// yielding a value in [0, 2]. Returns 2 (maximum distance) if either magnitude
// is zero.
func CosineDistance(a, b []float32, magA, magB float64) float64 {
	if magA == 0 || magB == 0 {
		return 2
	}
	dot := float64(DotProduct(a, b))
	return 1 - dot/(magA*magB)
}

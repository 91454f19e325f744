package facematch

import "math"

// EuclideanDistance calculates the L2 distance between two embeddings.
// Mismatched or empty vectors are infinitely far apart.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.MaxFloat64
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence converts a distance to a percentage. It goes negative past distance 1.
func Confidence(distance float64) float64 {
	return (1 - distance) * 100
}

// DisplayConfidence clamps a confidence to [0, 100] for labels and logs.
func DisplayConfidence(confidence float64) float64 {
	return max(0, min(100, confidence))
}

package catalog

import "math"

// Metric names accepted by Matcher.
const (
	MetricEuclidean = "euclidean"
	MetricCosine    = "cosine"
)

// EuclideanDistance computes the L2 distance between two vectors.
// Returns +Inf for vectors of mismatched or zero length.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0 // Maximum distance for zero vectors
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// Matcher decides whether two embeddings belong to the same identity.
// The metric and threshold come from the embedder model's calibration.
type Matcher struct {
	Metric    string
	Threshold float64
}

// Distance computes the distance between two embeddings under the matcher's metric.
func (m Matcher) Distance(a, b []float32) float64 {
	if m.Metric == MetricCosine {
		return CosineDistance(a, b)
	}
	return EuclideanDistance(a, b)
}

// Matches returns true if the two embeddings are within the matcher's threshold.
func (m Matcher) Matches(a, b []float32) bool {
	return m.Distance(a, b) <= m.Threshold
}

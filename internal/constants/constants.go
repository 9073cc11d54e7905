// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Pipeline constants
const (
	// EventChannelBuffer is the capacity of the bounded event channel between
	// the background worker and the consumer loop. When the buffer is full the
	// worker blocks rather than dropping events.
	EventChannelBuffer = 100

	// PollInterval is how often the consumer loop drains pending events while
	// a run is in progress.
	PollInterval = 100 * time.Millisecond
)

// Face matching constants
const (
	// DefaultEuclideanThreshold is the maximum euclidean distance for two face
	// embeddings to be considered the same identity (dlib-style 128-d vectors).
	DefaultEuclideanThreshold = 0.6

	// DefaultCosineThreshold is the maximum cosine distance for face matching
	// when the embedder produces cosine-calibrated vectors.
	DefaultCosineThreshold = 0.5

	// DefaultEmbeddingDim is the embedding length expected from the default
	// embedder model.
	DefaultEmbeddingDim = 128
)

// Processing constants
const (
	// MaxImageSize is the maximum dimension (width or height) of an image sent
	// to the embedding server. Larger images are downscaled first.
	MaxImageSize = 1920

	// DefaultSimilarLimit is the default number of nearest identities returned
	// by similarity queries.
	DefaultSimilarLimit = 10
)

// Package embedder talks to the external face-detection/embedding server.
// The server owns face detection and embedding; this package only moves image
// bytes in and embedding vectors out.
package embedder

import "context"

// Embedder produces face embeddings for one image. An image with no faces
// yields an empty slice and no error.
type Embedder interface {
	DetectAndEmbed(ctx context.Context, imageData []byte) ([][]float32, error)
}

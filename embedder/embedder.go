package embedder

import "context"

// Embedder maps text to a fixed-length vector. Every call on one Embedder
// returns vectors of the same length.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

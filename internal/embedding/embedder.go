// Package embedding converts text to fixed-dimension vectors. The same
// embedder instance serves both ingestion and query time; mixing models would
// invalidate distance comparability.
package embedding

import "context"

type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the fixed output vector length.
	Dimension() int
}

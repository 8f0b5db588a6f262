// Package vector defines the vector store contract used by ingestion and
// retrieval. Implementations persist (embedding, text, provenance) triples and
// answer nearest-neighbour queries by L2 distance.
package vector

import "context"

// Segment is the atomic retrievable unit. Segments are created during
// ingestion and never mutated; they disappear only through DeleteBySource or
// Clear.
type Segment struct {
	ID         string
	SourceFile string
	Page       int
	ChunkIndex int
	Tags       string
	Text       string
	Embedding  []float32
}

// Match is one nearest-neighbour result. Distance is the store's raw L2
// distance; the retriever converts it to a similarity score.
type Match struct {
	ID         string
	SourceFile string
	Page       int
	Text       string
	Distance   float32
}

type Store interface {
	Upsert(ctx context.Context, segments []Segment) error
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	DeleteBySource(ctx context.Context, sourceFile string) (int, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

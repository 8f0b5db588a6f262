// Package retrieval answers "which segments are relevant to this question".
// It embeds the query, asks the vector store for the nearest segments, converts
// raw distances to similarity scores and discards low-relevance candidates.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/vector"
	"github.com/docqa/backend/pkg/apperr"
	"github.com/docqa/backend/pkg/logger"
)

// DefaultTopK is the default number of candidates requested from the store.
const DefaultTopK = 5

// DefaultThreshold is the default minimum similarity a candidate must reach
// to be used as grounding context.
const DefaultThreshold = 0.3

// Candidate is one retrieved segment with its similarity score in (0,1].
type Candidate struct {
	ID         string  `json:"id"`
	SourceFile string  `json:"source_file"`
	Page       int     `json:"page,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

type Retriever struct {
	embedder  embedding.Embedder
	store     vector.Store
	topK      int
	threshold float64
}

func NewRetriever(embedder embedding.Embedder, store vector.Store, topK int, threshold float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Retriever{
		embedder:  embedder,
		store:     store,
		topK:      topK,
		threshold: threshold,
	}
}

// Search returns candidates ordered by descending similarity, ties kept in
// store order. An empty result is a valid outcome meaning no grounding was
// found; callers must not fabricate an answer from it.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = r.topK
	}

	queryEmbedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.store.Query(ctx, queryEmbedding, k)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreReadError, "failed to query vector store", err)
	}

	// Matches arrive nearest-first; similarity is monotonically decreasing in
	// distance, so the filtered list stays sorted.
	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		similarity := Similarity(float64(m.Distance))
		if similarity < r.threshold {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:         m.ID,
			SourceFile: m.SourceFile,
			Page:       m.Page,
			Text:       m.Text,
			Similarity: similarity,
		})
	}

	logger.Debug("Retrieval completed",
		zap.Int("requested", k),
		zap.Int("matches", len(matches)),
		zap.Int("above_threshold", len(candidates)),
	)

	return candidates, nil
}

// Threshold returns the configured relevance threshold.
func (r *Retriever) Threshold() float64 {
	return r.threshold
}

// Similarity converts a non-negative store distance to a score in (0,1],
// strictly decreasing in distance. Distance 0 maps to 1.
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

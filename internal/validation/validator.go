// Package validation checks generated answers against the context they were
// grounded on. The check is advisory: it annotates responses, it never blocks
// them.
package validation

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/prompt"
	"github.com/docqa/backend/internal/retrieval"
	"github.com/docqa/backend/pkg/logger"
)

// DefaultGroundingThreshold is the minimum answer-to-context cosine
// similarity for an answer to count as grounded.
const DefaultGroundingThreshold = 0.5

type Validator struct {
	embedder  embedding.Embedder
	threshold float64
}

type Report struct {
	Grounded         bool    `json:"grounded"`
	CosineSimilarity float64 `json:"cosine_similarity"`
	CitedSources     int     `json:"cited_sources"`
	TotalSources     int     `json:"total_sources"`
}

func NewValidator(embedder embedding.Embedder, threshold float64) *Validator {
	if threshold <= 0 {
		threshold = DefaultGroundingThreshold
	}
	return &Validator{embedder: embedder, threshold: threshold}
}

// Validate scores how well the answer is supported by the candidates it was
// generated from. Similarity is computed between the answer embedding and the
// concatenated context embedding; citation coverage counts how many source
// labels the answer repeats.
func (v *Validator) Validate(ctx context.Context, answer string, candidates []retrieval.Candidate) (*Report, error) {
	report := &Report{TotalSources: len(candidates)}

	if len(candidates) == 0 {
		return report, nil
	}

	for _, c := range candidates {
		if strings.Contains(answer, prompt.Label(c)) {
			report.CitedSources++
		}
	}

	var contextText strings.Builder
	for _, c := range candidates {
		contextText.WriteString(c.Text)
		contextText.WriteString("\n")
	}

	answerEmb, err := v.embedder.Embed(ctx, answer)
	if err != nil {
		return nil, err
	}
	contextEmb, err := v.embedder.Embed(ctx, contextText.String())
	if err != nil {
		return nil, err
	}

	report.CosineSimilarity = cosineSimilarity(answerEmb, contextEmb)
	report.Grounded = report.CosineSimilarity >= v.threshold || report.CitedSources > 0

	logger.Debug("Answer validated",
		zap.Float64("cosine_similarity", report.CosineSimilarity),
		zap.Int("cited_sources", report.CitedSources),
		zap.Bool("grounded", report.Grounded),
	)

	return report, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

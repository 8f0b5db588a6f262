package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/retrieval"
)

// directionEmbedder returns a fixed direction per known text so cosine
// similarity between texts is controllable.
type directionEmbedder struct {
	vectors map[string][]float32
}

func (f *directionEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 1}, nil
}

func (f *directionEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *directionEmbedder) Dimension() int { return 2 }

func TestValidate_GroundedBySimilarity(t *testing.T) {
	v := NewValidator(&directionEmbedder{vectors: map[string][]float32{
		"grounded answer":  {1, 0},
		"context text\n":   {1, 0},
	}}, 0.5)

	report, err := v.Validate(context.Background(), "grounded answer", []retrieval.Candidate{
		{SourceFile: "a.txt", Text: "context text"},
	})
	require.NoError(t, err)

	assert.True(t, report.Grounded)
	assert.InDelta(t, 1.0, report.CosineSimilarity, 1e-6)
}

func TestValidate_UngroundedAnswer(t *testing.T) {
	v := NewValidator(&directionEmbedder{vectors: map[string][]float32{
		"orthogonal answer": {1, 0},
		"context text\n":    {0, 1},
	}}, 0.5)

	report, err := v.Validate(context.Background(), "orthogonal answer", []retrieval.Candidate{
		{SourceFile: "a.txt", Text: "context text"},
	})
	require.NoError(t, err)

	assert.False(t, report.Grounded)
	assert.InDelta(t, 0.0, report.CosineSimilarity, 1e-6)
}

func TestValidate_CitationCoverage(t *testing.T) {
	v := NewValidator(&directionEmbedder{vectors: map[string][]float32{}}, 0.99)

	answer := "Revenue grew [Source: report.pdf, Page 3] according to the filing."
	report, err := v.Validate(context.Background(), answer, []retrieval.Candidate{
		{SourceFile: "report.pdf", Page: 3, Text: "revenue"},
		{SourceFile: "notes.txt", Text: "notes"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.CitedSources)
	assert.Equal(t, 2, report.TotalSources)
	// Citation presence grounds the answer even below the similarity bar.
	assert.True(t, report.Grounded)
}

func TestValidate_NoCandidates(t *testing.T) {
	v := NewValidator(&directionEmbedder{}, 0.5)

	report, err := v.Validate(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.False(t, report.Grounded)
	assert.Zero(t, report.TotalSources)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 0}), "dimension mismatch")
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

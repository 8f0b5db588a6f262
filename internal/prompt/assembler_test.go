package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/retrieval"
)

func TestBuild_WithCandidates(t *testing.T) {
	a := NewAssembler()
	candidates := []retrieval.Candidate{
		{SourceFile: "report.pdf", Page: 3, Text: "revenue grew 10%"},
		{SourceFile: "notes.txt", Text: "meeting summary"},
	}

	got := a.Build(candidates, "How did revenue change?")

	assert.Contains(t, got, "revenue grew 10%")
	assert.Contains(t, got, "meeting summary")
	assert.Contains(t, got, "[Source: report.pdf, Page 3]")
	assert.Contains(t, got, "[Source: notes.txt]")
	assert.Contains(t, got, "Question: How did revenue change?")
	assert.True(t, strings.HasSuffix(got, "Answer:"))

	// Candidate order is preserved in the rendered context.
	first := strings.Index(got, "revenue grew 10%")
	second := strings.Index(got, "meeting summary")
	assert.Less(t, first, second)
}

func TestBuild_NoCandidates(t *testing.T) {
	a := NewAssembler()

	got := a.Build(nil, "What is the answer?")

	assert.Contains(t, got, "No relevant documents were found")
	assert.Contains(t, got, "Question: What is the answer?")
	assert.NotContains(t, got, "Context from documents")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "[Source: a.pdf, Page 2]", Label(retrieval.Candidate{SourceFile: "a.pdf", Page: 2}))
	assert.Equal(t, "[Source: b.txt]", Label(retrieval.Candidate{SourceFile: "b.txt"}))
}

func TestLabels_PreservesOrder(t *testing.T) {
	candidates := []retrieval.Candidate{
		{SourceFile: "z.pdf", Page: 1},
		{SourceFile: "a.txt"},
	}

	got := Labels(candidates)

	require.Len(t, got, 2)
	assert.Equal(t, "[Source: z.pdf, Page 1]", got[0])
	assert.Equal(t, "[Source: a.txt]", got[1])
}

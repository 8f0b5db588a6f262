package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/vector"
)

func seedSegments() []vector.Segment {
	return []vector.Segment{
		{ID: "s1", SourceFile: "a.txt", Text: "close", Embedding: []float32{1, 0}},
		{ID: "s2", SourceFile: "a.txt", Text: "closer", Embedding: []float32{0.9, 0.1}},
		{ID: "s3", SourceFile: "b.txt", Text: "far", Embedding: []float32{0, 1}},
	}
}

func TestStore_QueryOrdersByDistance(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, seedSegments()))

	matches, err := s.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "s1", matches[0].ID)
	assert.Equal(t, "s2", matches[1].ID)
	assert.Equal(t, "s3", matches[2].ID)
	assert.LessOrEqual(t, matches[0].Distance, matches[1].Distance)
	assert.LessOrEqual(t, matches[1].Distance, matches[2].Distance)
}

func TestStore_QueryRespectsTopK(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, seedSegments()))

	matches, err := s.Query(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestStore_UpsertRejectsMissingEmbedding(t *testing.T) {
	s := NewStore()

	err := s.Upsert(context.Background(), []vector.Segment{{ID: "bad"}})
	assert.Error(t, err)
}

func TestStore_DeleteBySource(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, seedSegments()))

	removed, err := s.DeleteBySource(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	removed, err = s.DeleteBySource(ctx, "missing.txt")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, seedSegments()))

	require.NoError(t, s.Clear(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

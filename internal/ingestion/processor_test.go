package ingestion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/chunker"
	"github.com/docqa/backend/internal/loaders"
	"github.com/docqa/backend/internal/storage/sqlite"
	"github.com/docqa/backend/internal/vector"
	"github.com/docqa/backend/internal/vector/memory"
	"github.com/docqa/backend/pkg/apperr"
)

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (f *fakeEmbedder) Dimension() int { return 2 }

func newTestProcessor(t *testing.T) (*Processor, *memory.Store) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	store := memory.NewStore()
	p := NewProcessor(
		db,
		store,
		&fakeEmbedder{},
		loaders.NewRegistry(),
		chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10)),
		nil,
	)
	return p, store
}

func TestIngest_TextFile(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	text := "Paris is the capital of France.\n\nBerlin is the capital of Germany.\n\nRome is the capital of Italy."
	result, err := p.Ingest(ctx, "capitals.txt", []byte(text))
	require.NoError(t, err)

	assert.Equal(t, "capitals.txt", result.Filename)
	assert.Equal(t, "text", result.Format)
	assert.Greater(t, result.SegmentCount, 1)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(result.SegmentCount), count)

	docs, err := p.List()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, result.SegmentCount, docs[0].SegmentCount)
}

func TestIngest_DuplicateFilenameRejected(t *testing.T) {
	p, _ := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, "doc.txt", []byte("some content worth keeping"))
	require.NoError(t, err)

	_, err = p.Ingest(ctx, "doc.txt", []byte("different content"))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

// failingUpsertStore errors on every write.
type failingUpsertStore struct {
	vector.Store
}

func (f *failingUpsertStore) Upsert(_ context.Context, _ []vector.Segment) error {
	return errors.New("disk full")
}

func TestIngest_StoreFailureSurfacesWriteKind(t *testing.T) {
	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	p := NewProcessor(
		db,
		&failingUpsertStore{Store: memory.NewStore()},
		&fakeEmbedder{},
		loaders.NewRegistry(),
		chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10)),
		nil,
	)

	_, err = p.Ingest(context.Background(), "doc.txt", []byte("content that never gets stored"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindStoreWriteError, apperr.KindOf(err))

	// A failed write registers nothing.
	docs, err := p.List()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_UnsupportedFormat(t *testing.T) {
	p, _ := newTestProcessor(t)

	_, err := p.Ingest(context.Background(), "archive.zip", []byte("data"))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnsupportedFormat))
}

func TestIngest_EmptyFile(t *testing.T) {
	p, _ := newTestProcessor(t)

	_, err := p.Ingest(context.Background(), "empty.txt", []byte("   "))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindExtractionError))
}

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	p, _ := newTestProcessor(t)

	outcomes := p.IngestBatch(context.Background(), []BatchFile{
		{Filename: "good.txt", Data: []byte("valid content here")},
		{Filename: "bad.zip", Data: []byte("unsupported")},
		{Filename: "also-good.txt", Data: []byte("more valid content")},
	})

	require.Len(t, outcomes, 3)
	assert.Equal(t, "ok", outcomes[0].Status)
	assert.Equal(t, "error", outcomes[1].Status)
	assert.NotEmpty(t, outcomes[1].Error)
	assert.Equal(t, "ok", outcomes[2].Status)
}

func TestDelete_RemovesDocumentAndSegments(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	result, err := p.Ingest(ctx, "doc.txt", []byte("content to be deleted later on"))
	require.NoError(t, err)

	removed, err := p.Delete(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, result.SegmentCount, removed)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	docs, err := p.List()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDelete_NotFound(t *testing.T) {
	p, _ := newTestProcessor(t)

	_, err := p.Delete(context.Background(), "missing.txt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestClear_Idempotent(t *testing.T) {
	p, store := newTestProcessor(t)
	ctx := context.Background()

	_, err := p.Ingest(ctx, "a.txt", []byte("first document content"))
	require.NoError(t, err)
	_, err = p.Ingest(ctx, "b.txt", []byte("second document content"))
	require.NoError(t, err)

	require.NoError(t, p.Clear(ctx))
	require.NoError(t, p.Clear(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStats(t *testing.T) {
	p, _ := newTestProcessor(t)
	ctx := context.Background()

	result, err := p.Ingest(ctx, "doc.txt", []byte("content for the stats endpoint to count"))
	require.NoError(t, err)

	stats, err := p.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, result.SegmentCount, stats.SegmentCount)
	assert.Equal(t, int64(result.SegmentCount), stats.VectorCount)
}

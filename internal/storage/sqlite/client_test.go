package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.InitSchema())
	return c
}

func insertTestDocument(t *testing.T, c *Client, id, filename string) {
	t.Helper()

	now := time.Now()
	require.NoError(t, c.InsertDocument(&models.Document{
		ID:           id,
		Filename:     filename,
		Format:       "text",
		SegmentCount: 2,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
	for i := 0; i < 2; i++ {
		require.NoError(t, c.InsertSegment(&models.SegmentRecord{
			ID:         id + "-seg-" + string(rune('a'+i)),
			DocumentID: id,
			ChunkIndex: i,
			CreatedAt:  now,
		}))
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	c := newTestClient(t)
	insertTestDocument(t, c, "d1", "report.pdf")

	doc, err := c.GetDocumentByFilename("report.pdf")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, 2, doc.SegmentCount)

	missing, err := c.GetDocumentByFilename("absent.pdf")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateFilenameViolatesUnique(t *testing.T) {
	c := newTestClient(t)
	insertTestDocument(t, c, "d1", "report.pdf")

	err := c.InsertDocument(&models.Document{
		ID:        "d2",
		Filename:  "report.pdf",
		Format:    "text",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	assert.Error(t, err)
}

func TestDeleteDocumentCascadesToSegments(t *testing.T) {
	c := newTestClient(t)
	insertTestDocument(t, c, "d1", "report.pdf")

	segments, err := c.DeleteDocumentByFilename("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, segments)

	count, err := c.CountSegments()
	require.NoError(t, err)
	assert.Zero(t, count)

	segments, err = c.DeleteDocumentByFilename("absent.pdf")
	require.NoError(t, err)
	assert.Zero(t, segments)
}

func TestListDocumentsOrderedByFilename(t *testing.T) {
	c := newTestClient(t)
	insertTestDocument(t, c, "d1", "zeta.txt")
	insertTestDocument(t, c, "d2", "alpha.txt")

	docs, err := c.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha.txt", docs[0].Filename)
	assert.Equal(t, "zeta.txt", docs[1].Filename)
}

func TestQueryHistoryRoundTrip(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.InsertQueryRecord(&models.QueryRecord{
		ID:             "q1",
		Question:       "what changed?",
		Answer:         "nothing",
		Provider:       "gemini",
		CandidateCount: 3,
		LatencyMS:      120,
		CreatedAt:      time.Now(),
	}))
	require.NoError(t, c.InsertQuerySource(&models.QuerySource{
		QueryID:    "q1",
		SourceFile: "report.pdf",
		Page:       2,
		Similarity: 0.8,
	}))

	records, err := c.GetQueryHistory(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "what changed?", records[0].Question)
	assert.Equal(t, "gemini", records[0].Provider)
	assert.Equal(t, 3, records[0].CandidateCount)
}

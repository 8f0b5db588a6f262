// Package ingestion turns uploaded files into stored, searchable segments.
package ingestion

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/cache/redis"
	"github.com/docqa/backend/internal/chunker"
	"github.com/docqa/backend/internal/embedding"
	"github.com/docqa/backend/internal/loaders"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/internal/storage/sqlite"
	"github.com/docqa/backend/internal/vector"
	"github.com/docqa/backend/pkg/apperr"
	"github.com/docqa/backend/pkg/logger"
)

const maxTagEntities = 8

type Processor struct {
	db       *sqlite.Client
	store    vector.Store
	embedder embedding.Embedder
	registry *loaders.Registry
	chunker  *chunker.Chunker
	cache    *redis.Client
}

type IngestResult struct {
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	SegmentCount int    `json:"segment_count"`
}

// FileOutcome is the per-file result of a batch upload. One bad file never
// fails the batch.
type FileOutcome struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Segments int    `json:"segments,omitempty"`
	Error    string `json:"error,omitempty"`
}

func NewProcessor(
	db *sqlite.Client,
	store vector.Store,
	embedder embedding.Embedder,
	registry *loaders.Registry,
	ch *chunker.Chunker,
	cache *redis.Client,
) *Processor {
	return &Processor{
		db:       db,
		store:    store,
		embedder: embedder,
		registry: registry,
		chunker:  ch,
		cache:    cache,
	}
}

// Ingest extracts, chunks, embeds and stores one file. A filename that is
// already registered is rejected; the document must be deleted first.
func (p *Processor) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	startTime := time.Now()

	loader, err := p.registry.ForFilename(filename)
	if err != nil {
		return nil, err
	}
	format := loader.Format()

	logger.Info("Ingesting document",
		zap.String("filename", filename),
		zap.String("format", format),
		zap.Int("bytes", len(data)),
	)

	units, err := loader.Load(data, filename)
	if err != nil {
		metrics.DocumentsIngested.WithLabelValues(format, "error").Inc()
		return nil, err
	}
	if len(units) == 0 {
		metrics.DocumentsIngested.WithLabelValues(format, "error").Inc()
		return nil, apperr.Newf(apperr.KindExtractionError, "no text extracted from %s", filename)
	}

	existing, err := p.db.GetDocumentByFilename(filename)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.DocumentsIngested.WithLabelValues(format, "duplicate").Inc()
		return nil, apperr.Newf(apperr.KindInvalidInput, "document already exists: %s", filename)
	}

	docID := uuid.New().String()
	var segments []vector.Segment
	var fullText strings.Builder

	for _, unit := range units {
		fullText.WriteString(unit.Text)
		fullText.WriteString("\n")

		for _, chunk := range p.chunker.Split(unit.Text) {
			segments = append(segments, vector.Segment{
				ID:         uuid.New().String(),
				SourceFile: filename,
				Page:       unit.Page,
				ChunkIndex: len(segments),
				Text:       chunk,
			})
		}
	}

	if len(segments) == 0 {
		metrics.DocumentsIngested.WithLabelValues(format, "error").Inc()
		return nil, apperr.Newf(apperr.KindExtractionError, "no segments produced from %s", filename)
	}

	tags := extractTags(fullText.String())
	for i := range segments {
		segments[i].Tags = tags
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		metrics.DocumentsIngested.WithLabelValues(format, "error").Inc()
		return nil, err
	}
	if len(embeddings) != len(segments) {
		return nil, apperr.Newf(apperr.KindEmbeddingError,
			"embedding count mismatch: got %d, expected %d", len(embeddings), len(segments))
	}
	for i := range segments {
		segments[i].Embedding = embeddings[i]
	}

	if err := p.store.Upsert(ctx, segments); err != nil {
		metrics.DocumentsIngested.WithLabelValues(format, "error").Inc()
		return nil, apperr.Wrap(apperr.KindStoreWriteError, "failed to store segments for "+filename, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:           docID,
		Filename:     filename,
		Format:       format,
		SegmentCount: len(segments),
		Tags:         tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.db.InsertDocument(doc); err != nil {
		return nil, err
	}

	for _, s := range segments {
		err := p.db.InsertSegment(&models.SegmentRecord{
			ID:         s.ID,
			DocumentID: docID,
			ChunkIndex: s.ChunkIndex,
			Page:       s.Page,
			CreatedAt:  now,
		})
		if err != nil {
			logger.Warn("Failed to record segment", zap.Error(err))
		}
	}

	p.invalidateAnswers(ctx)

	metrics.DocumentsIngested.WithLabelValues(format, "success").Inc()
	metrics.SegmentsStored.Add(float64(len(segments)))
	metrics.IngestDuration.WithLabelValues(format).Observe(time.Since(startTime).Seconds())

	logger.Info("Document ingested",
		zap.String("filename", filename),
		zap.Int("segments", len(segments)),
	)

	return &IngestResult{
		Filename:     filename,
		Format:       format,
		SegmentCount: len(segments),
	}, nil
}

type BatchFile struct {
	Filename string
	Data     []byte
}

// IngestBatch processes files independently and reports one outcome per file.
func (p *Processor) IngestBatch(ctx context.Context, files []BatchFile) []FileOutcome {
	outcomes := make([]FileOutcome, 0, len(files))

	for _, f := range files {
		result, err := p.Ingest(ctx, f.Filename, f.Data)
		if err != nil {
			logger.Warn("Batch file failed",
				zap.String("filename", f.Filename),
				zap.Error(err),
			)
			outcomes = append(outcomes, FileOutcome{
				Filename: f.Filename,
				Status:   "error",
				Error:    err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, FileOutcome{
			Filename: f.Filename,
			Status:   "ok",
			Segments: result.SegmentCount,
		})
	}

	return outcomes
}

// Delete removes one document and its segments. Unknown filenames surface
// not_found.
func (p *Processor) Delete(ctx context.Context, filename string) (int, error) {
	existing, err := p.db.GetDocumentByFilename(filename)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, apperr.Newf(apperr.KindNotFound, "document not found: %s", filename)
	}

	removed, err := p.remove(ctx, filename)
	if err != nil {
		return 0, err
	}

	p.invalidateAnswers(ctx)
	return removed, nil
}

// Clear drops every document and segment.
func (p *Processor) Clear(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		return err
	}
	if err := p.db.ClearDocuments(); err != nil {
		return err
	}

	p.invalidateAnswers(ctx)
	logger.Info("All documents cleared")
	return nil
}

// List returns every registered document.
func (p *Processor) List() ([]models.Document, error) {
	return p.db.ListDocuments()
}

type Stats struct {
	DocumentCount int   `json:"document_count"`
	SegmentCount  int   `json:"segment_count"`
	VectorCount   int64 `json:"vector_count"`
}

func (p *Processor) Stats(ctx context.Context) (*Stats, error) {
	docs, err := p.db.ListDocuments()
	if err != nil {
		return nil, err
	}

	segments, err := p.db.CountSegments()
	if err != nil {
		return nil, err
	}

	vectors, err := p.store.Count(ctx)
	if err != nil {
		logger.Warn("Vector store count failed", zap.Error(err))
		vectors = -1
	}

	return &Stats{
		DocumentCount: len(docs),
		SegmentCount:  segments,
		VectorCount:   vectors,
	}, nil
}

func (p *Processor) remove(ctx context.Context, filename string) (int, error) {
	removed, err := p.store.DeleteBySource(ctx, filename)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreWriteError, "failed to delete segments for "+filename, err)
	}

	if _, err := p.db.DeleteDocumentByFilename(filename); err != nil {
		return 0, err
	}

	return removed, nil
}

func (p *Processor) invalidateAnswers(ctx context.Context) {
	if p.cache == nil {
		return
	}
	if err := p.cache.InvalidateAnswers(ctx); err != nil {
		logger.Warn("Failed to invalidate answer cache", zap.Error(err))
	}
}

// extractTags pulls the most frequent named entities from the document text.
// Tagging is best-effort metadata; any failure yields empty tags.
func extractTags(text string) string {
	if len(text) > 20000 {
		text = text[:20000]
	}

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		logger.Debug("Entity extraction failed", zap.Error(err))
		return ""
	}

	counts := make(map[string]int)
	for _, ent := range doc.Entities() {
		name := strings.TrimSpace(ent.Text)
		if len(name) < 3 || len(name) > 64 {
			continue
		}
		counts[name]++
	}
	if len(counts) == 0 {
		return ""
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	if len(names) > maxTagEntities {
		names = names[:maxTagEntities]
	}
	return strings.Join(names, ",")
}

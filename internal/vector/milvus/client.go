// Package milvus implements the vector.Store contract on a Milvus/Zilliz
// collection.
package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/vector"
	"github.com/docqa/backend/pkg/apperr"
	"github.com/docqa/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

func NewClient(ctx context.Context, endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	cfg := client.Config{Address: endpoint}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}

	c, err := client.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

// EnsureCollection creates the segment collection and its index when missing.
func (m *Client) EnsureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Document segment embeddings",
		Fields: []*entity.Field{
			{
				Name:       "segment_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "64"},
			},
			{
				Name:       "embedding",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", m.vectorDim)},
			},
			{
				Name:       "text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "4096"},
			},
			{
				Name:       "source_file",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:     "page",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "chunk_index",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:       "tags",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "1024"},
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index spec: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))
	return nil
}

func (m *Client) Upsert(ctx context.Context, segments []vector.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	ids := make([]string, len(segments))
	embeddings := make([][]float32, len(segments))
	texts := make([]string, len(segments))
	sources := make([]string, len(segments))
	pages := make([]int64, len(segments))
	chunkIndexes := make([]int64, len(segments))
	tags := make([]string, len(segments))

	for i, seg := range segments {
		ids[i] = seg.ID
		embeddings[i] = seg.Embedding
		texts[i] = truncate(seg.Text, 4096)
		sources[i] = seg.SourceFile
		pages[i] = int64(seg.Page)
		chunkIndexes[i] = int64(seg.ChunkIndex)
		tags[i] = truncate(seg.Tags, 1024)
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("segment_id", ids),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("source_file", sources),
		entity.NewColumnInt64("page", pages),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("tags", tags),
	)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreWriteError, "failed to insert segments", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreWriteError, "failed to flush", err)
	}

	logger.Info("Segments inserted into vector store", zap.Int("count", len(segments)))
	return nil
}

func (m *Client) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		"",
		[]string{"segment_id", "text", "source_file", "page"},
		[]entity.Vector{entity.FloatVector(embedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreReadError, "failed to search", err)
	}

	matches := make([]vector.Match, 0)
	for _, sr := range searchResult {
		idCol := sr.Fields.GetColumn("segment_id")
		textCol := sr.Fields.GetColumn("text")
		sourceCol := sr.Fields.GetColumn("source_file")
		pageCol := sr.Fields.GetColumn("page")

		for i := 0; i < sr.ResultCount; i++ {
			id, _ := idCol.GetAsString(i)
			text, _ := textCol.GetAsString(i)
			source, _ := sourceCol.GetAsString(i)
			page, _ := pageCol.GetAsInt64(i)

			matches = append(matches, vector.Match{
				ID:         id,
				SourceFile: source,
				Page:       int(page),
				Text:       text,
				Distance:   sr.Scores[i],
			})
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("topK", topK),
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

func (m *Client) DeleteBySource(ctx context.Context, sourceFile string) (int, error) {
	expr := fmt.Sprintf(`source_file == "%s"`, escapeExpr(sourceFile))

	rs, err := m.client.Query(ctx, m.collectionName, nil, expr, []string{"segment_id"})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreReadError, "failed to count segments for "+sourceFile, err)
	}

	removed := 0
	for _, col := range rs {
		if col.Name() == "segment_id" {
			removed = col.Len()
		}
	}
	if removed == 0 {
		return 0, nil
	}

	err = m.client.Delete(ctx, m.collectionName, "", expr)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreWriteError, "failed to delete segments for "+sourceFile, err)
	}

	logger.Info("Segments deleted from vector store",
		zap.String("source_file", sourceFile),
		zap.Int("count", removed),
	)
	return removed, nil
}

func (m *Client) Clear(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return nil
	}

	err = m.client.DropCollection(ctx, m.collectionName)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreWriteError, "failed to drop collection", err)
	}

	return m.EnsureCollection(ctx)
}

func (m *Client) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.collectionName)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindStoreReadError, "failed to get collection statistics", err)
	}

	var count int64
	fmt.Sscanf(stats["row_count"], "%d", &count)
	return count, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func escapeExpr(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

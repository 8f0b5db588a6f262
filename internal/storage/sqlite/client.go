// Package sqlite implements the document registry: which files are ingested,
// how many segments each produced, and the query history.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT UNIQUE NOT NULL,
		format TEXT NOT NULL,
		segment_count INTEGER NOT NULL DEFAULT 0,
		tags TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_filename ON documents(filename);

	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_segments_document ON segments(document_id);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT,
		provider TEXT,
		candidate_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS query_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		source_file TEXT NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		similarity REAL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_query ON query_sources(query_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, filename, format, segment_count, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.Filename,
		doc.Format,
		doc.SegmentCount,
		doc.Tags,
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document inserted", zap.String("doc_id", doc.ID), zap.String("filename", doc.Filename))
	return nil
}

func (c *Client) GetDocumentByFilename(filename string) (*models.Document, error) {
	query := `SELECT id, filename, format, segment_count, tags, created_at, updated_at FROM documents WHERE filename = ?`

	var doc models.Document
	var tags sql.NullString
	var createdAt, updatedAt int64

	err := c.db.QueryRow(query, filename).Scan(
		&doc.ID,
		&doc.Filename,
		&doc.Format,
		&doc.SegmentCount,
		&tags,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.Tags = tags.String
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)
	return &doc, nil
}

func (c *Client) ListDocuments() ([]models.Document, error) {
	query := `SELECT id, filename, format, segment_count, tags, created_at, updated_at FROM documents ORDER BY filename`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		var tags sql.NullString
		var createdAt, updatedAt int64

		err := rows.Scan(&doc.ID, &doc.Filename, &doc.Format, &doc.SegmentCount, &tags, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		doc.Tags = tags.String
		doc.CreatedAt = time.Unix(createdAt, 0)
		doc.UpdatedAt = time.Unix(updatedAt, 0)
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (c *Client) DeleteDocumentByFilename(filename string) (int, error) {
	var docID string
	err := c.db.QueryRow(`SELECT id FROM documents WHERE filename = ?`, filename).Scan(&docID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up document: %w", err)
	}

	var segments int
	err = c.db.QueryRow(`SELECT COUNT(*) FROM segments WHERE document_id = ?`, docID).Scan(&segments)
	if err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}

	_, err = c.db.Exec(`DELETE FROM documents WHERE id = ?`, docID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete document: %w", err)
	}

	logger.Info("Document deleted",
		zap.String("filename", filename),
		zap.Int("segments", segments),
	)
	return segments, nil
}

func (c *Client) ClearDocuments() error {
	_, err := c.db.Exec(`DELETE FROM documents`)
	if err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

func (c *Client) InsertSegment(seg *models.SegmentRecord) error {
	query := `INSERT INTO segments (id, document_id, chunk_index, page, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		seg.ID,
		seg.DocumentID,
		seg.ChunkIndex,
		seg.Page,
		seg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert segment: %w", err)
	}
	return nil
}

func (c *Client) CountSegments() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM segments`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	return count, nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, question, answer, provider, candidate_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.Question,
		record.Answer,
		record.Provider,
		record.CandidateCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("Query recorded", zap.String("query_id", record.ID))
	return nil
}

func (c *Client) InsertQuerySource(source *models.QuerySource) error {
	query := `INSERT INTO query_sources (query_id, source_file, page, similarity) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(query, source.QueryID, source.SourceFile, source.Page, source.Similarity)
	if err != nil {
		return fmt.Errorf("failed to insert query source: %w", err)
	}
	return nil
}

func (c *Client) GetQueryHistory(limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, question, answer, provider, candidate_count, latency_ms, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var answer, provider sql.NullString
		var createdAt int64

		err := rows.Scan(&r.ID, &r.Question, &answer, &provider, &r.CandidateCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.Answer = answer.String
		r.Provider = provider.String
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

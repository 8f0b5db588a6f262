// Package models holds the persisted record types of the document registry.
package models

import "time"

// Document is a named uploaded artifact. Filename is the unique key; deleting
// a document cascades to its segment records.
type Document struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Format       string    `json:"format"`
	SegmentCount int       `json:"segment_count"`
	Tags         string    `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SegmentRecord mirrors one vector-store segment for bookkeeping and stats.
// The vector store holds the embedding; the registry holds provenance.
type SegmentRecord struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Page       int
	CreatedAt  time.Time
}

// QueryRecord is one answered question, kept for the history endpoint.
type QueryRecord struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	Provider       string    `json:"provider"`
	CandidateCount int       `json:"candidate_count"`
	LatencyMS      int       `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuerySource links a query to one grounding segment.
type QuerySource struct {
	QueryID    string
	SourceFile string
	Page       int
	Similarity float64
}

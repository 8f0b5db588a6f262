// Package mcp exposes document search as an MCP tool over stdio, so agent
// runtimes can ground themselves on the same corpus the HTTP API serves.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docqa/backend/internal/retrieval"
)

// Version is the MCP server version.
const Version = "0.1.0"

type Server struct {
	retriever *retrieval.Retriever
	server    *mcp.Server
}

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the question or phrase to search the document corpus for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// SearchResult is one retrieved segment.
type SearchResult struct {
	SourceFile string  `json:"source_file"`
	Page       int     `json:"page,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

func NewServer(retriever *retrieval.Retriever) (*Server, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}

	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: Version,
	}

	s := &Server{
		retriever: retriever,
		server:    mcp.NewServer(impl, nil),
	}

	s.registerTools()

	return s, nil
}

// Run starts the MCP server over stdio. It blocks until the context is
// cancelled or an error occurs.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the ingested documents for segments relevant to a query",
	}, s.handleSearch)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = retrieval.DefaultTopK
	}

	candidates, err := s.retriever.Search(ctx, input.Query, maxResults)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResult, len(candidates)),
		Count:   len(candidates),
	}

	for i, c := range candidates {
		output.Results[i] = SearchResult{
			SourceFile: c.SourceFile,
			Page:       c.Page,
			Text:       c.Text,
			Similarity: c.Similarity,
		}
	}

	return nil, output, nil
}

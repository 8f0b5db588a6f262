// Package query runs the answer pipeline: retrieve, assemble, generate,
// normalize citations, record history.
package query

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/cache/redis"
	"github.com/docqa/backend/internal/citation"
	"github.com/docqa/backend/internal/generation"
	"github.com/docqa/backend/internal/metrics"
	"github.com/docqa/backend/internal/prompt"
	"github.com/docqa/backend/internal/retrieval"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/internal/storage/sqlite"
	"github.com/docqa/backend/internal/validation"
	"github.com/docqa/backend/pkg/logger"
	"github.com/docqa/backend/pkg/utils"
)

// NoGroundingAnswer is returned without calling any provider when retrieval
// finds nothing above the relevance threshold.
const NoGroundingAnswer = "No relevant information was found in the uploaded documents to answer this question."

type Engine struct {
	db           *sqlite.Client
	cache        *redis.Client
	retriever    *retrieval.Retriever
	assembler    *prompt.Assembler
	orchestrator *generation.Orchestrator
	validator    *validation.Validator
	cacheTTL     time.Duration
}

type QueryRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

type QueryResponse struct {
	ID        string                `json:"id"`
	Question  string                `json:"question"`
	Answer    string                `json:"answer"`
	Citations []citation.Citation   `json:"citations"`
	Sources   []retrieval.Candidate `json:"sources"`
	Provider  string                `json:"provider,omitempty"`
	Grounding *validation.Report    `json:"grounding,omitempty"`
	LatencyMS int                   `json:"latency_ms"`
	Cached    bool                  `json:"cached,omitempty"`
}

// StreamEvent is one frame of a streaming answer. Event order is fixed:
// exactly one sources event, zero or more delta events, then exactly one done
// or error event.
type StreamEvent struct {
	Type      string                `json:"type"`
	Sources   []string              `json:"sources,omitempty"`
	Delta     string                `json:"delta,omitempty"`
	Answer    string                `json:"answer,omitempty"`
	Citations []citation.Citation   `json:"citations,omitempty"`
	Provider  string                `json:"provider,omitempty"`
	Error     string                `json:"error,omitempty"`
}

const (
	EventSources = "sources"
	EventDelta   = "delta"
	EventDone    = "done"
	EventError   = "error"
)

func NewEngine(
	db *sqlite.Client,
	cache *redis.Client,
	retriever *retrieval.Retriever,
	assembler *prompt.Assembler,
	orchestrator *generation.Orchestrator,
	validator *validation.Validator,
	cacheTTL time.Duration,
) *Engine {
	return &Engine{
		db:           db,
		cache:        cache,
		retriever:    retriever,
		assembler:    assembler,
		orchestrator: orchestrator,
		validator:    validator,
		cacheTTL:     cacheTTL,
	}
}

// Answer runs the full pipeline and returns a complete response.
func (e *Engine) Answer(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	startTime := time.Now()
	queryID := uuid.New().String()

	logger.Info("Processing query",
		zap.String("query_id", queryID),
		zap.Int("question_length", len(req.Question)),
	)

	questionHash := utils.HashString(req.Question)
	if e.cache != nil {
		var cached QueryResponse
		hit, err := e.cache.GetAnswer(ctx, questionHash, &cached)
		if err != nil {
			logger.Warn("Answer cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("answer").Inc()
			cached.Cached = true
			return &cached, nil
		}
		metrics.CacheMisses.WithLabelValues("answer").Inc()
	}

	candidates, err := e.retriever.Search(ctx, req.Question, req.TopK)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("retrieval_error").Inc()
		return nil, err
	}
	metrics.RetrievalCandidates.Observe(float64(len(candidates)))

	resp := &QueryResponse{
		ID:       queryID,
		Question: req.Question,
		Sources:  candidates,
	}

	if len(candidates) == 0 {
		// No grounding: answer deterministically without spending provider calls.
		resp.Answer = NoGroundingAnswer
		resp.Citations = []citation.Citation{}
		resp.LatencyMS = int(time.Since(startTime).Milliseconds())
		metrics.QueryTotal.WithLabelValues("no_grounding").Inc()
		e.recordHistory(queryID, req.Question, resp.Answer, "", candidates, resp.LatencyMS)
		return resp, nil
	}

	promptText := e.assembler.Build(candidates, req.Question)

	answer, provider, err := e.orchestrator.Complete(ctx, promptText)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("generation_error").Inc()
		return nil, err
	}
	metrics.ProviderAnswers.WithLabelValues(provider).Inc()

	resp.Answer = answer
	resp.Provider = provider
	resp.Citations = citation.Normalize(prompt.Labels(candidates))

	if e.validator != nil {
		report, err := e.validator.Validate(ctx, answer, candidates)
		if err != nil {
			logger.Warn("Answer validation failed", zap.Error(err))
		} else {
			resp.Grounding = report
		}
	}

	resp.LatencyMS = int(time.Since(startTime).Milliseconds())

	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.WithLabelValues("complete").Observe(time.Since(startTime).Seconds())

	e.recordHistory(queryID, req.Question, answer, provider, candidates, resp.LatencyMS)

	if e.cache != nil {
		if err := e.cache.SetAnswer(ctx, questionHash, resp, e.cacheTTL); err != nil {
			logger.Warn("Failed to cache answer", zap.Error(err))
		}
	}

	logger.Info("Query processed",
		zap.String("query_id", queryID),
		zap.String("provider", provider),
		zap.Int("candidates", len(candidates)),
		zap.Int("latency_ms", resp.LatencyMS),
	)

	return resp, nil
}

// Stream runs the pipeline and emits events on the returned channel. The
// channel is closed after the terminal done or error event. Provider fallback
// happens only before the first delta; once text has been streamed a provider
// failure terminates the stream with an error event.
func (e *Engine) Stream(ctx context.Context, req QueryRequest) <-chan StreamEvent {
	events := make(chan StreamEvent, 16)

	go func() {
		defer close(events)
		startTime := time.Now()
		queryID := uuid.New().String()

		// A consumer that cancelled and walked away never drains the channel,
		// so every send must also watch ctx.
		send := func(ev StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		candidates, err := e.retriever.Search(ctx, req.Question, req.TopK)
		if err != nil {
			metrics.QueryTotal.WithLabelValues("retrieval_error").Inc()
			send(StreamEvent{Type: EventError, Error: err.Error()})
			return
		}
		metrics.RetrievalCandidates.Observe(float64(len(candidates)))

		labels := prompt.Labels(candidates)
		if !send(StreamEvent{Type: EventSources, Sources: labels}) {
			return
		}

		if len(candidates) == 0 {
			if !send(StreamEvent{Type: EventDelta, Delta: NoGroundingAnswer}) {
				return
			}
			send(StreamEvent{
				Type:      EventDone,
				Answer:    NoGroundingAnswer,
				Citations: []citation.Citation{},
			})
			metrics.QueryTotal.WithLabelValues("no_grounding").Inc()
			latency := int(time.Since(startTime).Milliseconds())
			e.recordHistory(queryID, req.Question, NoGroundingAnswer, "", candidates, latency)
			return
		}

		promptText := e.assembler.Build(candidates, req.Question)

		stream, provider, err := e.orchestrator.Stream(ctx, promptText)
		if err != nil {
			metrics.QueryTotal.WithLabelValues("generation_error").Inc()
			send(StreamEvent{Type: EventError, Error: err.Error()})
			return
		}
		defer stream.Close()

		var answer []byte
		for {
			delta, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				logger.Warn("Stream interrupted",
					zap.String("query_id", queryID),
					zap.String("provider", provider),
					zap.Error(err),
				)
				metrics.QueryTotal.WithLabelValues("stream_error").Inc()
				send(StreamEvent{Type: EventError, Error: err.Error()})
				return
			}

			answer = append(answer, delta...)
			if !send(StreamEvent{Type: EventDelta, Delta: delta}) {
				return
			}
		}

		metrics.ProviderAnswers.WithLabelValues(provider).Inc()
		metrics.QueryTotal.WithLabelValues("success").Inc()
		metrics.QueryDuration.WithLabelValues("stream").Observe(time.Since(startTime).Seconds())

		latency := int(time.Since(startTime).Milliseconds())
		e.recordHistory(queryID, req.Question, string(answer), provider, candidates, latency)

		send(StreamEvent{
			Type:      EventDone,
			Answer:    string(answer),
			Citations: citation.Normalize(labels),
			Provider:  provider,
		})
	}()

	return events
}

// History returns the most recent answered queries.
func (e *Engine) History(limit int) ([]models.QueryRecord, error) {
	return e.db.GetQueryHistory(limit)
}

// recordHistory persists the query outcome. History is best-effort; a write
// failure never fails the query itself.
func (e *Engine) recordHistory(queryID, question, answer, provider string, candidates []retrieval.Candidate, latencyMS int) {
	record := &models.QueryRecord{
		ID:             queryID,
		Question:       question,
		Answer:         answer,
		Provider:       provider,
		CandidateCount: len(candidates),
		LatencyMS:      latencyMS,
		CreatedAt:      time.Now(),
	}

	if err := e.db.InsertQueryRecord(record); err != nil {
		logger.Warn("Failed to record query", zap.Error(err))
		return
	}

	for _, c := range candidates {
		err := e.db.InsertQuerySource(&models.QuerySource{
			QueryID:    queryID,
			SourceFile: c.SourceFile,
			Page:       c.Page,
			Similarity: c.Similarity,
		})
		if err != nil {
			logger.Warn("Failed to record query source", zap.Error(err))
		}
	}
}

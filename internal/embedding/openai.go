package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/cache/redis"
	"github.com/docqa/backend/pkg/apperr"
	"github.com/docqa/backend/pkg/circuitbreaker"
	"github.com/docqa/backend/pkg/logger"
	"github.com/docqa/backend/pkg/retry"
	"github.com/docqa/backend/pkg/utils"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Calls are
// wrapped in a circuit breaker and retried with backoff; an optional Redis
// cache short-circuits repeated texts.
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dimension   int
	cache       *redis.Client
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, dimension int, cache *redis.Client) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	cb := circuitbreaker.NewCircuitBreaker("embedding", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Embedder initialized",
		zap.String("model", model),
		zap.Int("dimension", dimension),
	)

	return &OpenAIEmbedder{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		dimension:   dimension,
		cache:       cache,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if cached, ok, err := e.cache.GetEmbedding(ctx, utils.HashString(text)); err == nil && ok {
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := e.cb.Execute(ctx, func() error {
		return retry.Do(ctx, e.retryConfig, func() error {
			resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: openai.EmbeddingModel(e.model),
			})
			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("embedding response contained no data")
			}

			embedding = append([]float32(nil), resp.Data[0].Embedding...)
			return nil
		})
	})

	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbeddingError, "embedding request failed", err)
	}

	if e.cache != nil {
		e.cache.SetEmbedding(ctx, utils.HashString(text), embedding, 24*time.Hour)
	}

	return embedding, nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	embeddings := make([][]float32, 0, len(texts))

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		err := e.cb.Execute(ctx, func() error {
			return retry.Do(ctx, e.retryConfig, func() error {
				resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
					Input: batch,
					Model: openai.EmbeddingModel(e.model),
				})
				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}
				if len(resp.Data) != len(batch) {
					return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(resp.Data), len(batch))
				}

				for _, data := range resp.Data {
					embeddings = append(embeddings, append([]float32(nil), data.Embedding...))
				}
				return nil
			})
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindEmbeddingError, "batch embedding request failed", err)
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

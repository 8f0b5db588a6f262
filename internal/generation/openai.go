package generation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/docqa/backend/pkg/logger"
)

// OpenAICompatProvider talks to any chat endpoint speaking the OpenAI wire
// format. Gemini and OpenRouter are reached through their OpenAI-compatible
// endpoints, so one implementation covers the whole fallback chain.
type OpenAICompatProvider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

type ProviderOptions struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

func NewOpenAICompatProvider(opts ProviderOptions) *OpenAICompatProvider {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	logger.Info("Generation provider initialized",
		zap.String("provider", opts.Name),
		zap.String("model", opts.Model),
	)

	return &OpenAICompatProvider{
		name:        opts.Name,
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     timeout,
	}
}

func (p *OpenAICompatProvider) Name() string {
	return p.name
}

func (p *OpenAICompatProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("completion response was empty")
	}

	logger.Debug("Completion generated",
		zap.String("provider", p.name),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return content, nil
}

func (p *OpenAICompatProvider) Stream(ctx context.Context, prompt string) (TokenStream, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Stream:      true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	return &chatStream{stream: stream, cancel: cancel}, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

func (s *chatStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			if err == io.EOF {
				return "", io.EOF
			}
			return "", fmt.Errorf("stream receive failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		return delta, nil
	}
}

func (s *chatStream) Close() error {
	s.cancel()
	return s.stream.Close()
}

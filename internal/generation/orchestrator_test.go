package generation

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docqa/backend/pkg/apperr"
)

type fakeStream struct {
	tokens []string
	pos    int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeProvider struct {
	name     string
	answer   string
	err      error
	attempts int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(_ context.Context, _ string) (string, error) {
	p.attempts++
	if p.err != nil {
		return "", p.err
	}
	return p.answer, nil
}

func (p *fakeProvider) Stream(_ context.Context, _ string) (TokenStream, error) {
	p.attempts++
	if p.err != nil {
		return nil, p.err
	}
	return &fakeStream{tokens: []string{p.answer}}, nil
}

func TestComplete_FirstProviderWins(t *testing.T) {
	a := &fakeProvider{name: "a", answer: "from a"}
	b := &fakeProvider{name: "b", answer: "from b"}
	o := NewOrchestrator([]Provider{a, b}, nil)

	answer, provider, err := o.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from a", answer)
	assert.Equal(t, "a", provider)
	assert.Equal(t, 1, a.attempts)
	assert.Zero(t, b.attempts)
}

func TestComplete_FallsBackLaterally(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("rate limited")}
	b := &fakeProvider{name: "b", answer: "from b"}

	var fallbacks [][2]string
	o := NewOrchestrator([]Provider{a, b}, func(from, to string) {
		fallbacks = append(fallbacks, [2]string{from, to})
	})

	answer, provider, err := o.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from b", answer)
	assert.Equal(t, "b", provider)
	require.Len(t, fallbacks, 1)
	assert.Equal(t, [2]string{"a", "b"}, fallbacks[0])
}

func TestComplete_AllProvidersFail(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	b := &fakeProvider{name: "b", err: errors.New("also down")}
	o := NewOrchestrator([]Provider{a, b}, nil)

	_, _, err := o.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAllProvidersFailed))

	// Each provider is attempted exactly once, never retried.
	assert.Equal(t, 1, a.attempts)
	assert.Equal(t, 1, b.attempts)
}

func TestComplete_NoProviders(t *testing.T) {
	o := NewOrchestrator(nil, nil)

	_, _, err := o.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAllProvidersFailed))
}

func TestComplete_CancelledContext(t *testing.T) {
	a := &fakeProvider{name: "a", answer: "unused"}
	o := NewOrchestrator([]Provider{a}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := o.Complete(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, a.attempts)
}

func TestStream_FallsBackBeforeFirstToken(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("refused")}
	b := &fakeProvider{name: "b", answer: "streamed"}
	o := NewOrchestrator([]Provider{a, b}, nil)

	stream, provider, err := o.Stream(context.Background(), "prompt")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "b", provider)

	tok, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "streamed", tok)

	_, err = stream.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStream_AllProvidersFail(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("down")}
	o := NewOrchestrator([]Provider{a}, nil)

	_, _, err := o.Stream(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAllProvidersFailed))
	assert.Equal(t, 1, a.attempts)
}

func TestProviders_NamesInOrder(t *testing.T) {
	o := NewOrchestrator([]Provider{
		&fakeProvider{name: "gemini"},
		&fakeProvider{name: "openrouter"},
	}, nil)

	assert.Equal(t, []string{"gemini", "openrouter"}, o.Providers())
}

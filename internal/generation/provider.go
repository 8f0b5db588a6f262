// Package generation owns the ordered list of text-generation providers and
// the fallback logic between them.
package generation

import "context"

// TokenStream is an ordered sequence of text increments from one provider
// call. Recv returns io.EOF after the final increment. Close releases the
// underlying subscription and must be safe to call at any point.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Provider is one generation backend. A provider either returns a complete
// answer or an incremental stream; any transport error, rate limit, timeout or
// empty response is reported as an error so the orchestrator can fall back.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (TokenStream, error)
}

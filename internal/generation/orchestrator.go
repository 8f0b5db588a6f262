package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docqa/backend/pkg/apperr"
	"github.com/docqa/backend/pkg/logger"
)

// Orchestrator walks an ordered provider list. Fallback is lateral only: each
// provider is attempted at most once per query, never retried, so worst-case
// latency is bounded by the sum of provider timeouts.
type Orchestrator struct {
	providers  []Provider
	onFallback func(from, to string)
}

func NewOrchestrator(providers []Provider, onFallback func(from, to string)) *Orchestrator {
	return &Orchestrator{
		providers:  providers,
		onFallback: onFallback,
	}
}

// Providers returns the configured provider names in attempt order.
func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete sends the prompt to providers in order until one returns a
// non-empty answer. Exhausting the list surfaces all_providers_failed.
func (o *Orchestrator) Complete(ctx context.Context, prompt string) (string, string, error) {
	if len(o.providers) == 0 {
		return "", "", apperr.New(apperr.KindAllProvidersFailed, "no generation providers configured")
	}

	var failures []string

	for i, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		answer, err := p.Complete(ctx, prompt)
		if err == nil {
			return answer, p.Name(), nil
		}

		logger.Warn("Provider attempt failed",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
		failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))

		if i < len(o.providers)-1 && o.onFallback != nil {
			o.onFallback(p.Name(), o.providers[i+1].Name())
		}
	}

	return "", "", apperr.New(apperr.KindAllProvidersFailed,
		"all generation providers failed: "+strings.Join(failures, "; "))
}

// Stream opens a token stream from the first provider that accepts the
// request. Failures before any token advance to the next provider; once a
// stream is open the caller owns it.
func (o *Orchestrator) Stream(ctx context.Context, prompt string) (TokenStream, string, error) {
	if len(o.providers) == 0 {
		return nil, "", apperr.New(apperr.KindAllProvidersFailed, "no generation providers configured")
	}

	var failures []string

	for i, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		stream, err := p.Stream(ctx, prompt)
		if err == nil {
			return stream, p.Name(), nil
		}

		logger.Warn("Provider stream attempt failed",
			zap.String("provider", p.Name()),
			zap.Error(err),
		)
		failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))

		if i < len(o.providers)-1 && o.onFallback != nil {
			o.onFallback(p.Name(), o.providers[i+1].Name())
		}
	}

	return nil, "", apperr.New(apperr.KindAllProvidersFailed,
		"all generation providers failed: "+strings.Join(failures, "; "))
}

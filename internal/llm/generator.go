// Package llm provides text generation providers used to condense follow-up questions and
// to answer from retrieved context.
package llm

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single generation request when none is configured.
const DefaultTimeout = 120 * time.Second

// Generator produces a completion for a prompt. Implementations must fail explicitly rather
// than return an empty string on error, and must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// Options holds sampling settings shared by all providers.
type Options struct {
	Temperature float64
	MaxTokens   int // 0 leaves the provider default
	Timeout     time.Duration
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

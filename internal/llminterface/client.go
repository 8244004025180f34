package llminterface

import (
	"context"
	"errors"
)

// ErrUpstreamHTTP marks a completion request the provider answered with a
// failure status.
var ErrUpstreamHTTP = errors.New("upstream http error")

// CompletionOptions are the per-request sampling settings.
type CompletionOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Completer sends a message list to a language model and returns the
// generated text.
type Completer interface {
	Complete(ctx context.Context, messages MessageList, opts CompletionOptions) (string, error)
}

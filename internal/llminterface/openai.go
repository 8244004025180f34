package llminterface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/metrics"
)

const (
	DefaultAPIBase = "https://api.groq.com/openai/v1"
	DefaultTimeout = 60 * time.Second
)

// OpenAIClient talks to any OpenAI compatible chat completions endpoint
// using a bearer credential.
type OpenAIClient struct {
	client  *openai.Client
	apiBase string
	timeout time.Duration
	log     *logger.Logger
}

func NewOpenAIClient(apiKey, apiBase string, timeout time.Duration) *OpenAIClient {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = apiBase
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		apiBase: apiBase,
		timeout: timeout,
		log:     logger.Named("llm"),
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, messages MessageList, opts CompletionOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.log.Debugw("completion request", "model", opts.Model, "messages", len(messages), "base", c.apiBase)

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    ConvertMessagesToOpenAI(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	metrics.ObserveCompletion(opts.Model, started, err)
	if err != nil {
		return "", classifyError(err)
	}

	text, ok := ConvertOpenAIResponseToText(resp)
	if !ok {
		return "", fmt.Errorf("completion response has no choices")
	}

	c.log.Debugw("completion response", "id", resp.ID, "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return text, nil
}

func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrUpstreamHTTP, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %s", ErrUpstreamHTTP, reqErr.HTTPStatusCode, reqErr.Error())
	}

	return fmt.Errorf("failed to make completion request: %w", err)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when the context or message does not exist.
var ErrNotFound = errors.New("not found")

// Client is the API client for the memory service
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateContext creates a new, empty conversation context and returns its id
func (c *Client) CreateContext(ctx context.Context) (string, error) {
	var resp ContextResponse
	if err := c.do(ctx, http.MethodPost, "/contexts", nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// AddMessage appends a message to the context
func (c *Client) AddMessage(ctx context.Context, contextID string, msg MessageRequest) (*Message, error) {
	var stored Message
	if err := c.do(ctx, http.MethodPost, contextPath(contextID, "messages"), msg, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListMessages returns the messages of the context in insertion order
func (c *Client) ListMessages(ctx context.Context, contextID string) ([]Message, error) {
	var resp MessagesResponse
	if err := c.do(ctx, http.MethodGet, contextPath(contextID, "messages"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// DeleteMessage removes one message. It reports false when the message did
// not exist.
func (c *Client) DeleteMessage(ctx context.Context, contextID, messageID string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, contextPath(contextID, "messages", messageID), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteContext removes a context with all its messages. It reports false
// when the context did not exist.
func (c *Client) DeleteContext(ctx context.Context, contextID string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, contextPath(contextID), nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RunCompletion asks the service to complete the stored history and append
// the answer to the context
func (c *Client) RunCompletion(ctx context.Context, contextID string, request CompletionRequest) (*Message, error) {
	var resp CompletionResponse
	if err := c.do(ctx, http.MethodPost, contextPath(contextID, "completion"), request, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// GetHealth checks the health of the service
func (c *Client) GetHealth(ctx context.Context) (*HealthStatus, error) {
	var health HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		return nil, fmt.Errorf("service unhealthy: %w", err)
	}
	return &health, nil
}

// SetTimeout sets the HTTP client timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func contextPath(contextID string, parts ...string) string {
	segments := []string{"contexts", url.PathEscape(contextID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return "/" + strings.Join(segments, "/")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/utils"
	"github.com/cugtyt/agentloop/pkg/api"
)

// Conversation is the ordered, append-only message history of a session.
type Conversation interface {
	ID() string
	Append(ctx context.Context, msg llminterface.Message) error
	Messages(ctx context.Context) (llminterface.MessageList, error)
}

// MemoryConversation keeps the history in process.
type MemoryConversation struct {
	id       string
	mu       sync.Mutex
	messages llminterface.MessageList
}

func NewMemoryConversation(prior ...llminterface.Message) *MemoryConversation {
	c := &MemoryConversation{id: utils.NewContextID()}
	c.messages = append(c.messages, prior...)
	return c
}

func (c *MemoryConversation) ID() string { return c.id }

func (c *MemoryConversation) Append(ctx context.Context, msg llminterface.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	return nil
}

func (c *MemoryConversation) Messages(ctx context.Context) (llminterface.MessageList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(llminterface.MessageList, len(c.messages))
	copy(out, c.messages)
	return out, nil
}

// RemoteConversation stores the history in a memory service context and
// refers to it only by id.
type RemoteConversation struct {
	id     string
	client *api.Client
}

// NewRemoteConversation creates a fresh context on the memory service.
func NewRemoteConversation(ctx context.Context, client *api.Client) (*RemoteConversation, error) {
	id, err := client.CreateContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return &RemoteConversation{id: id, client: client}, nil
}

// ResumeRemoteConversation attaches to an existing context.
func ResumeRemoteConversation(id string, client *api.Client) *RemoteConversation {
	return &RemoteConversation{id: id, client: client}
}

func (c *RemoteConversation) ID() string { return c.id }

func (c *RemoteConversation) Append(ctx context.Context, msg llminterface.Message) error {
	_, err := c.client.AddMessage(ctx, c.id, api.MessageRequest{
		Role:    msg.Role,
		Content: msg.Content,
		Name:    msg.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to add message to context %s: %w", c.id, err)
	}
	return nil
}

func (c *RemoteConversation) Messages(ctx context.Context) (llminterface.MessageList, error) {
	stored, err := c.client.ListMessages(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of context %s: %w", c.id, err)
	}

	out := make(llminterface.MessageList, 0, len(stored))
	for _, m := range stored {
		out = append(out, llminterface.Message{Role: m.Role, Content: m.Content, Name: m.Name})
	}
	return out, nil
}

// Package store persists conversation contexts for the memory service.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cugtyt/agentloop/internal/llminterface"
)

var (
	ErrContextNotFound = errors.New("context not found")
	ErrMessageNotFound = errors.New("message not found")
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultMaxMessages = 200
)

// StoredMessage is a conversation message with the id and time the store
// assigned to it.
type StoredMessage struct {
	ID string `json:"id"`
	llminterface.Message
	CreatedAt time.Time `json:"created_at"`
}

type Context struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps one ordered, append-only message list per context. Only the
// newest MaxMessages messages are retained, plus a leading system message.
type Store interface {
	CreateContext(ctx context.Context) (Context, error)
	Exists(ctx context.Context, contextID string) (bool, error)
	AddMessage(ctx context.Context, contextID string, msg llminterface.Message) (StoredMessage, error)
	ListMessages(ctx context.Context, contextID string) ([]StoredMessage, error)
	DeleteMessage(ctx context.Context, contextID, messageID string) error
	DeleteContext(ctx context.Context, contextID string) error
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	TTL         time.Duration
	MaxMessages int64
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	return o
}

// Messages strips store metadata off a stored history.
func Messages(stored []StoredMessage) llminterface.MessageList {
	out := make(llminterface.MessageList, 0, len(stored))
	for _, m := range stored {
		out = append(out, m.Message)
	}
	return out
}

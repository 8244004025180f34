package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/utils"
)

// MemoryStore is a process-local Store. Contexts expire after the TTL
// since their last write.
type MemoryStore struct {
	mu       sync.RWMutex
	opts     Options
	contexts map[string]*memoryContext
	now      func() time.Time
}

type memoryContext struct {
	info      Context
	messages  []StoredMessage
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		opts:     opts.withDefaults(),
		contexts: make(map[string]*memoryContext),
		now:      time.Now,
	}
}

func (ms *MemoryStore) CreateContext(ctx context.Context) (Context, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now().UTC()
	c := Context{ID: utils.NewContextID(), CreatedAt: now}
	ms.contexts[c.ID] = &memoryContext{info: c, expiresAt: now.Add(ms.opts.TTL)}
	return c, nil
}

// lookup must be called with the lock held.
func (ms *MemoryStore) lookup(contextID string) (*memoryContext, error) {
	c, ok := ms.contexts[contextID]
	if !ok || ms.now().After(c.expiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrContextNotFound, contextID)
	}
	return c, nil
}

func (ms *MemoryStore) Exists(ctx context.Context, contextID string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, err := ms.lookup(contextID)
	return err == nil, nil
}

func (ms *MemoryStore) AddMessage(ctx context.Context, contextID string, msg llminterface.Message) (StoredMessage, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	c, err := ms.lookup(contextID)
	if err != nil {
		return StoredMessage{}, err
	}

	now := ms.now().UTC()
	stored := StoredMessage{ID: utils.NewMessageID(), Message: msg, CreatedAt: now}
	c.messages = trim(append(c.messages, stored), ms.opts.MaxMessages)
	c.expiresAt = now.Add(ms.opts.TTL)

	return stored, nil
}

func (ms *MemoryStore) ListMessages(ctx context.Context, contextID string) ([]StoredMessage, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	c, err := ms.lookup(contextID)
	if err != nil {
		return nil, err
	}

	out := make([]StoredMessage, len(c.messages))
	copy(out, c.messages)
	return out, nil
}

func (ms *MemoryStore) DeleteMessage(ctx context.Context, contextID, messageID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	c, err := ms.lookup(contextID)
	if err != nil {
		return err
	}

	for i, m := range c.messages {
		if m.ID == messageID {
			c.messages = append(c.messages[:i:i], c.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
}

func (ms *MemoryStore) DeleteContext(ctx context.Context, contextID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, err := ms.lookup(contextID); err != nil {
		return err
	}
	delete(ms.contexts, contextID)
	return nil
}

// trim keeps the newest limit messages. A leading system message is kept
// and the messages after it are dropped instead.
func trim(messages []StoredMessage, limit int64) []StoredMessage {
	overflow := int64(len(messages)) - limit
	if overflow <= 0 {
		return messages
	}

	if limit > 1 && messages[0].Role == llminterface.RoleSystem {
		out := make([]StoredMessage, 0, limit)
		out = append(out, messages[0])
		return append(out, messages[overflow+1:]...)
	}
	return append([]StoredMessage(nil), messages[overflow:]...)
}

func (ms *MemoryStore) Ping(ctx context.Context) error { return nil }

func (ms *MemoryStore) Close() error { return nil }

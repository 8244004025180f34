package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/utils"
)

// trimScript keeps the newest ARGV[1] entries of KEYS[1]. A leading system
// message is kept in place and the entries right after it are dropped.
var trimScript = `
local n = redis.call('LLEN', KEYS[1])
local max = tonumber(ARGV[1])
if n <= max then return 0 end
local drop = n - max
local head = redis.call('LINDEX', KEYS[1], 0)
local ok, decoded = pcall(cjson.decode, head)
if ok and type(decoded) == 'table' and decoded.role == ARGV[2] and max > 1 then
	redis.call('LSET', KEYS[1], drop, head)
	redis.call('LTRIM', KEYS[1], drop, -1)
else
	redis.call('LTRIM', KEYS[1], -max, -1)
end
return drop
`

// ContextStore keeps contexts in Redis: a hash per context and a list of
// JSON encoded messages next to it.
type ContextStore struct {
	redis *RedisClient
	opts  Options
}

var _ Store = (*ContextStore)(nil)

func NewContextStore(ctx context.Context, redisURL string, opts Options) (*ContextStore, error) {
	redisClient, err := NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return &ContextStore{
		redis: redisClient,
		opts:  opts.withDefaults(),
	}, nil
}

func (cs *ContextStore) contextKey(contextID string) string {
	return fmt.Sprintf("context:%s", contextID)
}

func (cs *ContextStore) messagesKey(contextID string) string {
	return fmt.Sprintf("context:%s:messages", contextID)
}

func (cs *ContextStore) CreateContext(ctx context.Context) (Context, error) {
	c := Context{ID: utils.NewContextID(), CreatedAt: time.Now().UTC()}

	if err := cs.redis.HSetWithExpire(ctx, cs.contextKey(c.ID), cs.opts.TTL,
		"id", c.ID,
		"created_at", c.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Context{}, fmt.Errorf("failed to create context: %w", err)
	}

	return c, nil
}

func (cs *ContextStore) Exists(ctx context.Context, contextID string) (bool, error) {
	n, err := cs.redis.Exists(ctx, cs.contextKey(contextID))
	if err != nil {
		return false, fmt.Errorf("failed to check if context exists: %w", err)
	}
	return n > 0, nil
}

func (cs *ContextStore) requireContext(ctx context.Context, contextID string) error {
	exists, err := cs.Exists(ctx, contextID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrContextNotFound, contextID)
	}
	return nil
}

func (cs *ContextStore) AddMessage(ctx context.Context, contextID string, msg llminterface.Message) (StoredMessage, error) {
	if err := cs.requireContext(ctx, contextID); err != nil {
		return StoredMessage{}, err
	}

	stored := StoredMessage{
		ID:        utils.NewMessageID(),
		Message:   msg,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return StoredMessage{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	key := cs.messagesKey(contextID)
	pipe := cs.redis.GetClient().TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Eval(ctx, trimScript, []string{key}, cs.opts.MaxMessages, llminterface.RoleSystem)
	pipe.Expire(ctx, key, cs.opts.TTL)
	pipe.Expire(ctx, cs.contextKey(contextID), cs.opts.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return StoredMessage{}, fmt.Errorf("failed to add message: %w", err)
	}

	return stored, nil
}

func (cs *ContextStore) ListMessages(ctx context.Context, contextID string) ([]StoredMessage, error) {
	if err := cs.requireContext(ctx, contextID); err != nil {
		return nil, err
	}

	raw, err := cs.redis.GetClient().LRange(ctx, cs.messagesKey(contextID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]StoredMessage, 0, len(raw))
	for _, item := range raw {
		var msg StoredMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (cs *ContextStore) DeleteMessage(ctx context.Context, contextID, messageID string) error {
	if err := cs.requireContext(ctx, contextID); err != nil {
		return err
	}

	key := cs.messagesKey(contextID)
	raw, err := cs.redis.GetClient().LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get messages: %w", err)
	}

	for _, item := range raw {
		var msg StoredMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil || msg.ID != messageID {
			continue
		}

		removed, err := cs.redis.GetClient().LRem(ctx, key, 1, item).Result()
		if err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		if removed == 0 {
			break
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
}

// DeleteContext removes a context and its messages.
func (cs *ContextStore) DeleteContext(ctx context.Context, contextID string) error {
	if err := cs.requireContext(ctx, contextID); err != nil {
		return err
	}
	if err := cs.redis.Del(ctx, cs.contextKey(contextID), cs.messagesKey(contextID)); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}
	return nil
}

func (cs *ContextStore) Ping(ctx context.Context) error {
	return cs.redis.Ping(ctx)
}

func (cs *ContextStore) Close() error {
	return cs.redis.Close()
}

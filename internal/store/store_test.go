package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cugtyt/agentloop/internal/llminterface"
)

func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	c, err := s.CreateContext(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)

	exists, err := s.Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	first, err := s.AddMessage(ctx, c.ID, llminterface.NewUserMessage("hello"))
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, c.ID, llminterface.NewToolMessage("get_docs", "docs"))
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, c.ID, llminterface.NewAssistantMessage("hi"))
	require.NoError(t, err)

	messages, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, llminterface.MessageList{
		llminterface.NewUserMessage("hello"),
		llminterface.NewToolMessage("get_docs", "docs"),
		llminterface.NewAssistantMessage("hi"),
	}, Messages(messages))

	require.NoError(t, s.DeleteMessage(ctx, c.ID, first.ID))
	assert.ErrorIs(t, s.DeleteMessage(ctx, c.ID, first.ID), ErrMessageNotFound)

	messages, err = s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, llminterface.RoleTool, messages[0].Role)

	_, err = s.ListMessages(ctx, "missing")
	assert.ErrorIs(t, err, ErrContextNotFound)
	_, err = s.AddMessage(ctx, "missing", llminterface.NewUserMessage("x"))
	assert.ErrorIs(t, err, ErrContextNotFound)

	require.NoError(t, s.DeleteContext(ctx, c.ID))
	exists, err = s.Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = s.ListMessages(ctx, c.ID)
	assert.ErrorIs(t, err, ErrContextNotFound)
	assert.ErrorIs(t, s.DeleteContext(ctx, c.ID), ErrContextNotFound)
}

// runTrimContract expects a store that keeps at most limit messages.
func runTrimContract(t *testing.T, s Store, limit int) {
	ctx := context.Background()

	c, err := s.CreateContext(ctx)
	require.NoError(t, err)

	_, err = s.AddMessage(ctx, c.ID, llminterface.NewSystemMessage("instruction"))
	require.NoError(t, err)
	for i := 0; i < limit+3; i++ {
		_, err := s.AddMessage(ctx, c.ID, llminterface.NewUserMessage(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	messages, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, limit)
	assert.Equal(t, llminterface.NewSystemMessage("instruction"), messages[0].Message)
	assert.Equal(t, "4", messages[1].Content)
	assert.Equal(t, fmt.Sprint(limit+2), messages[limit-1].Content)
	assert.True(t, Messages(messages).HasSystem())
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore(Options{}))
}

func TestMemoryStoreKeepsNewestMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Options{MaxMessages: 3})

	c, err := s.CreateContext(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.AddMessage(ctx, c.ID, llminterface.NewUserMessage(fmt.Sprint(i)))
		require.NoError(t, err)
	}

	messages, err := s.ListMessages(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "2", messages[0].Content)
	assert.Equal(t, "4", messages[2].Content)
}

func TestMemoryStorePinsSystemInstruction(t *testing.T) {
	runTrimContract(t, NewMemoryStore(Options{MaxMessages: 4}), 4)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Options{TTL: time.Minute})
	now := time.Now()
	s.now = func() time.Time { return now }

	c, err := s.CreateContext(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	exists, err := s.Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestContextStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	s, err := NewContextStore(context.Background(), url, Options{TTL: time.Minute, MaxMessages: 10})
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
	runTrimContract(t, s, 10)
}

package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cugtyt/agentloop/internal/eventbus"
	"github.com/cugtyt/agentloop/internal/events"
	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/store"
	"github.com/cugtyt/agentloop/pkg/api"
)

type stubCompleter struct {
	reply    string
	err      error
	messages llminterface.MessageList
	opts     llminterface.CompletionOptions
}

func (s *stubCompleter) Complete(ctx context.Context, messages llminterface.MessageList, opts llminterface.CompletionOptions) (string, error) {
	s.messages = messages
	s.opts = opts
	return s.reply, s.err
}

type recordingBus struct {
	subjects []string
}

func (b *recordingBus) Emit(event eventbus.Event) error {
	b.subjects = append(b.subjects, event.Subject())
	return nil
}

func newTestHandler(completer llminterface.Completer) (http.Handler, *recordingBus) {
	bus := &recordingBus{}
	h := NewHandler(store.NewMemoryStore(store.Options{}), completer,
		llminterface.CompletionOptions{Model: "llama3-70b-8192", Temperature: 0.7, MaxTokens: 1000}, bus)
	return h.Router(), bus
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createContext(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := do(t, h, http.MethodPost, "/contexts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp api.ContextResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestMessageLifecycle(t *testing.T) {
	h, bus := newTestHandler(nil)
	id := createContext(t, h)

	rec := do(t, h, http.MethodPost, "/contexts/"+id+"/messages", api.MessageRequest{Role: "user", Content: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var first api.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, "hello", first.Content)

	rec = do(t, h, http.MethodPost, "/contexts/"+id+"/messages", api.MessageRequest{Role: "tool", Name: "get_docs", Content: "docs"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/contexts/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Messages, 2)
	assert.Equal(t, "user", list.Messages[0].Role)
	assert.Equal(t, "get_docs", list.Messages[1].Name)

	rec = do(t, h, http.MethodDelete, "/contexts/"+id+"/messages/"+first.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/contexts/"+id+"/messages/"+first.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, []string{
		events.ContextCreateEventName,
		events.MessageAddEventName,
		events.MessageAddEventName,
		events.MessageDeleteEventName,
	}, bus.subjects)
}

func TestDeleteContext(t *testing.T) {
	h, bus := newTestHandler(nil)
	id := createContext(t, h)

	rec := do(t, h, http.MethodPost, "/contexts/"+id+"/messages", api.MessageRequest{Role: "user", Content: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodDelete, "/contexts/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/contexts/"+id+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodDelete, "/contexts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, events.ContextDeleteEventName, bus.subjects[len(bus.subjects)-1])
}

func TestAddMessageValidation(t *testing.T) {
	h, _ := newTestHandler(nil)
	id := createContext(t, h)

	rec := do(t, h, http.MethodPost, "/contexts/"+id+"/messages", api.MessageRequest{Role: "robot", Content: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/contexts/"+id+"/messages", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/contexts/missing/messages", api.MessageRequest{Role: "user", Content: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/contexts/missing/messages", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompletionStoresAnswer(t *testing.T) {
	completer := &stubCompleter{reply: "Retrievers fetch documents."}
	h, _ := newTestHandler(completer)
	id := createContext(t, h)

	do(t, h, http.MethodPost, "/contexts/"+id+"/messages", api.MessageRequest{Role: "user", Content: "What is a retriever?"})

	rec := do(t, h, http.MethodPost, "/contexts/"+id+"/completion", api.CompletionRequest{MaxTokens: 50})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.CompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "assistant", resp.Message.Role)
	assert.Equal(t, "Retrievers fetch documents.", resp.Message.Content)

	assert.Equal(t, llminterface.MessageList{llminterface.NewUserMessage("What is a retriever?")}, completer.messages)
	assert.Equal(t, "llama3-70b-8192", completer.opts.Model)
	assert.Equal(t, 50, completer.opts.MaxTokens)

	rec = do(t, h, http.MethodGet, "/contexts/"+id+"/messages", nil)
	var list api.MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Messages, 2)
}

func TestCompletionFailures(t *testing.T) {
	h, _ := newTestHandler(nil)
	id := createContext(t, h)
	rec := do(t, h, http.MethodPost, "/contexts/"+id+"/completion", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h, _ = newTestHandler(&stubCompleter{err: errors.New("upstream http error: status 500")})
	id = createContext(t, h)
	rec = do(t, h, http.MethodPost, "/contexts/"+id+"/completion", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "status 500")
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(nil)

	rec := do(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status api.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, ServiceName, status.Service)
	assert.Equal(t, "healthy", status.Status)

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

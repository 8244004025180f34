// Package memory serves conversation contexts over HTTP.
package memory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cugtyt/agentloop/internal/eventbus"
	"github.com/cugtyt/agentloop/internal/events"
	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/metrics"
	"github.com/cugtyt/agentloop/internal/store"
	"github.com/cugtyt/agentloop/pkg/api"
)

const (
	ServiceName = "memory-server"
	Version     = "0.1.0"

	maxBodyBytes = 1 << 20
)

type Handler struct {
	store     store.Store
	completer llminterface.Completer
	defaults  llminterface.CompletionOptions
	eventBus  eventbus.Emitter
	started   time.Time
	log       *logger.Logger
}

// NewHandler wires the routes over s. completer may be nil, in which case
// the completion route answers 503.
func NewHandler(s store.Store, completer llminterface.Completer, defaults llminterface.CompletionOptions, eb eventbus.Emitter) *Handler {
	if eb == nil {
		eb = eventbus.Nop{}
	}
	return &Handler{
		store:     s,
		completer: completer,
		defaults:  defaults,
		eventBus:  eb,
		started:   time.Now(),
		log:       logger.Named("memory"),
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.instrument)

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/contexts", h.createContext).Methods(http.MethodPost)
	r.HandleFunc("/contexts/{id}", h.deleteContext).Methods(http.MethodDelete)
	r.HandleFunc("/contexts/{id}/messages", h.addMessage).Methods(http.MethodPost)
	r.HandleFunc("/contexts/{id}/messages", h.listMessages).Methods(http.MethodGet)
	r.HandleFunc("/contexts/{id}/messages/{messageID}", h.deleteMessage).Methods(http.MethodDelete)
	r.HandleFunc("/contexts/{id}/completion", h.completion).Methods(http.MethodPost)

	return r
}

func (h *Handler) createContext(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.CreateContext(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	h.emit(events.ContextCreateEvent{ContextID: c.ID})
	h.log.Infow("context created", "context_id", c.ID)

	writeJSON(w, http.StatusCreated, api.ContextResponse{ID: c.ID, CreatedAt: c.CreatedAt})
}

func (h *Handler) deleteContext(w http.ResponseWriter, r *http.Request) {
	contextID := mux.Vars(r)["id"]
	if err := h.store.DeleteContext(r.Context(), contextID); err != nil {
		h.fail(w, err)
		return
	}

	h.emit(events.ContextDeleteEvent{ContextID: contextID})
	h.log.Infow("context deleted", "context_id", contextID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addMessage(w http.ResponseWriter, r *http.Request) {
	contextID := mux.Vars(r)["id"]

	var req api.MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !llminterface.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "invalid role: "+req.Role)
		return
	}

	msg := llminterface.Message{Role: req.Role, Content: req.Content, Name: req.Name}
	stored, err := h.store.AddMessage(r.Context(), contextID, msg)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.emit(events.MessageAddEvent{ContextID: contextID, MessageID: stored.ID, Message: msg})

	writeJSON(w, http.StatusCreated, toAPIMessage(stored))
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	stored, err := h.store.ListMessages(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := api.MessagesResponse{Messages: make([]api.Message, 0, len(stored))}
	for _, m := range stored {
		resp.Messages = append(resp.Messages, toAPIMessage(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.store.DeleteMessage(r.Context(), vars["id"], vars["messageID"]); err != nil {
		h.fail(w, err)
		return
	}

	h.emit(events.MessageDeleteEvent{ContextID: vars["id"], MessageID: vars["messageID"]})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completion(w http.ResponseWriter, r *http.Request) {
	if h.completer == nil {
		writeError(w, http.StatusServiceUnavailable, "completion is not configured")
		return
	}

	contextID := mux.Vars(r)["id"]

	req := api.CompletionRequest{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	opts := h.options(req)

	stored, err := h.store.ListMessages(r.Context(), contextID)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.emit(events.LLMRequestEvent{ContextID: contextID, Model: opts.Model, Messages: len(stored)})

	text, err := h.completer.Complete(r.Context(), store.Messages(stored), opts)
	if err != nil {
		h.emit(events.LLMResponseEvent{ContextID: contextID, Model: opts.Model, Error: err.Error()})
		h.log.Errorw("completion failed", "context_id", contextID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	answer, err := h.store.AddMessage(r.Context(), contextID, llminterface.NewAssistantMessage(text))
	if err != nil {
		h.fail(w, err)
		return
	}

	h.emit(events.LLMResponseEvent{ContextID: contextID, Model: opts.Model, Response: text})

	writeJSON(w, http.StatusOK, api.CompletionResponse{Message: toAPIMessage(answer)})
}

func (h *Handler) options(req api.CompletionRequest) llminterface.CompletionOptions {
	opts := h.defaults
	if req.Model != "" {
		opts.Model = req.Model
	}
	if req.Temperature != 0 {
		opts.Temperature = req.Temperature
	}
	if req.MaxTokens != 0 {
		opts.MaxTokens = req.MaxTokens
	}
	return opts
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := api.HealthStatus{
		Service:   ServiceName,
		Status:    "healthy",
		Version:   Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
	}

	code := http.StatusOK
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Warnw("store ping failed", "error", err)
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrContextNotFound), errors.Is(err, store.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Errorw("store request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) emit(event eventbus.Event) {
	if err := h.eventBus.Emit(event); err != nil {
		h.log.Warnw("failed to emit event", "subject", event.Subject(), "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.MemoryRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	})
}

func toAPIMessage(m store.StoredMessage) api.Message {
	return api.Message{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.Content,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, api.ErrorResponse{Error: msg})
}

package events

import (
	"github.com/cugtyt/agentloop/internal/llminterface"
)

type ContextCreateEvent struct {
	ContextID string `json:"context_id"`
}

func (e ContextCreateEvent) Subject() string { return ContextCreateEventName }

type ContextDeleteEvent struct {
	ContextID string `json:"context_id"`
}

func (e ContextDeleteEvent) Subject() string { return ContextDeleteEventName }

type MessageAddEvent struct {
	ContextID string               `json:"context_id"`
	MessageID string               `json:"message_id"`
	Message   llminterface.Message `json:"message"`
}

func (e MessageAddEvent) Subject() string { return MessageAddEventName }

type MessageDeleteEvent struct {
	ContextID string `json:"context_id"`
	MessageID string `json:"message_id"`
}

func (e MessageDeleteEvent) Subject() string { return MessageDeleteEventName }

package events

const (
	TurnStartEventName  = "turn-start"
	TurnStateEventName  = "turn-state"
	TurnFinishEventName = "turn-finish"
	TurnErrorEventName  = "turn-error"

	LLMRequestEventName  = "llm-request"
	LLMResponseEventName = "llm-response"

	ToolExecStartEventName  = "tool-exec-start"
	ToolExecFinishEventName = "tool-exec-finish"

	ContextCreateEventName = "context-create"
	ContextDeleteEventName = "context-delete"
	MessageAddEventName    = "message-add"
	MessageDeleteEventName = "message-delete"
)

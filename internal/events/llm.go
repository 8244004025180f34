package events

type LLMRequestEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id,omitempty"`
	Model     string `json:"model"`
	Messages  int    `json:"messages"`
}

func (e LLMRequestEvent) Subject() string { return LLMRequestEventName }

type LLMResponseEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id,omitempty"`
	Model     string `json:"model"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (e LLMResponseEvent) Subject() string { return LLMResponseEventName }

package events

type TurnStartEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id"`
	Query     string `json:"query"`
}

func (e TurnStartEvent) Subject() string { return TurnStartEventName }

type TurnStateEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

func (e TurnStateEvent) Subject() string { return TurnStateEventName }

type TurnFinishEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id"`
	Answer    string `json:"answer"`
	ToolUsed  string `json:"tool_used,omitempty"`
}

func (e TurnFinishEvent) Subject() string { return TurnFinishEventName }

type TurnErrorEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id"`
	Error     string `json:"error"`
}

func (e TurnErrorEvent) Subject() string { return TurnErrorEventName }

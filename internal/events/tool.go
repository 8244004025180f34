package events

type ToolExecStartEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id"`
	ToolName  string `json:"tool_name"`
	Arguments []any  `json:"arguments,omitempty"`
}

func (e ToolExecStartEvent) Subject() string { return ToolExecStartEventName }

type ToolExecFinishEvent struct {
	ContextID string `json:"context_id"`
	TurnID    string `json:"turn_id"`
	ToolName  string `json:"tool_name"`
	Result    string `json:"result,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (e ToolExecFinishEvent) Subject() string { return ToolExecFinishEventName }

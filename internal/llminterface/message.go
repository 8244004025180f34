package llminterface

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one role-tagged entry of a conversation. Name is only set on
// tool messages and carries the name of the tool that produced Content.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type MessageList []Message

// HasSystem reports whether the list already carries a system instruction.
func (ml MessageList) HasSystem() bool {
	for _, m := range ml {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func NewToolMessage(toolName, content string) Message {
	return Message{Role: RoleTool, Content: content, Name: toolName}
}

// ValidRole reports whether role is one of the four conversation roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

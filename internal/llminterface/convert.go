package llminterface

import (
	"github.com/sashabaranov/go-openai"
)

// ConvertMessagesToOpenAI maps conversation messages onto the chat
// completions wire format. Tool output is sent with the legacy "function"
// role and the tool name, since directives never carry a tool_call_id.
func ConvertMessagesToOpenAI(messages MessageList) []openai.ChatCompletionMessage {
	openaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: msg.Content,
			})
		case RoleUser:
			openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: msg.Content,
			})
		case RoleAssistant:
			openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: msg.Content,
			})
		case RoleTool:
			openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleFunction,
				Name:    msg.Name,
				Content: msg.Content,
			})
		}
	}

	return openaiMessages
}

// ConvertOpenAIResponseToText returns the first choice's content, or false
// when the provider returned no choices.
func ConvertOpenAIResponseToText(resp openai.ChatCompletionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}

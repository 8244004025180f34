package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cugtyt/agentloop/internal/directive"
	"github.com/cugtyt/agentloop/internal/tools"
)

func TestInstructionDescribesTools(t *testing.T) {
	text := Instruction([]tools.Descriptor{getDocs()}, func(d tools.Descriptor) tools.Binding {
		return tools.BindingFromSchema(d.Schema)
	})

	assert.Contains(t, text, "`get_docs(query, library)`: Search the latest docs")
	assert.Contains(t, text, `Call get_docs("<query>", "<library>")`)
	assert.Contains(t, text, "Do not repeat the tool call in your final answer.")

	call, ok := directive.Parse(text)
	assert.True(t, ok)
	assert.Equal(t, "get_docs", call.ToolName)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, CanTransition(QueryingModel, ToolDetected))
	assert.True(t, CanTransition(ValidatingTool, Failed))
	assert.False(t, CanTransition(NoToolDetected, InvokingTool))
	assert.False(t, CanTransition(Done, QueryingModel))
	assert.True(t, Done.Terminal())
	assert.Equal(t, "requerying-model", ReQueryingModel.String())
	assert.Equal(t, "unknown", State(42).String())
}

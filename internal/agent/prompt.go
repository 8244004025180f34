package agent

import (
	"fmt"
	"strings"

	"github.com/cugtyt/agentloop/internal/directive"
	"github.com/cugtyt/agentloop/internal/tools"
)

// Instruction renders the system message describing the callable tools and
// the directive syntax the parser accepts.
func Instruction(descriptors []tools.Descriptor, bindingFor func(tools.Descriptor) tools.Binding) string {
	var b strings.Builder

	b.WriteString("You are an AI assistant with access to tools.\n")
	if len(descriptors) == 0 {
		b.WriteString("No tools are currently available, answer the user directly.")
		return b.String()
	}

	b.WriteString("You can call the following tools:\n")
	for _, d := range descriptors {
		params := paramNames(bindingFor(d))
		fmt.Fprintf(&b, "- `%s(%s)`", d.Name, strings.Join(params, ", "))
		if desc := strings.TrimSpace(d.Description); desc != "" {
			fmt.Fprintf(&b, ": %s", firstLine(desc))
		}
		b.WriteString("\n")
	}

	b.WriteString("When needed, respond with:\n")
	for _, d := range descriptors {
		b.WriteString(example(d.Name, paramNames(bindingFor(d))))
		b.WriteString("\n")
	}
	b.WriteString("Use at most one tool call per response.\n")
	b.WriteString("If a tool is used, it will return results and you should use that result to answer the user query.\n")
	b.WriteString("Do not repeat the tool call in your final answer.")

	return b.String()
}

func paramNames(binding tools.Binding) []string {
	names := make([]string, 0, len(binding))
	for _, p := range binding {
		names = append(names, p.Name)
	}
	return names
}

func example(tool string, params []string) string {
	placeholders := make([]string, 0, len(params))
	for _, p := range params {
		placeholders = append(placeholders, fmt.Sprintf("%q", "<"+p+">"))
	}
	return fmt.Sprintf("%s %s(%s)", directive.Keyword, tool, strings.Join(placeholders, ", "))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

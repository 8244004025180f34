package tools

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownTool is returned for tool names the registry does not advertise.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvocation is returned when the remote tool call fails.
	ErrInvocation = errors.New("tool invocation failed")
)

// UnknownToolError names a tool the registry does not advertise. It matches
// ErrUnknownTool with errors.Is.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownTool, e.Name)
}

func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// Schema is the subset of a tool's JSON input schema the dispatcher needs.
// Required keeps the server's declaration order.
type Schema struct {
	Properties map[string]any
	Required   []string
}

// Descriptor describes one callable tool as advertised by the tool server.
type Descriptor struct {
	Name        string
	Description string
	Schema      Schema
}

// Content is one segment of a tool response.
type Content struct {
	Type string
	Text string
}

const ContentTypeText = "text"

// CallOutput is the raw response of a remote tool call.
type CallOutput struct {
	Content []Content
	IsError bool
}

// Session is the tool-providing RPC service.
type Session interface {
	ListTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (CallOutput, error)
}

// Registry is the set of tools discovered at the start of a run. It is never
// modified after construction.
type Registry struct {
	tools map[string]Descriptor
	names []string
}

func NewRegistry(descriptors ...Descriptor) *Registry {
	r := &Registry{
		tools: make(map[string]Descriptor, len(descriptors)),
		names: make([]string, 0, len(descriptors)),
	}

	for _, d := range descriptors {
		if _, exists := r.tools[d.Name]; exists {
			continue
		}
		r.tools[d.Name] = d
		r.names = append(r.names, d.Name)
	}

	return r
}

// Discover lists the session's tools once and freezes them into a Registry.
func Discover(ctx context.Context, session Session) (*Registry, error) {
	descriptors, err := session.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return NewRegistry(descriptors...), nil
}

func (r *Registry) Get(name string) (Descriptor, error) {
	tool, exists := r.tools[name]
	if !exists {
		return Descriptor{}, &UnknownToolError{Name: name}
	}
	return tool, nil
}

func (r *Registry) Has(name string) bool {
	_, exists := r.tools[name]
	return exists
}

// Names returns tool names in discovery order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Descriptors returns all tools in discovery order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name])
	}
	return out
}

// Missing returns the names from want that the registry does not advertise.
func (r *Registry) Missing(want []string) []string {
	var missing []string
	for _, name := range want {
		if name == "" {
			continue
		}
		if !r.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (r *Registry) Len() int {
	return len(r.names)
}

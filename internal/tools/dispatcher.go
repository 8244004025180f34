package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cugtyt/agentloop/internal/directive"
	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/metrics"
)

const (
	DefaultMaxOutputChars = 4000
	DefaultCallTimeout    = 30 * time.Second
	previewChars          = 500
)

// Result is the normalised text output of one tool call.
type Result struct {
	ToolName       string
	Arguments      map[string]any
	Text           string
	Truncated      bool
	OriginalLength int
	// IsError is set when the tool reported a failure. Text then holds the
	// tool's own error text.
	IsError bool
}

type DispatcherOptions struct {
	// Bindings override the schema-derived argument order per tool.
	Bindings       map[string]Binding
	MaxOutputChars int
	CallTimeout    time.Duration
}

type Dispatcher struct {
	registry  *Registry
	session   Session
	bindings  map[string]Binding
	maxOutput int
	timeout   time.Duration
	log       *logger.Logger
}

func NewDispatcher(registry *Registry, session Session, opts DispatcherOptions) *Dispatcher {
	if opts.MaxOutputChars <= 0 {
		opts.MaxOutputChars = DefaultMaxOutputChars
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Bindings == nil {
		opts.Bindings = map[string]Binding{}
	}

	return &Dispatcher{
		registry:  registry,
		session:   session,
		bindings:  opts.Bindings,
		maxOutput: opts.MaxOutputChars,
		timeout:   opts.CallTimeout,
		log:       logger.Named("dispatcher"),
	}
}

// BindingFor returns the static binding for a tool, falling back to the
// order derived from its schema.
func (d *Dispatcher) BindingFor(tool Descriptor) Binding {
	if b, ok := d.bindings[tool.Name]; ok {
		return b
	}
	return BindingFromSchema(tool.Schema)
}

// Invoke validates, binds and executes a parsed directive.
func (d *Dispatcher) Invoke(ctx context.Context, call directive.Call) (Result, error) {
	tool, err := d.registry.Get(call.ToolName)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(call.ToolName, "unknown").Inc()
		return Result{}, err
	}

	arguments, err := d.BindingFor(tool).Apply(call.Args)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(tool.Name, metrics.StatusError).Inc()
		return Result{}, fmt.Errorf("%w: %s: %v", ErrInvocation, tool.Name, err)
	}

	d.log.Infow("invoking tool", "tool", tool.Name, "arguments", arguments)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	output, err := d.session.CallTool(callCtx, tool.Name, arguments)
	if err != nil {
		metrics.ToolCalls.WithLabelValues(tool.Name, metrics.StatusError).Inc()
		return Result{}, fmt.Errorf("%w: %s: %w", ErrInvocation, tool.Name, err)
	}

	text := NormalizeText(output.Content)

	truncated, cut := Truncate(text, d.maxOutput)
	if cut {
		metrics.ToolOutputTruncations.WithLabelValues(tool.Name).Inc()
	}

	if output.IsError {
		metrics.ToolCalls.WithLabelValues(tool.Name, metrics.StatusError).Inc()
		d.log.Warnw("tool reported an error", "tool", tool.Name, "preview", Preview(text, previewChars))
	} else {
		metrics.ToolCalls.WithLabelValues(tool.Name, metrics.StatusSuccess).Inc()
	}

	d.log.Debugw("tool output", "tool", tool.Name, "preview", Preview(text, previewChars))

	return Result{
		ToolName:       tool.Name,
		Arguments:      arguments,
		Text:           truncated,
		Truncated:      cut,
		OriginalLength: len([]rune(text)),
		IsError:        output.IsError,
	}, nil
}

// NormalizeText concatenates the text of every text segment, in order.
func NormalizeText(content []Content) string {
	var b strings.Builder
	for _, part := range content {
		if part.Type != ContentTypeText {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) (string, bool) {
	if limit < 0 {
		limit = 0
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}

// Preview is Truncate without the flag, for logs.
func Preview(s string, limit int) string {
	out, _ := Truncate(s, limit)
	return out
}

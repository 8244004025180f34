// Package agent drives one tool-calling turn at a time: it asks the model,
// looks for a call directive in the reply, dispatches the named tool and asks
// the model again with the tool output in the conversation.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/cugtyt/agentloop/internal/directive"
	"github.com/cugtyt/agentloop/internal/eventbus"
	"github.com/cugtyt/agentloop/internal/events"
	"github.com/cugtyt/agentloop/internal/llminterface"
	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/metrics"
	"github.com/cugtyt/agentloop/internal/tools"
	"github.com/cugtyt/agentloop/internal/utils"
)

const (
	OutcomeAnswered     = "answered"
	OutcomeToolAnswered = "tool_answered"
	OutcomeUnknownTool  = "unknown_tool"
	OutcomeError        = "error"

	previewChars = 500
)

type Options struct {
	Completion llminterface.CompletionOptions
	// EventBus receives turn lifecycle events. Nil disables them.
	EventBus eventbus.Emitter
}

type Agent struct {
	completer    llminterface.Completer
	registry     *tools.Registry
	dispatcher   *tools.Dispatcher
	conversation Conversation
	completion   llminterface.CompletionOptions
	eventBus     eventbus.Emitter
	lastTrace    []State
	log          *logger.Logger
}

func New(completer llminterface.Completer, registry *tools.Registry, dispatcher *tools.Dispatcher, conversation Conversation, opts Options) *Agent {
	if opts.EventBus == nil {
		opts.EventBus = eventbus.Nop{}
	}

	return &Agent{
		completer:    completer,
		registry:     registry,
		dispatcher:   dispatcher,
		conversation: conversation,
		completion:   opts.Completion,
		eventBus:     opts.EventBus,
		log:          logger.Named("agent").With("context_id", conversation.ID()),
	}
}

func (a *Agent) Conversation() Conversation {
	return a.conversation
}

// Trace returns the states visited by the most recent turn.
func (a *Agent) Trace() []State {
	out := make([]State, len(a.lastTrace))
	copy(out, a.lastTrace)
	return out
}

type turn struct {
	id    string
	state State
	trace []State
	tool  string
}

// RunTurn answers one user query. Turns must not run concurrently on the
// same Agent.
func (a *Agent) RunTurn(ctx context.Context, userText string) (string, error) {
	t := &turn{
		id:    utils.NewTurnID(a.conversation.ID()),
		state: AwaitingQuery,
		trace: []State{AwaitingQuery},
	}
	defer func() { a.lastTrace = t.trace }()

	a.emit(events.TurnStartEvent{ContextID: a.conversation.ID(), TurnID: t.id, Query: userText})

	answer, err := a.run(ctx, t, userText)
	if err != nil {
		a.moveTo(t, Failed)

		outcome := OutcomeError
		if errors.Is(err, tools.ErrUnknownTool) {
			outcome = OutcomeUnknownTool
		}
		metrics.Turns.WithLabelValues(outcome).Inc()

		a.emit(events.TurnErrorEvent{ContextID: a.conversation.ID(), TurnID: t.id, Error: err.Error()})
		a.log.Warnw("turn failed", "turn_id", t.id, "error", err)
		return "", err
	}

	outcome := OutcomeAnswered
	if t.tool != "" {
		outcome = OutcomeToolAnswered
	}
	metrics.Turns.WithLabelValues(outcome).Inc()

	a.emit(events.TurnFinishEvent{ContextID: a.conversation.ID(), TurnID: t.id, Answer: answer, ToolUsed: t.tool})
	return answer, nil
}

func (a *Agent) run(ctx context.Context, t *turn, userText string) (string, error) {
	if err := a.ensureInstruction(ctx); err != nil {
		return "", err
	}
	if err := a.conversation.Append(ctx, llminterface.NewUserMessage(userText)); err != nil {
		return "", err
	}

	a.moveTo(t, QueryingModel)
	reply, err := a.complete(ctx, t)
	if err != nil {
		return "", err
	}

	call, found := directive.Parse(reply)
	if err := a.conversation.Append(ctx, llminterface.NewAssistantMessage(reply)); err != nil {
		return "", err
	}

	if !found {
		a.moveTo(t, NoToolDetected)
		a.moveTo(t, Done)
		return reply, nil
	}

	a.moveTo(t, ToolDetected)
	a.log.Infow("detected tool call", "turn_id", t.id, "call", call.String())

	a.moveTo(t, ValidatingTool)
	if _, err := a.registry.Get(call.ToolName); err != nil {
		return "", err
	}

	a.moveTo(t, InvokingTool)
	t.tool = call.ToolName
	a.emit(events.ToolExecStartEvent{
		ContextID: a.conversation.ID(),
		TurnID:    t.id,
		ToolName:  call.ToolName,
		Arguments: callArguments(call),
	})

	result, err := a.dispatcher.Invoke(ctx, call)
	finish := events.ToolExecFinishEvent{ContextID: a.conversation.ID(), TurnID: t.id, ToolName: call.ToolName}
	if err != nil {
		finish.Error = err.Error()
		a.emit(finish)
		return "", err
	}
	finish.Result = tools.Preview(result.Text, previewChars)
	finish.Truncated = result.Truncated
	if result.IsError {
		finish.Error = "tool reported an error"
	}
	a.emit(finish)

	a.log.Infow("tool output", "turn_id", t.id, "tool", result.ToolName,
		"chars", result.OriginalLength, "truncated", result.Truncated, "is_error", result.IsError,
		"preview", tools.Preview(result.Text, previewChars))

	if err := a.conversation.Append(ctx, llminterface.NewToolMessage(result.ToolName, result.Text)); err != nil {
		return "", err
	}

	a.moveTo(t, ReQueryingModel)
	final, err := a.complete(ctx, t)
	if err != nil {
		return "", err
	}
	if err := a.conversation.Append(ctx, llminterface.NewAssistantMessage(final)); err != nil {
		return "", err
	}

	a.moveTo(t, Done)
	return final, nil
}

// ensureInstruction adds the tool instruction once per conversation.
func (a *Agent) ensureInstruction(ctx context.Context) error {
	messages, err := a.conversation.Messages(ctx)
	if err != nil {
		return err
	}
	if messages.HasSystem() {
		return nil
	}

	instruction := Instruction(a.registry.Descriptors(), a.dispatcher.BindingFor)
	return a.conversation.Append(ctx, llminterface.NewSystemMessage(instruction))
}

func (a *Agent) complete(ctx context.Context, t *turn) (string, error) {
	messages, err := a.conversation.Messages(ctx)
	if err != nil {
		return "", err
	}

	a.emit(events.LLMRequestEvent{
		ContextID: a.conversation.ID(),
		TurnID:    t.id,
		Model:     a.completion.Model,
		Messages:  len(messages),
	})

	text, err := a.completer.Complete(ctx, messages, a.completion)
	response := events.LLMResponseEvent{ContextID: a.conversation.ID(), TurnID: t.id, Model: a.completion.Model}
	if err != nil {
		response.Error = err.Error()
		a.emit(response)
		return "", fmt.Errorf("completion failed: %w", err)
	}
	response.Response = tools.Preview(text, previewChars)
	a.emit(response)

	a.log.Debugw("model response", "turn_id", t.id, "state", t.state, "preview", tools.Preview(text, previewChars))
	return text, nil
}

func (a *Agent) moveTo(t *turn, next State) {
	if !CanTransition(t.state, next) {
		a.log.Errorw("invalid turn transition", "from", t.state, "to", next)
	}

	a.log.Debugw("turn transition", "turn_id", t.id, "from", t.state, "to", next)
	a.emit(events.TurnStateEvent{
		ContextID: a.conversation.ID(),
		TurnID:    t.id,
		From:      t.state.String(),
		To:        next.String(),
	})

	t.state = next
	t.trace = append(t.trace, next)
}

func (a *Agent) emit(event eventbus.Event) {
	if err := a.eventBus.Emit(event); err != nil {
		a.log.Warnw("failed to emit event", "subject", event.Subject(), "error", err)
	}
}

func callArguments(call directive.Call) []any {
	args := make([]any, 0, len(call.Args))
	for _, v := range call.Args {
		args = append(args, v.Any())
	}
	return args
}

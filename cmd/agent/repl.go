package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cugtyt/agentloop/internal/tools"
	"github.com/cugtyt/agentloop/internal/toolserver"
)

const (
	prompt       = "You: "
	maxLineBytes = 1 << 20
)

type turnRunner interface {
	RunTurn(ctx context.Context, userText string) (string, error)
}

// repl runs one turn per input line until exit, quit, EOF, cancellation or a
// fatal error. Unknown tools end only the current turn.
func repl(ctx context.Context, agent turnRunner, in io.Reader, out io.Writer) error {
	lines, readErr := readLines(ctx, in)

	for {
		fmt.Fprint(out, prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case next, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return <-readErr
			}
			line = strings.TrimSpace(next)
		}

		if line == "" {
			continue
		}
		if isExit(line) {
			return nil
		}

		answer, err := agent.RunTurn(ctx, line)
		if err != nil {
			var unknown *tools.UnknownToolError
			if errors.As(err, &unknown) {
				fmt.Fprintf(out, "Unknown tool: %s\n", unknown.Name)
				continue
			}
			return err
		}

		fmt.Fprintf(out, "Assistant: %s\n", answer)
	}
}

// readLines feeds input lines to the loop so that a blocked read does not
// delay shutdown. The error channel receives exactly one value before lines
// is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- scanner.Err()
	}()

	return lines, readErr
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit":
		return true
	}
	return false
}

// report prints the one-line diagnostic for err and returns the exit code.
func report(err error, out io.Writer) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, toolserver.ErrTransportClosed):
		fmt.Fprintf(out, "Communication error: %v\n", err)
		return 0
	default:
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}
}

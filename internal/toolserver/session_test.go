package toolserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cugtyt/agentloop/internal/directive"
	"github.com/cugtyt/agentloop/internal/tools"
)

func newDocsServer() *server.MCPServer {
	s := server.NewMCPServer("docs", "1.0.0", server.WithToolCapabilities(true))

	s.AddTool(mcp.NewTool("get_docs",
		mcp.WithDescription("Search the latest docs for a library"),
		mcp.WithString("query", mcp.Required(), mcp.Description("What to look for")),
		mcp.WithString("library", mcp.Required(), mcp.Description("langchain, openai or llama-index")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		library, _ := args["library"].(string)
		if library == "unsupported" {
			return mcp.NewToolResultError("library not supported"), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("docs for %v in %s", args["query"], library)), nil
	})

	return s
}

const (
	helperEnv      = "AGENTLOOP_TOOLSERVER_HELPER"
	helperPIDLog   = "AGENTLOOP_TOOLSERVER_PID_LOG"
	shutdownTool   = "shutdown"
	shutdownDelay  = 50 * time.Millisecond
	helperDeadline = 5 * time.Second
)

// TestMain lets the test binary double as a stdio tool server.
func TestMain(m *testing.M) {
	if os.Getenv(helperEnv) == "1" {
		os.Exit(serveHelper())
	}
	os.Exit(m.Run())
}

func serveHelper() int {
	if path := os.Getenv(helperPIDLog); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return 2
		}
		fmt.Fprintln(f, os.Getpid())
		_ = f.Close()
	}

	s := newDocsServer()
	s.AddTool(mcp.NewTool(shutdownTool, mcp.WithDescription("Exit the server shortly after answering")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			go func() {
				time.Sleep(shutdownDelay)
				os.Exit(0)
			}()
			return mcp.NewToolResultText("bye"), nil
		})

	if err := server.ServeStdio(s); err != nil {
		return 1
	}
	return 0
}

func helperConfig(t *testing.T) (Config, string) {
	t.Helper()

	exe, err := os.Executable()
	require.NoError(t, err)

	pidLog := filepath.Join(t.TempDir(), "pids")
	return Config{
		Command: exe,
		Args:    []string{"-test.run=^$"},
		Env:     []string{helperEnv + "=1", helperPIDLog + "=" + pidLog},
	}, pidLog
}

func spawnedPIDs(t *testing.T, pidLog string) []int {
	t.Helper()

	data, err := os.ReadFile(pidLog)
	require.NoError(t, err)

	var pids []int
	for _, line := range strings.Fields(string(data)) {
		pid, err := strconv.Atoi(line)
		require.NoError(t, err)
		pids = append(pids, pid)
	}
	return pids
}

func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

func openInProcess(t *testing.T) *Session {
	t.Helper()

	c, err := client.NewInProcessClient(newDocsServer())
	require.NoError(t, err)

	s, err := NewSession(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestSessionHandshakeAndListTools(t *testing.T) {
	s := openInProcess(t)
	assert.Equal(t, "docs", s.Server().Name)

	descriptors, err := s.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	assert.Equal(t, "get_docs", descriptors[0].Name)
	assert.Equal(t, []string{"query", "library"}, descriptors[0].Schema.Required)
	assert.Contains(t, descriptors[0].Schema.Properties, "library")
}

func TestSessionCallToolThroughDispatcher(t *testing.T) {
	s := openInProcess(t)

	registry, err := tools.Discover(context.Background(), s)
	require.NoError(t, err)

	bindings, err := tools.ParseBindings("get_docs=query,library:lower")
	require.NoError(t, err)
	d := tools.NewDispatcher(registry, s, tools.DispatcherOptions{Bindings: bindings})

	call, ok := directive.Parse(`Call get_docs("retriever", "LangChain")`)
	require.True(t, ok)

	result, err := d.Invoke(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, "docs for retriever in langchain", result.Text)
}

func TestSessionToolError(t *testing.T) {
	s := openInProcess(t)

	out, err := s.CallTool(context.Background(), "get_docs", map[string]any{"query": "q", "library": "unsupported"})
	require.NoError(t, err)
	assert.True(t, out.IsError)
	require.NotEmpty(t, out.Content)
	assert.Equal(t, "library not supported", out.Content[0].Text)
}

func TestSessionClosed(t *testing.T) {
	s := openInProcess(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrTransportClosed)

	_, err = s.CallTool(context.Background(), "get_docs", nil)
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		closed bool
	}{
		{"eof", fmt.Errorf("read: %w", io.EOF), true},
		{"epipe", fmt.Errorf("failed to write request: %w", syscall.EPIPE), true},
		{"closed pipe", io.ErrClosedPipe, true},
		{"message hint", errors.New("write |1: file already closed"), true},
		{"other", errors.New("invalid params"), false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.Equal(t, tt.closed, errors.Is(err, ErrTransportClosed))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify(nil))
}

func TestWithSessionStartFailure(t *testing.T) {
	called := false
	err := WithSession(context.Background(), Config{Command: "/nonexistent/tool-server"}, func(ctx context.Context, s *Session) error {
		called = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, called)
}

func TestWithSessionSpawnsOneServerAndReleasesIt(t *testing.T) {
	cfg, pidLog := helperConfig(t)

	err := WithSession(context.Background(), cfg, func(ctx context.Context, s *Session) error {
		descriptors, err := s.ListTools(ctx)
		require.NoError(t, err)
		assert.Len(t, descriptors, 2)

		out, err := s.CallTool(ctx, "get_docs", map[string]any{"query": "retriever", "library": "langchain"})
		require.NoError(t, err)
		require.NotEmpty(t, out.Content)
		assert.Equal(t, "docs for retriever in langchain", out.Content[0].Text)
		return nil
	})
	require.NoError(t, err)

	pids := spawnedPIDs(t, pidLog)
	require.Len(t, pids, 1)
	assert.False(t, processAlive(pids[0]), "tool server %d still running", pids[0])
}

func TestCallToolAfterServerExitIsTransportClosed(t *testing.T) {
	cfg, _ := helperConfig(t)

	err := WithSession(context.Background(), cfg, func(ctx context.Context, s *Session) error {
		_, err := s.CallTool(ctx, shutdownTool, nil)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			callCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			defer cancel()

			_, err := s.CallTool(callCtx, "get_docs", map[string]any{"query": "q", "library": "openai"})
			return errors.Is(err, ErrTransportClosed)
		}, helperDeadline, 50*time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

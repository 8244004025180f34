// Package toolserver holds the long-lived MCP session to the tool server.
// The session is launched as a subprocess speaking JSON-RPC over stdio and
// is initialised with the MCP handshake before first use.
package toolserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cugtyt/agentloop/internal/logger"
	"github.com/cugtyt/agentloop/internal/tools"
)

// ErrTransportClosed marks failures caused by the tool server going away.
var ErrTransportClosed = errors.New("tool server transport closed")

const (
	ClientName    = "agentloop"
	ClientVersion = "0.1.0"
)

type Config struct {
	Command string
	Args    []string
	Env     []string
}

// Session adapts an MCP client to tools.Session.
type Session struct {
	client *client.Client
	server mcp.Implementation
	closed atomic.Bool
	log    *logger.Logger
}

var _ tools.Session = (*Session)(nil)

// Open launches the tool server and performs the initialise handshake. The
// transport is started here exactly once, so the client is not started
// again. The subprocess is torn down if the handshake fails.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	log := logger.Named("toolserver")

	stdio := transport.NewStdio(cfg.Command, cfg.Env, cfg.Args...)
	if err := stdio.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to start tool server %q: %w", cfg.Command, err)
	}
	go drainStderr(stdio.Stderr(), log)

	session, err := handshake(ctx, client.NewClient(stdio))
	if err != nil {
		return nil, err
	}

	log.Infow("connected to tool server", "command", cfg.Command, "server", session.server.Name, "version", session.server.Version)
	return session, nil
}

// NewSession starts and initialises a client whose transport has not been
// started yet, such as an in-process client. The client is closed when
// either step fails.
func NewSession(ctx context.Context, c *client.Client) (*Session, error) {
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to start mcp client: %w", classify(err))
	}
	return handshake(ctx, c)
}

func handshake(ctx context.Context, c *client.Client) (*Session, error) {
	s := &Session{client: c, log: logger.Named("toolserver")}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: ClientVersion}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	res, err := c.Initialize(ctx, req)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize tool server session: %w", classify(err))
	}
	s.server = res.ServerInfo

	return s, nil
}

// WithSession opens a session, runs fn and closes the session on every exit
// path, including panics unwinding through fn.
func WithSession(ctx context.Context, cfg Config, fn func(ctx context.Context, s *Session) error) error {
	s, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			s.log.Warnw("failed to close tool server session", "error", cerr)
		}
	}()

	return fn(ctx, s)
}

// Server returns the implementation info reported during the handshake.
func (s *Session) Server() mcp.Implementation {
	return s.server
}

func (s *Session) ListTools(ctx context.Context) ([]tools.Descriptor, error) {
	if s.closed.Load() {
		return nil, ErrTransportClosed
	}

	var descriptors []tools.Descriptor
	req := mcp.ListToolsRequest{}
	for {
		res, err := s.client.ListTools(ctx, req)
		if err != nil {
			return nil, classify(err)
		}

		for _, t := range res.Tools {
			descriptors = append(descriptors, tools.Descriptor{
				Name:        t.Name,
				Description: t.Description,
				Schema: tools.Schema{
					Properties: t.InputSchema.Properties,
					Required:   t.InputSchema.Required,
				},
			})
		}

		if res.NextCursor == "" {
			break
		}
		req.Params.Cursor = res.NextCursor
	}

	return descriptors, nil
}

func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]any) (tools.CallOutput, error) {
	if s.closed.Load() {
		return tools.CallOutput{}, ErrTransportClosed
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	res, err := s.client.CallTool(ctx, req)
	if err != nil {
		return tools.CallOutput{}, classify(err)
	}

	output := tools.CallOutput{IsError: res.IsError}
	for _, content := range res.Content {
		output.Content = append(output.Content, convertContent(content))
	}

	return output, nil
}

// Close ends the session and waits for the subprocess. It is idempotent.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

func convertContent(content mcp.Content) tools.Content {
	switch c := content.(type) {
	case mcp.TextContent:
		return tools.Content{Type: tools.ContentTypeText, Text: c.Text}
	case *mcp.TextContent:
		return tools.Content{Type: tools.ContentTypeText, Text: c.Text}
	case mcp.ImageContent:
		return tools.Content{Type: "image"}
	case mcp.EmbeddedResource:
		return tools.Content{Type: "resource"}
	}
	return tools.Content{Type: "unknown"}
}

var closedHints = []string{
	"broken pipe",
	"closed pipe",
	"file already closed",
	"transport closed",
	"transport has been closed",
	"client closed",
}

// classify tags errors that mean the channel to the server is gone.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransportClosed) {
		return err
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%w: %w", ErrTransportClosed, err)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range closedHints {
		if strings.Contains(msg, hint) {
			return fmt.Errorf("%w: %w", ErrTransportClosed, err)
		}
	}

	return err
}

func drainStderr(r io.Reader, log *logger.Logger) {
	if r == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Debugw("tool server stderr", "line", scanner.Text())
	}
}

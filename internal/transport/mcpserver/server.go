// Package mcpserver exposes the memory engine as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdlog "log"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/memobot/internal/core"
	"github.com/sandevgo/memobot/pkg/log"
)

type Server struct {
	mcp *server.MCPServer
	in  io.Reader
	out io.Writer
}

func NewServer(tools *Tools, in io.Reader, out io.Writer) *Server {
	s := server.NewMCPServer(core.AppName, core.AppVersion, server.WithToolCapabilities(false))

	defs := tools.GetDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := defs[name]
		s.AddTool(mcp.NewToolWithRawSchema(name, def.Description, json.RawMessage(def.Schema)), adapt(name, def.Handler))
	}

	return &Server{mcp: s, in: in, out: out}
}

// MCP returns the underlying server, used by tests to drive it in-process.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

func (s *Server) Start(ctx context.Context) error {
	ctx = log.WithComponent(ctx, "mcp")
	log.FromCtx(ctx).Info().Msg("serving mcp over stdio")

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(log.FromCtx(ctx), "", 0))

	err := stdio.Listen(ctx, s.in, s.out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}

// adapt turns a tool handler into an mcp-go handler. Domain errors become
// tool errors the client can read; they never fail the transport.
func adapt(name string, h handler) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		out, err := h(ctx, args)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Str("tool", name).Msg("tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

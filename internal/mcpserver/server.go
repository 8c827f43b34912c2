// Package mcpserver exposes the site tools to MCP clients over stdio, so an
// external assistant can read and edit the site with the same tools the
// built-in agent uses.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yolodolo42/sitepilot/internal/agent"
)

const serverName = "sitepilot"

// Server wraps an MCP server backed by a tool registry.
type Server struct {
	mcp      *server.MCPServer
	registry *agent.Registry
	tools    []mcp.Tool
	logger   *slog.Logger
}

// New registers every tool in registry with an MCP server.
func New(registry *agent.Registry, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry: registry,
		logger:   logger,
	}
	s.mcp = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)

	for _, name := range registry.Names() {
		spec, _ := registry.Spec(name)
		tool := mcp.NewToolWithRawSchema(spec.Tool.Name, spec.Tool.Description, spec.Tool.InputSchema)
		if spec.Mutating {
			tool.Annotations.DestructiveHint = boolPtr(true)
		} else {
			tool.Annotations.ReadOnlyHint = boolPtr(true)
		}
		s.tools = append(s.tools, tool)
		s.mcp.AddTool(tool, s.handler(name))
	}
	return s
}

func boolPtr(v bool) *bool { return &v }

// Tools returns the registered MCP tool definitions, sorted by name.
func (s *Server) Tools() []mcp.Tool {
	return append([]mcp.Tool(nil), s.tools...)
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting", "transport", "stdio", "tools", len(s.tools))
	return server.ServeStdio(s.mcp)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		input, err := json.Marshal(args)
		if err != nil {
			return errorResult(fmt.Errorf("encode arguments: %w", err)), nil
		}

		// MCP clients send no goal text; audit entries record the tool instead.
		if agent.GoalFromContext(ctx) == "" {
			ctx = agent.WithGoal(ctx, "mcp: "+name)
		}
		out, err := s.registry.Execute(ctx, name, input)
		if err != nil {
			s.logger.Warn("mcp tool failed", "tool", name, "err", err)
			return errorResult(err), nil
		}
		s.logger.Debug("mcp tool ok", "tool", name)
		return textResult(out), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// Tool failures are results, not protocol errors, so the client model can
// read them and retry.
func errorResult(err error) *mcp.CallToolResult {
	res := textResult("Error: " + err.Error())
	res.IsError = true
	return res
}

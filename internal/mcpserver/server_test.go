package mcpserver

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/testutil"
)

func call(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := s.handler(name)(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNewRegistersEveryTool(t *testing.T) {
	registry := agent.NewRegistry(agent.Deps{Repo: testutil.SeededRepo(t)})
	s := New(registry, "test", nil)

	tools := s.Tools()
	require.Len(t, tools, len(registry.Names()))
	for i, name := range registry.Names() {
		assert.Equal(t, name, tools[i].Name)
		assert.NotEmpty(t, tools[i].RawInputSchema)
	}

	byName := make(map[string]mcp.Tool)
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	require.NotNil(t, byName["update_section_content"].Annotations.DestructiveHint)
	assert.True(t, *byName["update_section_content"].Annotations.DestructiveHint)
	require.NotNil(t, byName["get_page_content"].Annotations.ReadOnlyHint)
	assert.True(t, *byName["get_page_content"].Annotations.ReadOnlyHint)
}

func TestToolCalls(t *testing.T) {
	repo := testutil.SeededRepo(t)
	s := New(agent.NewRegistry(agent.Deps{Repo: repo, AgentName: "mcp"}), "test", nil)

	t.Run("read", func(t *testing.T) {
		res := call(t, s, "get_page_content", map[string]any{"slug": "home"})
		assert.False(t, res.IsError)
		assert.Contains(t, text(t, res), "sec-hero")
	})

	t.Run("write is audited", func(t *testing.T) {
		res := call(t, s, "update_section_content", map[string]any{
			"sectionId": "sec-cta",
			"content":   map[string]any{"heading": "Spring Sale"},
		})
		assert.False(t, res.IsError)
		assert.Equal(t, "Section sec-cta updated", text(t, res))

		entries, err := repo.ListAudit(context.Background(), 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "mcp", entries[0].AgentName)
		assert.Equal(t, "mcp: update_section_content", entries[0].Goal)
	})

	t.Run("errors come back as results", func(t *testing.T) {
		res := call(t, s, "update_section_content", map[string]any{"content": "x"})
		assert.True(t, res.IsError)
		assert.Equal(t, "Error: sectionId is required", text(t, res))
	})

	t.Run("missing arguments", func(t *testing.T) {
		res := call(t, s, "get_site_context", nil)
		assert.False(t, res.IsError)
		assert.Contains(t, text(t, res), "Glow Clinic")
	})
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/llm"
)

func TestChat_Goal(t *testing.T) {
	provider := &scriptedProvider{responses: []*llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:    "call_1",
			Name:  "update_page_seo",
			Input: []byte(`{"pageId":"page-home","title":"Spring Sale"}`),
		}}},
		{Content: "Renamed the home page."},
	}}
	m, repo := newTestChat(t, provider)

	m = submit(t, m, "rename the home page to Spring Sale")

	assert.False(t, m.loading)
	out := transcript(m)
	assert.Contains(t, out, "rename the home page to Spring Sale")
	assert.Contains(t, out, "Renamed the home page.")
	assert.Contains(t, out, "2 rounds")

	page, err := repo.GetPage(context.Background(), "page-home")
	require.NoError(t, err)
	assert.Equal(t, "Spring Sale", page.Title)
}

func TestChat_RunError(t *testing.T) {
	m, _ := newTestChat(t, &scriptedProvider{})

	m = submit(t, m, "do something")

	assert.False(t, m.loading)
	last := m.lines[len(m.lines)-1]
	assert.Equal(t, roleError, last.role)
	assert.Contains(t, last.content, "no scripted response left")
}

func TestChat_Commands(t *testing.T) {
	t.Run("page by slug sets context", func(t *testing.T) {
		m, _ := newTestChat(t, &scriptedProvider{})
		m = submit(t, m, "/page home")
		assert.Equal(t, "page-home", m.conv.Page())
		assert.Contains(t, m.View(), "page page-home")

		m = submit(t, m, "/page -")
		assert.Empty(t, m.conv.Page())
	})

	t.Run("unknown page is an error", func(t *testing.T) {
		m, _ := newTestChat(t, &scriptedProvider{})
		m = submit(t, m, "/page nope")
		assert.Empty(t, m.conv.Page())
		assert.Equal(t, roleError, m.lines[len(m.lines)-1].role)
	})

	t.Run("model list and switch", func(t *testing.T) {
		provider := &scriptedProvider{}
		m, _ := newTestChat(t, provider)

		m = submit(t, m, "/model")
		assert.Contains(t, transcript(m), "plain-model")
		assert.Contains(t, transcript(m), "(no tool support)")

		m = submit(t, m, "/model plain-model")
		assert.Equal(t, "plain-model", m.runner.Model)
		assert.Equal(t, "plain-model", provider.model)
		assert.Contains(t, transcript(m), "does not support tools")

		m = submit(t, m, "/model missing")
		assert.Equal(t, "plain-model", m.runner.Model)
		assert.Contains(t, transcript(m), "Failed to switch model")
	})

	t.Run("tools", func(t *testing.T) {
		m, _ := newTestChat(t, &scriptedProvider{})
		m = submit(t, m, "/tools")
		assert.Contains(t, transcript(m), "update_section_content")
	})

	t.Run("clear resets conversation", func(t *testing.T) {
		m, _ := newTestChat(t, &scriptedProvider{})
		m = submit(t, m, "/page home")
		m = submit(t, m, "/clear")
		assert.Len(t, m.lines, 1)
		assert.Empty(t, m.conv.Page())
	})

	t.Run("unknown command", func(t *testing.T) {
		m, _ := newTestChat(t, &scriptedProvider{})
		m = submit(t, m, "/bogus")
		assert.Contains(t, transcript(m), "Unknown command: /bogus")
	})

	t.Run("quit", func(t *testing.T) {
		m, _ := newTestChat(t, &scriptedProvider{})
		m = submit(t, m, "/quit")
		assert.True(t, m.quitting)
		assert.Equal(t, "Goodbye!\n", m.View())
	})
}

func TestChat_EventsAreAppended(t *testing.T) {
	m, _ := newTestChat(t, &scriptedProvider{})
	n := len(m.lines)

	next, _ := m.Update(eventMsg(agent.Event{Type: agent.EventToolCall, Tool: "get_site_context", Args: "{}"}))
	m = next.(chatModel)
	require.Len(t, m.lines, n+1)
	assert.Contains(t, m.lines[n].content, "get_site_context")

	next, _ = m.Update(eventMsg(agent.Event{Type: agent.EventState, State: "planning"}))
	assert.Len(t, next.(chatModel).lines, n+1)
}

func TestDescribeRunError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: about", agent.ErrPageNotFound), "Use /page"},
		{agent.ErrMaxRoundsExceeded, "narrower goal"},
		{context.DeadlineExceeded, "timed out"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Contains(t, describeRunError(tt.err), tt.want)
		})
	}
}

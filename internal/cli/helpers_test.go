package cli

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/config"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
	"github.com/yolodolo42/sitepilot/internal/testutil"
)

// scriptedProvider replays canned responses.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	model     string
}

func (p *scriptedProvider) ID() llm.ProviderID  { return "test" }
func (p *scriptedProvider) Name() string        { return "Test Provider" }
func (p *scriptedProvider) SupportsTools() bool { return true }
func (p *scriptedProvider) Models() []llm.Model {
	return []llm.Model{
		{ID: "test-model", Name: "Test", SupportsTools: true},
		{ID: "plain-model", Name: "Plain", SupportsTools: false},
	}
}
func (p *scriptedProvider) DefaultModel() string { return "test-model" }
func (p *scriptedProvider) SetModel(id string) error {
	if err := llm.ValidateModelID(id, p.Models()); err != nil {
		return err
	}
	p.model = id
	return nil
}

func (p *scriptedProvider) Chat(_ context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func newTestChat(t *testing.T, provider llm.Provider) (chatModel, store.Repository) {
	t.Helper()
	repo := testutil.SeededRepo(t)
	cfg := &config.Config{
		DataDir: testutil.TempDir(t),
		Agent: config.AgentConfig{
			Name:            "chat-test",
			MaxRounds:       5,
			ToolConcurrency: 2,
			RunTimeout:      time.Minute,
		},
		LLM: config.LLMConfig{MaxTokens: 256},
	}
	runner := agent.NewRunner(repo, provider, cfg, nil)

	m := newChatModel(runner, repo)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(chatModel), repo
}

// submit types input and presses enter. Goal commands are run to completion
// and their result fed back into the model.
func submit(t *testing.T, m chatModel, input string) chatModel {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(input)})
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)

	if m.loading && cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(chatModel)
	}
	return m
}

func transcript(m chatModel) string {
	var out string
	for _, l := range m.lines {
		out += l.content + "\n"
	}
	return out
}

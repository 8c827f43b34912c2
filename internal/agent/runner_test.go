package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yolodolo42/sitepilot/internal/config"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/testutil"
)

func newTestRunner(t *testing.T, provider llm.Provider) *Runner {
	t.Helper()
	cfg := &config.Config{
		DataDir: testutil.TempDir(t),
		Agent: config.AgentConfig{
			Name:            "test-agent",
			MaxRounds:       5,
			ToolConcurrency: 2,
			RunTimeout:      time.Minute,
			Transcripts:     true,
		},
		LLM: config.LLMConfig{MaxTokens: 512},
	}
	return NewRunner(testutil.SeededRepo(t), provider, cfg, nil)
}

func TestRunner_RunGoal(t *testing.T) {
	ctx := context.Background()

	t.Run("empty goal is rejected before any call", func(t *testing.T) {
		provider := newScriptedProvider(final("never"))
		r := newTestRunner(t, provider)

		_, err := r.RunGoal(ctx, "   ", "page-home")
		require.ErrorIs(t, err, ErrEmptyGoal)
		assert.Zero(t, provider.calls())
	})

	t.Run("unknown page", func(t *testing.T) {
		provider := newScriptedProvider(final("never"))
		r := newTestRunner(t, provider)

		_, err := r.RunGoal(ctx, "fix it", "page-nope")
		require.ErrorIs(t, err, ErrPageNotFound)
		assert.Zero(t, provider.calls())
	})

	t.Run("page context is sent with the goal", func(t *testing.T) {
		provider := newScriptedProvider(final("Looks good."))
		r := newTestRunner(t, provider)

		res, err := r.RunGoal(ctx, "review the hero", "page-home")
		require.NoError(t, err)
		assert.Equal(t, "Looks good.", res.Output)
		assert.Equal(t, 1, res.Rounds)
		assert.NotEmpty(t, res.RunID)

		req := provider.lastRequest()
		require.Len(t, req.Messages, 1)
		seed := req.Messages[0].Content
		assert.True(t, strings.HasPrefix(seed, "review the hero\n\nContext:\n"))
		assert.Contains(t, seed, `"sec-hero"`)
		assert.Equal(t, SystemPrompt, req.SystemPrompt)
		assert.Equal(t, 512, req.MaxTokens)
		assert.Len(t, req.Tools, 9)
	})

	t.Run("page may be given by slug", func(t *testing.T) {
		provider := newScriptedProvider(final("ok"))
		r := newTestRunner(t, provider)

		_, err := r.RunGoal(ctx, "review", "services")
		require.NoError(t, err)
		assert.Contains(t, provider.lastRequest().Messages[0].Content, `"page-services"`)
	})

	t.Run("no page sends the bare goal", func(t *testing.T) {
		provider := newScriptedProvider(final("ok"))
		r := newTestRunner(t, provider)

		_, err := r.RunGoal(ctx, "  write an email campaign  ", "")
		require.NoError(t, err)
		assert.Equal(t, "write an email campaign", provider.lastRequest().Messages[0].Content)
	})

	t.Run("mutations are audited with the goal", func(t *testing.T) {
		provider := newScriptedProvider(
			calling(toolCall("call_1", "update_page_seo", `{"pageId":"page-home","title":"Spring Sale","description":"d"}`)),
			final("Done."),
		)
		r := newTestRunner(t, provider)

		_, err := r.RunGoal(ctx, "rename page title to 'Spring Sale'", "")
		require.NoError(t, err)

		entries, err := r.Repo.ListAudit(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "rename page title to 'Spring Sale'", entries[0].Goal)
		assert.Equal(t, "test-agent", entries[0].AgentName)
	})

	t.Run("model errors surface", func(t *testing.T) {
		provider := newScriptedProvider()
		r := newTestRunner(t, provider)

		_, err := r.RunGoal(ctx, "anything", "")
		require.Error(t, err)
	})
}

func TestRunner_Transcript(t *testing.T) {
	provider := newScriptedProvider(
		calling(toolCall("call_1", "setup_whatsapp_automation", `{"phoneNumber":"+15550100","messageTemplate":"hi"}`)),
		final("Configured."),
	)
	r := newTestRunner(t, provider)

	res, err := r.RunGoal(context.Background(), "set up whatsapp", "")
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(r.RunsDir, res.RunID+".jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var types []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec transcriptRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.NotEmpty(t, rec.TS)
		types = append(types, rec.Type)
		if rec.Type == EventToolCall {
			assert.NotContains(t, rec.Args, "+15550100")
		}
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, "run_start", types[0])
	assert.Contains(t, types, EventToolCall)
	assert.Contains(t, types, EventToolResult)
	assert.Equal(t, EventState, types[len(types)-1])
}

func TestRunner_TranscriptDisabled(t *testing.T) {
	provider := newScriptedProvider(final("ok"))
	r := newTestRunner(t, provider)
	r.Agent.Transcripts = false

	_, err := r.RunGoal(context.Background(), "hi", "")
	require.NoError(t, err)

	_, err = os.Stat(r.RunsDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_Continue(t *testing.T) {
	provider := newScriptedProvider(final("First."), final("Second."))
	r := newTestRunner(t, provider)
	conv := NewConversation()
	conv.SetPage("home")

	res, err := r.Continue(context.Background(), conv, "one")
	require.NoError(t, err)
	assert.Equal(t, "First.", res.Output)
	assert.Equal(t, 2, conv.Len())

	res, err = r.Continue(context.Background(), conv, "two")
	require.NoError(t, err)
	assert.Equal(t, "Second.", res.Output)
	assert.Equal(t, 4, conv.Len())

	// The second run sees the first exchange.
	msgs := provider.lastRequest().Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "First.", msgs[1].Content)
	assert.True(t, strings.HasPrefix(msgs[2].Content, "two\n\nContext:\n"))
}

func TestRunner_ContinueKeepsHistoryOnError(t *testing.T) {
	provider := newScriptedProvider(final("First."))
	r := newTestRunner(t, provider)
	conv := NewConversation()

	_, err := r.Continue(context.Background(), conv, "one")
	require.NoError(t, err)

	_, err = r.Continue(context.Background(), conv, "two")
	require.Error(t, err)
	assert.Equal(t, 2, conv.Len())
}

func TestRunner_Timeout(t *testing.T) {
	r := newTestRunner(t, &blockingProvider{})
	r.Agent.RunTimeout = 20 * time.Millisecond

	_, err := r.RunGoal(context.Background(), "hang", "")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// blockingProvider waits for the context to end.
type blockingProvider struct{ scriptedProvider }

func (p *blockingProvider) Chat(ctx context.Context, _ *llm.ChatRequest) (*llm.ChatResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

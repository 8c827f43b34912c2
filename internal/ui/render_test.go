package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yolodolo42/sitepilot/internal/agent"
)

func TestRenderBlocks(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		out := RenderBlocks(80, []agent.UIBlock{
			agent.TableBlock("Home", []string{"#", "Key", "Title"}, [][]string{
				{"0", "hero", "Hero"},
				{"1", "cta", "Call to action"},
			}),
		})
		assert.Contains(t, out, "Home")
		assert.Contains(t, out, "hero")
		assert.Contains(t, out, "Call to action")
	})

	t.Run("kv", func(t *testing.T) {
		out := RenderBlocks(80, []agent.UIBlock{
			agent.KVBlock("SEO", agent.KVItem{Key: "Score", Value: "80"}, agent.KVItem{Key: "Words", Value: "412"}),
		})
		lines := strings.Split(out, "\n")
		assert.Len(t, lines, 3)
		assert.Contains(t, lines[1], "Score  80")
		assert.Contains(t, lines[2], "Words  412")
	})

	t.Run("kv lines are truncated to width", func(t *testing.T) {
		out := RenderBlocks(20, []agent.UIBlock{
			agent.KVBlock("", agent.KVItem{Key: "Recommendation", Value: strings.Repeat("x", 50)}),
		})
		assert.Equal(t, 20, len([]rune(out)))
		assert.True(t, strings.HasSuffix(out, "..."))
	})

	t.Run("unknown and empty blocks are skipped", func(t *testing.T) {
		out := RenderBlocks(80, []agent.UIBlock{{Kind: "chart"}, {Kind: agent.UIBlockTable}})
		assert.Empty(t, out)
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "he...", truncate("hello world", 5))
	assert.Equal(t, "hel", truncate("hello", 3))
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hello", truncate("hello", 0))
}

func TestRenderMarkdown(t *testing.T) {
	assert.Empty(t, RenderMarkdown("  ", 80))
	assert.Contains(t, RenderMarkdown("Updated the **hero** heading.", 80), "hero")
}

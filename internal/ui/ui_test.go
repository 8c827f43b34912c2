package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func items() []SelectorItem {
	return []SelectorItem{
		{ID: "anthropic", Label: "Anthropic"},
		{ID: "openai", Label: "OpenAI", Current: true},
		{ID: "gemini", Label: "Gemini"},
	}
}

func TestSelector(t *testing.T) {
	t.Run("starts on the current item", func(t *testing.T) {
		s := NewSelector("Pick", items())
		assert.Equal(t, 1, s.Cursor())
		assert.Contains(t, s.View(), "(current)")
	})

	t.Run("navigation wraps", func(t *testing.T) {
		s := NewSelector("Pick", items())
		s.Update(key("down"))
		s.Update(key("down"))
		assert.Equal(t, 0, s.Cursor())
		s.Update(key("up"))
		assert.Equal(t, 2, s.Cursor())
	})

	t.Run("enter selects", func(t *testing.T) {
		s := NewSelector("Pick", items())
		s.Update(key("up"))
		s.Update(key("enter"))
		assert.False(t, s.Active())
		assert.False(t, s.Cancelled())
		assert.Equal(t, "anthropic", s.Selected())
		assert.Empty(t, s.View())
	})

	t.Run("number shortcut", func(t *testing.T) {
		s := NewSelector("Pick", items())
		s.Update(key("3"))
		assert.Equal(t, "gemini", s.Selected())
		assert.False(t, s.Active())
	})

	t.Run("out of range shortcut is ignored", func(t *testing.T) {
		s := NewSelector("Pick", items())
		s.Update(key("7"))
		assert.True(t, s.Active())
	})

	t.Run("esc cancels", func(t *testing.T) {
		s := NewSelector("Pick", items())
		s.Update(key("esc"))
		assert.True(t, s.Cancelled())
		assert.Empty(t, s.Selected())
	})

	t.Run("empty list is inactive", func(t *testing.T) {
		s := NewSelector("Pick", nil)
		assert.False(t, s.Active())
	})
}

func TestPromptHistory(t *testing.T) {
	p := NewPrompt("goal")
	p.SetValue("first")
	assert.Equal(t, "first", p.Submit())
	p.SetValue("second")
	p.Submit()
	assert.Empty(t, p.Value())

	p.SetValue("draft")
	p.Update(key("up"))
	assert.Equal(t, "second", p.Value())
	p.Update(key("up"))
	assert.Equal(t, "first", p.Value())
	p.Update(key("up"))
	assert.Equal(t, "first", p.Value())

	p.Update(key("down"))
	assert.Equal(t, "second", p.Value())
	p.Update(key("down"))
	assert.Equal(t, "draft", p.Value())
}

func TestPromptSkipsRepeatedEntries(t *testing.T) {
	p := NewPrompt("")
	p.SetValue("same")
	p.Submit()
	p.SetValue("same")
	p.Submit()

	p.Update(key("up"))
	p.Update(key("up"))
	assert.Equal(t, "same", p.Value())
	assert.Len(t, p.history, 1)
}

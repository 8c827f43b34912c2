package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const maxHistory = 100

// Prompt is a single-line goal input with a styled prefix. Up and down walk
// through previously submitted goals.
type Prompt struct {
	input   textinput.Model
	width   int
	focused bool

	history []string
	pos     int // len(history) when not browsing
	draft   string
}

func NewPrompt(placeholder string) Prompt {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 2000
	ti.Width = 76
	ti.Focus()

	return Prompt{
		input:   ti,
		width:   80,
		focused: true,
	}
}

func (p *Prompt) Focus() tea.Cmd {
	p.focused = true
	return p.input.Focus()
}

func (p *Prompt) Blur() {
	p.focused = false
	p.input.Blur()
}

func (p *Prompt) Focused() bool {
	return p.focused
}

func (p *Prompt) SetWidth(w int) {
	p.width = w
	p.input.Width = w - 4 // prompt symbol and spacing
}

func (p *Prompt) Value() string {
	return p.input.Value()
}

func (p *Prompt) SetValue(s string) {
	p.input.SetValue(s)
	p.input.CursorEnd()
}

// Submit records the current value in the history and clears the input.
func (p *Prompt) Submit() string {
	v := p.input.Value()
	if v != "" && (len(p.history) == 0 || p.history[len(p.history)-1] != v) {
		p.history = append(p.history, v)
		if len(p.history) > maxHistory {
			p.history = p.history[len(p.history)-maxHistory:]
		}
	}
	p.pos = len(p.history)
	p.draft = ""
	p.input.Reset()
	return v
}

// Update handles history keys and forwards everything else to the input.
func (p *Prompt) Update(msg tea.Msg) (*Prompt, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && p.focused {
		switch key.Type {
		case tea.KeyUp:
			if p.pos > 0 {
				if p.pos == len(p.history) {
					p.draft = p.input.Value()
				}
				p.pos--
				p.SetValue(p.history[p.pos])
			}
			return p, nil
		case tea.KeyDown:
			if p.pos < len(p.history) {
				p.pos++
				if p.pos == len(p.history) {
					p.SetValue(p.draft)
				} else {
					p.SetValue(p.history[p.pos])
				}
			}
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *Prompt) View() string {
	style := DimStyle
	if p.focused {
		style = PromptStyle
	}
	return style.Render(SymbolPrompt) + " " + p.input.View()
}

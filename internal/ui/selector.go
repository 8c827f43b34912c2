package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// SelectorItem is one choice in a Selector.
type SelectorItem struct {
	ID          string
	Label       string
	Description string
	Current     bool
}

// Selector is a vertical list picker. It stays active until the user picks
// an item (enter, or its 1-9 shortcut) or cancels (esc, q).
type Selector struct {
	title    string
	items    []SelectorItem
	cursor   int
	selected int
	active   bool
	width    int
}

// NewSelector starts with the cursor on the item marked Current, if any.
func NewSelector(title string, items []SelectorItem) Selector {
	selected := 0
	for i, item := range items {
		if item.Current {
			selected = i
			break
		}
	}

	return Selector{
		title:    title,
		items:    items,
		cursor:   selected,
		selected: selected,
		active:   len(items) > 0,
		width:    80,
	}
}

func (s *Selector) SetWidth(w int) {
	s.width = w
}

func (s *Selector) Active() bool {
	return s.active
}

// Cursor is the index under the cursor.
func (s *Selector) Cursor() int {
	return s.cursor
}

// Selected returns the chosen item ID, or "" when cancelled.
func (s *Selector) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

func (s *Selector) Cancelled() bool {
	return !s.active && s.selected == -1
}

// Update handles key input.
func (s *Selector) Update(msg tea.Msg) (*Selector, tea.Cmd) {
	if !s.active {
		return s, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch k := key.String(); k {
	case "up", "k":
		s.cursor = (s.cursor - 1 + len(s.items)) % len(s.items)
	case "down", "j", "tab":
		s.cursor = (s.cursor + 1) % len(s.items)
	case "home", "g":
		s.cursor = 0
	case "end", "G":
		s.cursor = len(s.items) - 1
	case "enter":
		s.selected = s.cursor
		s.active = false
	case "esc", "q":
		s.selected = -1
		s.active = false
	default:
		if len(k) == 1 && k[0] >= '1' && k[0] <= '9' {
			if n := int(k[0] - '1'); n < len(s.items) {
				s.cursor = n
				s.selected = n
				s.active = false
			}
		}
	}
	return s, nil
}

// View renders the list, or nothing once a choice was made.
func (s *Selector) View() string {
	if !s.active {
		return ""
	}

	var b strings.Builder
	b.WriteString(HelpStyle.Render(s.title + " (↑/↓ navigate, enter select, esc cancel)"))
	b.WriteString("\n\n")

	labelWidth := 32
	if s.width > 0 && s.width < 60 {
		labelWidth = s.width / 2
	}

	for i, item := range s.items {
		isCursor := i == s.cursor
		if isCursor {
			b.WriteString(SelectorCursor.Render(SymbolArrow) + " ")
		} else {
			b.WriteString("  ")
		}

		display := item.Label
		if display == "" {
			display = item.ID
		}
		label := fmt.Sprintf("%-*s", labelWidth, display)
		if isCursor {
			b.WriteString(SelectorActive.Render(label))
		} else {
			b.WriteString(SelectorItemStyle.Render(label))
		}

		desc := item.Description
		if item.Current {
			desc = strings.TrimSpace(desc + " (current)")
		}
		if desc != "" {
			b.WriteString(DimStyle.Render(desc))
		}
		b.WriteString("\n")
	}
	return b.String()
}

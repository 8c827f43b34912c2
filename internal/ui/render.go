package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/yolodolo42/sitepilot/internal/agent"
)

const maxKeyWidth = 24

// RenderMarkdown renders the agent's reply for the terminal. It falls back
// to the raw text if glamour fails.
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

// RenderBlocks draws tool result blocks. Unknown kinds are skipped.
func RenderBlocks(width int, blocks []agent.UIBlock) string {
	var parts []string
	for _, blk := range blocks {
		switch {
		case blk.Kind == agent.UIBlockTable && blk.Table != nil:
			parts = append(parts, renderTable(width, blk.Table))
		case blk.Kind == agent.UIBlockKV && blk.KV != nil:
			parts = append(parts, renderKV(width, blk.KV))
		}
	}
	return strings.Join(parts, "\n")
}

func renderTable(width int, t *agent.UITable) string {
	if len(t.Headers) == 0 {
		return ""
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(DimStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return SelectorActive.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	if width > 0 {
		tbl = tbl.Width(width)
	}

	if t.Title == "" {
		return tbl.String()
	}
	return TitleStyle.Render(t.Title) + "\n" + tbl.String()
}

func renderKV(width int, kv *agent.UIKV) string {
	keyW := 0
	for _, it := range kv.Items {
		keyW = max(keyW, lipgloss.Width(it.Key))
	}
	keyW = min(keyW, maxKeyWidth)

	var b strings.Builder
	if kv.Title != "" {
		b.WriteString(TitleStyle.Render(kv.Title))
		b.WriteString("\n")
	}
	for i, it := range kv.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		line := fmt.Sprintf("%-*s  %s", keyW, truncate(it.Key, keyW), it.Value)
		b.WriteString(truncate(line, width))
	}
	return b.String()
}

// truncate shortens s to w runes, ending in "...".
func truncate(s string, w int) string {
	r := []rune(s)
	if w <= 0 || len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}

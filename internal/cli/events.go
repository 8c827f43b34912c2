package cli

import (
	"fmt"
	"strings"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/ui"
)

const maxResultPreview = 160

// formatEvent renders one run event as transcript lines. State and content
// events return "" since the final reply is printed separately.
func formatEvent(e agent.Event, width int) string {
	switch e.Type {
	case agent.EventToolCall:
		line := fmt.Sprintf("%s %s %s", ui.SymbolTool, e.Tool, e.Args)
		return ui.ToolCallStyle.Render(oneLine(line, width))

	case agent.EventToolResult:
		if e.IsError {
			return ui.ErrorStyle.Render(fmt.Sprintf("  %s %s", ui.SymbolCross, oneLine(e.Content, width-4)))
		}
		if len(e.Blocks) > 0 {
			return indent(ui.RenderBlocks(width-2, e.Blocks), "  ")
		}
		return ui.ToolResultStyle.Render(fmt.Sprintf("  %s %s", ui.SymbolCheck, oneLine(e.Content, min(width-4, maxResultPreview))))
	}
	return ""
}

// oneLine collapses whitespace and cuts s to w runes.
func oneLine(s string, w int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if w <= 3 || len(r) <= w {
		return s
	}
	return string(r[:w-3]) + "..."
}

func indent(s, prefix string) string {
	if s == "" {
		return ""
	}
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

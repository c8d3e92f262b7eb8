package render

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/seekr/internal/state"
	"github.com/kk-code-lab/seekr/internal/textutil"
)

type helpOverlayEntry struct {
	keys string
	desc string
}

type helpOverlaySection struct {
	title   string
	entries []helpOverlayEntry
}

func buildHelpOverlayLines(state *statepkg.AppState) []string {
	snippetDesc := "Show snippets"
	if state != nil && state.ShowSnippets {
		snippetDesc = "Hide snippets"
	}

	sections := []helpOverlaySection{
		{
			title: "Query",
			entries: []helpOverlayEntry{
				{keys: "/", desc: "Edit text query"},
				{keys: "i", desc: "Edit image path"},
				{keys: "↵", desc: "Run search"},
				{keys: "Ctrl+O", desc: "Toggle AND / OR"},
				{keys: "Ctrl+T", desc: "Cycle file type filter"},
				{keys: "Ctrl+W / Ctrl+U", desc: "Delete word / clear field"},
			},
		},
		{
			title: "Results",
			entries: []helpOverlayEntry{
				{keys: "↑/↓ j/k", desc: "Move selection"},
				{keys: "PgUp/PgDn", desc: "Scroll a screen"},
				{keys: "↵", desc: "Reveal in folder tree"},
				{keys: "d", desc: "Toggle details"},
				{keys: "s", desc: snippetDesc},
				{keys: "n / p", desc: "Next / previous page"},
			},
		},
		{
			title: "Folders",
			entries: []helpOverlayEntry{
				{keys: "Tab", desc: "Switch pane"},
				{keys: "↵", desc: "Filter by folder (again to clear)"},
				{keys: "→ / ←", desc: "Expand / collapse"},
				{keys: "Esc", desc: "Clear folder filter"},
			},
		},
		{
			title: "Files",
			entries: []helpOverlayEntry{
				{keys: "o", desc: "Open preview"},
				{keys: "D", desc: "Download"},
				{keys: "y", desc: "Yank network path to clipboard"},
			},
		},
		{
			title: "Exit",
			entries: []helpOverlayEntry{
				{keys: "q", desc: "Quit"},
				{keys: "Ctrl+Z", desc: "Suspend to shell"},
				{keys: "Ctrl+C", desc: "Quit immediately"},
				{keys: "?", desc: "Close this help"},
			},
		},
	}

	lines := make([]string, 0, 32)
	for i, section := range sections {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, section.title)
		for _, entry := range section.entries {
			lines = append(lines, formatHelpOverlayEntry(entry))
		}
	}

	return lines
}

func formatHelpOverlayEntry(entry helpOverlayEntry) string {
	key := textutil.SanitizeTerminalText(entry.keys)
	desc := textutil.SanitizeTerminalText(entry.desc)
	return fmt.Sprintf("  %-16s %s", key, desc)
}

func (r *Renderer) drawHelpOverlay(state *statepkg.AppState, w, h int) {
	baseStyle := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)
	for y := 0; y < h; y++ {
		r.fillLine(0, y, w, baseStyle)
	}

	title := " Help "
	headerStyle := baseStyle.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg).Bold(true)
	titleStart := 0
	titleWidth := r.measureTextWidth(title)
	if w > titleWidth {
		titleStart = (w - titleWidth) / 2
	}
	r.drawTextLine(titleStart, 0, w-titleStart, title, headerStyle)

	lines := buildHelpOverlayLines(state)
	row := 2
	maxRow := h - 1
	for _, line := range lines {
		if row >= maxRow {
			break
		}
		text := strings.TrimRight(line, " ")
		text = r.truncateTextToWidth(text, w-4)
		r.drawTextLine(2, row, w-4, text, baseStyle)
		row++
	}

	footer := "? toggle · Esc/q close"
	if h > 0 {
		footerText := r.truncateTextToWidth(footer, w)
		r.drawTextLine(0, h-1, w, footerText, headerStyle)
	}
}

package render

import (
	"strings"

	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

// buildFooterHelpText returns the contextual footer hint string with leading/trailing padding.
func buildFooterHelpText(state *statepkg.AppState) string {
	parts := buildFooterHelpSegments(state)
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, "  ") + " "
}

// buildFooterHelpSegments assembles focus-aware help hints for the footer.
func buildFooterHelpSegments(state *statepkg.AppState) []string {
	if state == nil {
		return nil
	}

	segments := contextualHelpSegments(state)
	segments = append(segments, persistentHelpSegments(state)...)

	return segments
}

func contextualHelpSegments(state *statepkg.AppState) []string {
	switch state.Focus {
	case statepkg.FocusQuery, statepkg.FocusImage:
		return []string{
			"↵: search",
			"Tab: next field",
			"^O: and/or",
			"^T: type",
			"Esc: results",
		}
	case statepkg.FocusTree:
		return []string{
			"↵: filter folder",
			"→/←: open/close",
			"Esc: clear filter",
			"Tab: results",
		}
	default:
		segments := []string{
			"↵: reveal",
			"d: details",
			"o: open",
			"/: query",
		}
		if state.TotalPages() > 1 {
			segments = append(segments, "n/p: page")
		}
		return segments
	}
}

func persistentHelpSegments(state *statepkg.AppState) []string {
	if state.Focus == statepkg.FocusQuery || state.Focus == statepkg.FocusImage {
		return nil
	}
	var segments []string
	if state.ClipboardAvailable {
		segments = append(segments, "y: yank path")
	}
	return append(segments, "?: help")
}

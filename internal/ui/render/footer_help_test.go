package render

import (
	"strings"
	"testing"

	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

func TestFooterHelpFollowsFocus(t *testing.T) {
	tests := []struct {
		name    string
		state   *statepkg.AppState
		want    []string
		missing []string
	}{
		{
			name:    "query field",
			state:   &statepkg.AppState{Focus: statepkg.FocusQuery, ClipboardAvailable: true},
			want:    []string{"↵: search", "^O: and/or"},
			missing: []string{"y: yank path", "?: help"},
		},
		{
			name:  "tree",
			state: &statepkg.AppState{Focus: statepkg.FocusTree},
			want:  []string{"↵: filter folder", "?: help"},
		},
		{
			name:    "results without clipboard",
			state:   &statepkg.AppState{Focus: statepkg.FocusResults},
			want:    []string{"d: details"},
			missing: []string{"y: yank path", "n/p: page"},
		},
		{
			name:  "results with clipboard",
			state: &statepkg.AppState{Focus: statepkg.FocusResults, ClipboardAvailable: true},
			want:  []string{"y: yank path"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := buildFooterHelpText(tt.state)
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Fatalf("expected %q in footer %q", w, text)
				}
			}
			for _, m := range tt.missing {
				if strings.Contains(text, m) {
					t.Fatalf("did not expect %q in footer %q", m, text)
				}
			}
		})
	}
}

func TestFooterHelpNilState(t *testing.T) {
	if got := buildFooterHelpText(nil); got != "" {
		t.Fatalf("expected empty footer, got %q", got)
	}
}

package app

import (
	"strings"
	"testing"

	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/search"
	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

func TestClipboardPathPrefersUNC(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"documents/road/ts-server3/R06_JOB/a.xdw", `\\ts-server3\share\R06_JOB\a.xdw`},
		{"a/b.pdf", "a/b.pdf"},
	}
	for _, tt := range tests {
		if got := clipboardPath(pathnorm.Default(), search.RawHit{StoragePath: tt.raw}); got != tt.want {
			t.Fatalf("clipboardPath(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
	if got := clipboardPath(nil, search.RawHit{StoragePath: "a/b.pdf"}); got != "a/b.pdf" {
		t.Fatalf("nil normalizer: got %q", got)
	}
}

func TestHandleClipboardSetsLastErrorOnFailure(t *testing.T) {
	app := newTestApp(t, &fakeBackend{hits: testHits()})
	searchWithResults(t, app, "plan")
	app.clipboardAvail = true
	app.clipboardCmd = []string{"fake-clip", "--flag"}

	var recorded []string
	withFakeCommandBuilder(t, 7, &recorded, func() {
		app.handleClipboard()
	})

	if app.state.LastError == nil {
		t.Fatalf("expected clipboard failure to set LastError")
	}
	if got := app.state.LastError.Error(); !strings.Contains(got, "fake-clip") {
		t.Fatalf("expected error mentioning command, got %q", got)
	}
	if !app.state.LastYankTime.IsZero() {
		t.Fatalf("expected LastYankTime to remain zero on failure")
	}
	assertCommandRecorded(t, recorded, []string{"fake-clip", "--flag"})
}

func TestHandleClipboardUpdatesYankTimeOnSuccess(t *testing.T) {
	app := newTestApp(t, &fakeBackend{hits: testHits()})
	searchWithResults(t, app, "plan")
	app.clipboardAvail = true
	app.clipboardCmd = []string{"fake-clip"}

	var recorded []string
	withFakeCommandBuilder(t, 0, &recorded, func() {
		app.handleAction(statepkg.YankPathAction{})
	})

	if app.state.LastYankTime.IsZero() {
		t.Fatalf("expected LastYankTime to update on success")
	}
	if app.state.LastError != nil {
		t.Fatalf("expected LastError to remain nil on success, got %v", app.state.LastError)
	}
	assertCommandRecorded(t, recorded, []string{"fake-clip"})
}

func TestHandleClipboardWithoutCommand(t *testing.T) {
	app := newTestApp(t, &fakeBackend{hits: testHits()})
	searchWithResults(t, app, "plan")
	app.clipboardAvail = false
	app.clipboardCmd = nil

	app.handleClipboard()
	if app.state.Notice == "" {
		t.Fatalf("expected a notice when no clipboard command exists")
	}
	if !app.state.LastYankTime.IsZero() {
		t.Fatalf("expected no yank")
	}
}

func TestPreviewLocatesAndOpens(t *testing.T) {
	app := newTestApp(t, &fakeBackend{hits: testHits()})
	searchWithResults(t, app, "plan")
	app.openerCmd = []string{"fake-open", "--new"}

	app.handleAction(statepkg.PreviewAction{})
	located, ok := nextAction(t, app).(statepkg.LocateResultAction)
	if !ok {
		t.Fatalf("expected LocateResultAction")
	}
	if located.Download || located.Target != "https://files.example.com/p/1" {
		t.Fatalf("unexpected locate result %+v", located)
	}

	var recorded []string
	withFakeCommandBuilder(t, 0, &recorded, func() {
		app.handleAction(located)
	})
	assertCommandRecorded(t, recorded, []string{"fake-open", "--new", "https://files.example.com/p/1"})
	if app.state.Notice != "opened https://files.example.com/p/1" {
		t.Fatalf("expected opened notice, got %q", app.state.Notice)
	}
}

func TestDownloadUsesDownloadTarget(t *testing.T) {
	app := newTestApp(t, &fakeBackend{hits: testHits()})
	searchWithResults(t, app, "plan")
	app.handleAction(statepkg.ListMoveAction{Delta: 1})

	app.handleAction(statepkg.DownloadAction{})
	located, ok := nextAction(t, app).(statepkg.LocateResultAction)
	if !ok {
		t.Fatalf("expected LocateResultAction")
	}
	if !located.Download || located.Target != "https://files.example.com/d/2" {
		t.Fatalf("unexpected locate result %+v", located)
	}
}

func TestLocateWithoutOpenerReportsError(t *testing.T) {
	app := newTestApp(t, &fakeBackend{hits: testHits()})
	app.openerCmd = nil

	app.handleAction(statepkg.LocateResultAction{HitID: "1", Target: "https://x"})
	if app.state.LastError == nil {
		t.Fatalf("expected error without an opener")
	}
}

func TestPreviewWithoutBackend(t *testing.T) {
	app := newTestApp(t, nil)
	app.state.Visible = testHits()

	app.handleLocate(false)
	if app.state.LastError != errNoBackend {
		t.Fatalf("expected errNoBackend, got %v", app.state.LastError)
	}
}

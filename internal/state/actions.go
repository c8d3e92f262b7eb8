package state

import "github.com/kk-code-lab/seekr/internal/search"

// Action is the base interface for all state mutations
type Action interface{}

// ===== FIELD EDITING ACTIONS =====

// Editing actions apply to the focused text field.
type InsertRuneAction struct {
	Rune rune
}
type BackspaceAction struct{}
type DeleteAction struct{}
type DeleteWordAction struct{}
type ClearFieldAction struct{}
type MoveCursorAction struct {
	Direction string // "left", "right", "word-left", "word-right", "home", "end"
}

type FocusAction struct {
	Focus Focus
}
type FocusNextAction struct{}
type FocusPrevAction struct{}

// ===== QUERY ACTIONS =====

type SubmitQueryAction struct{}
type ToggleMatchModeAction struct{}
type CycleFileTypeAction struct{}
type NextPageAction struct{}
type PrevPageAction struct{}

// EmbeddingResultAction reports the embedding of the query image.
type EmbeddingResultAction struct {
	Generation uint64
	Path       string
	Embedding  []float32
	Err        error
}

// SearchResultAction reports a finished search.
type SearchResultAction struct {
	Generation uint64
	Query      search.Query
	Options    search.Options
	Page       *search.Page
	Err        error
}

// ===== RESULT LIST ACTIONS =====

type ListMoveAction struct {
	Delta int
}
type ListPageAction struct {
	Direction int // -1 up, +1 down
}
type ListHomeAction struct{}
type ListEndAction struct{}
type ListScrollAction struct {
	Lines int
}
type ListSelectIndexAction struct {
	Index int
}
type ActivateResultAction struct{}
type ToggleDetailAction struct{}
type ToggleSnippetsAction struct{}

// ===== TREE ACTIONS =====

type TreeMoveAction struct {
	Delta int
}
type TreeSelectIndexAction struct {
	Index int
}
type TreeActivateAction struct{}
type TreeExpandAction struct{}
type TreeCollapseAction struct{}
type ClearFolderAction struct{}

// ===== FILE ACTIONS =====

// These are intercepted by the application, which owns the clipboard and
// the OS opener.
type PreviewAction struct{}
type DownloadAction struct{}
type YankPathAction struct{}

// LocateResultAction reports the URL or path for a preview or download.
type LocateResultAction struct {
	HitID    string
	Target   string
	Download bool
	Err      error
}

// ===== VIEW ACTIONS =====

type ResizeAction struct {
	Width  int
	Height int
}
type HelpToggleAction struct{}
type HelpHideAction struct{}

// NoticeAction sets the transient status message.
type NoticeAction struct {
	Text string
}

// ===== APPLICATION ACTIONS =====

type QuitAction struct{}
type SuspendAction struct{}

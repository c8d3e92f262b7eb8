package state

import (
	"time"

	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/selection"
	"github.com/kk-code-lab/seekr/internal/tree"
	"github.com/kk-code-lab/seekr/internal/virtual"
)

// Focus is the pane receiving keyboard input.
type Focus int

const (
	FocusQuery Focus = iota
	FocusImage
	FocusResults
	FocusTree
)

func (f Focus) String() string {
	switch f {
	case FocusQuery:
		return "query"
	case FocusImage:
		return "image"
	case FocusResults:
		return "results"
	case FocusTree:
		return "tree"
	}
	return "unknown"
}

// Screen rows reserved outside the list and tree panes.
const (
	HeaderRows = 2
	StatusRows = 1
)

// DetailRows is how many lines an expanded result adds.
const DetailRows = 2

// ListRow places one realized result row in the list pane. Y is the
// line relative to the pane top and is negative for overscan rows above it.
type ListRow struct {
	Index  int
	Y      int
	Height int
}

// AppState is the single source of truth
type AppState struct {
	// Query fields
	Query       string
	QueryCursor int
	ImagePath   string
	ImageCursor int
	Match       search.MatchMode
	FileType    string
	Focus       Focus

	// Search lifecycle
	Results    *search.ResultSet
	PageNumber int
	Searching  bool
	Embedding  bool
	PendingGen uint64

	// Derived views
	Tree       []*tree.Node
	TreeRows   []tree.Row
	Reconciled []search.RawHit
	Visible    []search.RawHit
	Expanded   map[string]bool

	// Tree pane
	TreeIndex  int
	TreeScroll int

	// Result list; ListScroll is in screen lines
	ListIndex    int
	ListScroll   int
	ListWindow   virtual.Window
	ListRows     []ListRow
	Details      map[string]bool
	ShowSnippets bool

	Selection selection.State

	// Dimensions
	ScreenWidth  int
	ScreenHeight int

	HelpVisible bool

	// Status line
	ClipboardAvailable bool
	LastYankTime       time.Time
	Notice             string

	// Error state
	LastError error

	dispatchAction func(Action)
}

// SetDispatch installs the hook background work uses to report back.
func (s *AppState) SetDispatch(fn func(Action)) {
	s.dispatchAction = fn
}

func (s *AppState) dispatch(a Action) {
	if s.dispatchAction != nil {
		s.dispatchAction(a)
	}
}

// PaneRows is the height of the tree and list panes.
func (s *AppState) PaneRows() int {
	rows := s.ScreenHeight - HeaderRows - StatusRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

// CurrentHit returns the result under the list cursor.
func (s *AppState) CurrentHit() (search.RawHit, bool) {
	if s.ListIndex < 0 || s.ListIndex >= len(s.Visible) {
		return search.RawHit{}, false
	}
	return s.Visible[s.ListIndex], true
}

// CurrentTreeRow returns the tree row under the tree cursor.
func (s *AppState) CurrentTreeRow() (tree.Row, bool) {
	if s.TreeIndex < 0 || s.TreeIndex >= len(s.TreeRows) {
		return tree.Row{}, false
	}
	return s.TreeRows[s.TreeIndex], true
}

// Mode is the mode of the displayed results, or the mode the inputs would
// produce when nothing has been searched yet.
func (s *AppState) Mode() search.Mode {
	if s.Results != nil {
		return s.Results.Mode()
	}
	switch {
	case s.ImagePath != "" && s.Query != "":
		return search.ModeHybrid
	case s.ImagePath != "":
		return search.ModeImage
	}
	return search.ModeText
}

// Total is the backend's match count for the current query.
func (s *AppState) Total() int {
	if s.Results == nil {
		return 0
	}
	return s.Results.Page.Total
}

// TotalPages is the page count reported with the current results.
func (s *AppState) TotalPages() int {
	if s.Results == nil {
		return 0
	}
	return s.Results.Page.TotalPages()
}

// Busy reports whether a query is in flight.
func (s *AppState) Busy() bool { return s.Searching || s.Embedding }

// RowHeight is the number of screen lines result hit occupies.
func (s *AppState) RowHeight(hit search.RawHit) int {
	h := 1
	if s.ShowSnippets && hit.Snippet != "" {
		h++
	}
	if s.Details[hit.ID] {
		h += DetailRows
	}
	return h
}

// ListIndexAtLine returns the visible result drawn at pane line y, or -1.
func (s *AppState) ListIndexAtLine(y int) int {
	for _, row := range s.ListRows {
		if y >= row.Y && y < row.Y+row.Height {
			return row.Index
		}
	}
	return -1
}

// TreeIndexAtLine returns the tree row drawn at pane line y, or -1.
func (s *AppState) TreeIndexAtLine(y int) int {
	i := s.TreeScroll + y
	if y < 0 || i >= len(s.TreeRows) {
		return -1
	}
	return i
}

package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/kk-code-lab/seekr/internal/reconcile"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/selection"
	"github.com/kk-code-lab/seekr/internal/tree"
	"github.com/kk-code-lab/seekr/internal/virtual"
)

// ErrNoExecutor reports a query submitted without a backend.
var ErrNoExecutor = errors.New("no search backend configured")

// Executor runs blocking work off the event loop. Implementations report
// back by dispatching EmbeddingResultAction and SearchResultAction carrying
// the generation they were given.
type Executor interface {
	Embed(gen uint64, imagePath string)
	Search(gen uint64, q search.Query, opts search.Options)
}

// Deps are the collaborators of the reducer.
type Deps struct {
	Projector   *tree.Projector
	Thresholds  reconcile.Thresholds
	Coordinator *selection.Coordinator
	Executor    Executor
	PageSize    int
	Overscan    int
	FileTypes   []string
	// Stat reports the query image's size and modification time. Defaults
	// to os.Stat.
	Stat func(path string) (fs.FileInfo, error)
}

// DefaultFileTypes is the file-type filter cycle; "" means any.
var DefaultFileTypes = []string{"", "pdf", "docx", "xlsx", "xdw", "jpg", "dwg"}

// fileStamp identifies one version of a file on disk.
type fileStamp struct {
	size    int64
	modTime time.Time
	ok      bool
}

func (s fileStamp) same(o fileStamp) bool {
	return s.ok && o.ok && s.size == o.size && s.modTime.Equal(o.modTime)
}

type embeddingCache struct {
	path  string
	stamp fileStamp
	vec   []float32
}

// ===== REDUCER =====

// StateReducer applies actions to state
type StateReducer struct {
	projector  *tree.Projector
	thresholds reconcile.Thresholds
	coord      *selection.Coordinator
	executor   Executor
	pageSize   int
	fileTypes  []string
	stat       func(string) (fs.FileInfo, error)

	gens    search.Generations
	virt    *virtual.Virtualizer
	memo    memo
	reveals []string
	embed   embeddingCache
	// pendingStamp is the image stamp taken when its embedding was requested.
	pendingStamp fileStamp
	// seedExpansion opens the default tree levels on the next rebuild.
	seedExpansion bool
}

// NewStateReducer creates a new reducer
func NewStateReducer(deps Deps) *StateReducer {
	r := &StateReducer{
		projector:  deps.Projector,
		thresholds: deps.Thresholds,
		coord:      deps.Coordinator,
		executor:   deps.Executor,
		pageSize:   deps.PageSize,
		fileTypes:  deps.FileTypes,
		stat:       deps.Stat,
		virt:       virtual.New(1, deps.Overscan),
	}
	if r.projector == nil {
		r.projector = tree.NewProjector()
	}
	if r.thresholds == (reconcile.Thresholds{}) {
		r.thresholds = reconcile.DefaultThresholds()
	}
	if r.coord == nil {
		r.coord = selection.NewCoordinator(nil)
	}
	if r.coord.Reveal == nil {
		r.coord.Reveal = r.queueReveal
	}
	if r.pageSize <= 0 {
		r.pageSize = search.DefaultPageSize
	}
	if len(r.fileTypes) == 0 {
		r.fileTypes = DefaultFileTypes
	}
	if r.stat == nil {
		r.stat = os.Stat
	}
	return r
}

func (r *StateReducer) stampOf(path string) fileStamp {
	info, err := r.stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime(), ok: true}
}

// Coordinator returns the selection coordinator shared by both panes.
func (r *StateReducer) Coordinator() *selection.Coordinator { return r.coord }

// Projector returns the tree projector, which also maps hits to paths.
func (r *StateReducer) Projector() *tree.Projector { return r.projector }

func (r *StateReducer) queueReveal(p string) {
	r.reveals = append(r.reveals, p)
}

// Reduce applies an action to state and returns new state
func (r *StateReducer) Reduce(state *AppState, action Action) (*AppState, error) {
	err := r.reduce(state, action)
	if err != nil {
		state.LastError = err
	}
	r.applyReveals(state)
	r.derive(state)
	r.updateWindow(state)
	return state, err
}

// Refresh recomputes derived views without applying an action.
func (r *StateReducer) Refresh(state *AppState) {
	r.derive(state)
	r.updateWindow(state)
}

func (r *StateReducer) reduce(state *AppState, action Action) error {
	switch a := action.(type) {

	// ===== FIELD EDITING =====

	case InsertRuneAction:
		if f, ok := state.focusedField(); ok {
			f.insert(a.Rune)
		}
		return nil

	case BackspaceAction:
		if f, ok := state.focusedField(); ok {
			f.backspace()
		}
		return nil

	case DeleteAction:
		if f, ok := state.focusedField(); ok {
			f.deleteForward()
		}
		return nil

	case DeleteWordAction:
		if f, ok := state.focusedField(); ok {
			f.deleteWord()
		}
		return nil

	case ClearFieldAction:
		if f, ok := state.focusedField(); ok {
			f.set(nil, 0)
		}
		return nil

	case MoveCursorAction:
		if f, ok := state.focusedField(); ok {
			f.move(a.Direction)
		}
		return nil

	case FocusAction:
		state.Focus = a.Focus
		return nil

	case FocusNextAction:
		state.Focus = (state.Focus + 1) % 4
		return nil

	case FocusPrevAction:
		state.Focus = (state.Focus + 3) % 4
		return nil

	// ===== QUERY =====

	case SubmitQueryAction:
		return r.submit(state, 1)

	case ToggleMatchModeAction:
		if state.Match == search.MatchAll {
			state.Match = search.MatchAny
		} else {
			state.Match = search.MatchAll
		}
		return nil

	case CycleFileTypeAction:
		state.FileType = r.nextFileType(state.FileType)
		return nil

	case NextPageAction:
		if state.Results == nil || state.Busy() {
			return nil
		}
		next := state.PageNumber + 1
		if pages := state.TotalPages(); pages > 0 && next > pages {
			return nil
		}
		r.repage(state, next)
		return nil

	case PrevPageAction:
		if state.Results == nil || state.Busy() || state.PageNumber <= 1 {
			return nil
		}
		r.repage(state, state.PageNumber-1)
		return nil

	case EmbeddingResultAction:
		return r.applyEmbedding(state, a)

	case SearchResultAction:
		return r.applySearchResult(state, a)

	// ===== RESULT LIST =====

	case ListMoveAction:
		r.moveList(state, state.ListIndex+a.Delta)
		return nil

	case ListPageAction:
		rows := state.PaneRows()
		if a.Direction < 0 {
			target := r.virt.IndexAt(state.ListScroll - rows)
			if target >= state.ListIndex {
				target = state.ListIndex - 1
			}
			r.moveList(state, target)
		} else {
			target := r.virt.IndexAt(state.ListScroll + 2*rows - 1)
			if target <= state.ListIndex {
				target = state.ListIndex + 1
			}
			r.moveList(state, target)
		}
		return nil

	case ListHomeAction:
		r.moveList(state, 0)
		return nil

	case ListEndAction:
		r.moveList(state, len(state.Visible)-1)
		return nil

	case ListScrollAction:
		state.ListScroll = r.virt.ClampScroll(state.ListScroll+a.Lines, state.PaneRows())
		return nil

	case ListSelectIndexAction:
		if a.Index >= 0 && a.Index < len(state.Visible) {
			state.ListIndex = a.Index
			state.Focus = FocusResults
			r.ensureListCursorVisible(state)
		}
		return nil

	case ActivateResultAction:
		hit, ok := state.CurrentHit()
		if !ok {
			return nil
		}
		p, ok := r.projector.PathOf(hit)
		if !ok {
			return nil
		}
		r.selectFile(state, p)
		return nil

	case ToggleDetailAction:
		hit, ok := state.CurrentHit()
		if !ok || hit.ID == "" {
			return nil
		}
		if state.Details == nil {
			state.Details = make(map[string]bool)
		}
		if state.Details[hit.ID] {
			delete(state.Details, hit.ID)
		} else {
			state.Details[hit.ID] = true
		}
		r.measure(state, state.ListIndex)
		r.ensureListCursorVisible(state)
		return nil

	case ToggleSnippetsAction:
		state.ShowSnippets = !state.ShowSnippets
		r.remeasure(state)
		r.ensureListCursorVisible(state)
		return nil

	// ===== TREE =====

	case TreeMoveAction:
		state.TreeIndex += a.Delta
		return nil

	case TreeSelectIndexAction:
		if a.Index >= 0 && a.Index < len(state.TreeRows) {
			state.TreeIndex = a.Index
			state.Focus = FocusTree
		}
		return nil

	case TreeActivateAction:
		row, ok := state.CurrentTreeRow()
		if !ok {
			return nil
		}
		if row.Node.IsFolder() {
			r.coord.SelectFolder(row.Node.Path)
			state.ListIndex = 0
			state.ListScroll = 0
			return nil
		}
		r.selectFile(state, row.Node.Path)
		return nil

	case TreeExpandAction:
		row, ok := state.CurrentTreeRow()
		if !ok || !row.Node.IsFolder() {
			return nil
		}
		if state.Expanded == nil {
			state.Expanded = make(map[string]bool)
		}
		if state.Expanded[row.Node.Path] && len(row.Node.Children) > 0 {
			state.TreeIndex++
			return nil
		}
		state.Expanded[row.Node.Path] = true
		return nil

	case TreeCollapseAction:
		row, ok := state.CurrentTreeRow()
		if !ok {
			return nil
		}
		if row.Node.IsFolder() && state.Expanded[row.Node.Path] {
			delete(state.Expanded, row.Node.Path)
			return nil
		}
		if ancestors := tree.Ancestors(row.Node.Path); len(ancestors) > 0 {
			parent := ancestors[len(ancestors)-1]
			if i := treeRowIndex(state.TreeRows, parent); i >= 0 {
				state.TreeIndex = i
			}
		}
		return nil

	case ClearFolderAction:
		r.coord.ClearFolder()
		return nil

	case LocateResultAction:
		if a.Err != nil {
			return a.Err
		}
		verb := "opened"
		if a.Download {
			verb = "downloading"
		}
		state.Notice = verb + " " + a.Target
		return nil

	// ===== VIEW =====

	case ResizeAction:
		state.ScreenWidth = a.Width
		state.ScreenHeight = a.Height
		r.ensureListCursorVisible(state)
		return nil

	case HelpToggleAction:
		state.HelpVisible = !state.HelpVisible
		return nil

	case HelpHideAction:
		state.HelpVisible = false
		return nil

	case NoticeAction:
		state.Notice = a.Text
		return nil
	}
	return nil
}

func (r *StateReducer) nextFileType(current string) string {
	for i, t := range r.fileTypes {
		if strings.EqualFold(t, current) {
			return r.fileTypes[(i+1)%len(r.fileTypes)]
		}
	}
	return r.fileTypes[0]
}

// submit starts the query described by the fields for page. Image queries
// embed the image first unless its embedding is still cached.
func (r *StateReducer) submit(state *AppState, page int) error {
	text := strings.TrimSpace(state.Query)
	img := strings.TrimSpace(state.ImagePath)
	if text == "" && img == "" {
		return search.ErrEmptyQuery
	}
	if r.executor == nil {
		return ErrNoExecutor
	}

	gen := r.gens.Next()
	state.PendingGen = gen
	state.PageNumber = page
	state.Searching = true
	state.Embedding = false
	state.LastError = nil
	state.Notice = ""

	if img == "" {
		q, err := search.NewTextQuery(text, state.Match)
		if err != nil {
			state.Searching = false
			return err
		}
		r.runSearch(state, gen, q)
		return nil
	}

	stamp := r.stampOf(img)
	if r.embed.path == img && r.embed.vec != nil && r.embed.stamp.same(stamp) {
		return r.searchWithEmbedding(state, gen, r.embed.vec)
	}
	r.embed = embeddingCache{}
	r.pendingStamp = stamp
	state.Embedding = true
	r.executor.Embed(gen, img)
	return nil
}

// repage reruns the displayed query for another page. The fields may have
// been edited since, so the query is taken from the result set.
func (r *StateReducer) repage(state *AppState, page int) {
	if r.executor == nil {
		return
	}
	gen := r.gens.Next()
	state.PendingGen = gen
	state.Searching = true
	state.Embedding = false
	state.LastError = nil
	opts := state.Results.Options
	opts.Page = page
	r.executor.Search(gen, state.Results.Query, opts)
}

func (r *StateReducer) runSearch(state *AppState, gen uint64, q search.Query) {
	opts := search.Options{Page: state.PageNumber, PageSize: r.pageSize, FileType: state.FileType}
	r.executor.Search(gen, q, opts)
}

func (r *StateReducer) searchWithEmbedding(state *AppState, gen uint64, vec []float32) error {
	q, err := search.NewImageQuery(vec, state.Query)
	if err != nil {
		state.Searching = false
		return err
	}
	r.runSearch(state, gen, q)
	return nil
}

func (r *StateReducer) applyEmbedding(state *AppState, a EmbeddingResultAction) error {
	if !r.gens.IsCurrent(a.Generation) {
		return nil
	}
	state.Embedding = false
	if a.Err != nil {
		state.Searching = false
		return fmt.Errorf("embed image: %w", a.Err)
	}
	if r.pendingStamp.ok {
		r.embed = embeddingCache{path: a.Path, stamp: r.pendingStamp, vec: a.Embedding}
	}
	return r.searchWithEmbedding(state, a.Generation, a.Embedding)
}

// applySearchResult installs a finished search unless a newer one has been
// started since. Failures keep the previous results.
func (r *StateReducer) applySearchResult(state *AppState, a SearchResultAction) error {
	if !r.gens.IsCurrent(a.Generation) {
		return nil
	}
	state.Searching = false
	if a.Err != nil {
		return fmt.Errorf("search: %w", a.Err)
	}
	if a.Page == nil {
		return errors.New("search: backend returned no page")
	}

	state.Results = &search.ResultSet{
		Generation: a.Generation,
		Query:      a.Query,
		Options:    a.Options,
		Page:       *a.Page,
		ReceivedAt: time.Now(),
	}
	if a.Page.Page > 0 {
		state.PageNumber = a.Page.Page
	}
	r.coord.Reset()
	state.ListIndex = 0
	state.ListScroll = 0
	state.TreeIndex = 0
	state.TreeScroll = 0
	state.Details = nil
	state.Expanded = nil
	r.seedExpansion = true
	if state.Focus == FocusQuery || state.Focus == FocusImage {
		state.Focus = FocusResults
	}
	return nil
}

func (r *StateReducer) moveList(state *AppState, target int) {
	n := len(state.Visible)
	if n == 0 {
		return
	}
	if target < 0 {
		target = 0
	}
	if target > n-1 {
		target = n - 1
	}
	state.ListIndex = target
	r.ensureListCursorVisible(state)
}

// selectFile highlights p in both panes.
func (r *StateReducer) selectFile(state *AppState, p string) {
	r.coord.SelectFile(p)
	r.applyReveals(state)
	r.derive(state)
	if i := r.indexOfPath(state, p); i >= 0 {
		state.ListIndex = i
		r.ensureListCursorVisible(state)
	}
	if i := treeRowIndex(state.TreeRows, p); i >= 0 {
		state.TreeIndex = i
	}
}

// applyReveals expands the ancestors of every path the coordinator asked to
// reveal.
func (r *StateReducer) applyReveals(state *AppState) {
	if len(r.reveals) == 0 {
		return
	}
	if state.Expanded == nil {
		state.Expanded = make(map[string]bool)
	}
	for _, p := range r.reveals {
		for _, anc := range tree.Ancestors(p) {
			state.Expanded[anc] = true
		}
	}
	r.reveals = r.reveals[:0]
}

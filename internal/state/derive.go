package state

import (
	"github.com/kk-code-lab/seekr/internal/reconcile"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/selection"
	"github.com/kk-code-lab/seekr/internal/tree"
)

// defaultExpandDepth is how many tree levels open for fresh results.
const defaultExpandDepth = 2

// memo caches the tree, the reconciled list and the folder-filtered list.
// Tree and reconciled list are keyed by the identity of the result set; the
// filtered list additionally by the selected folder.
type memo struct {
	results *search.ResultSet
	folder  string
	valid   bool

	tree       []*tree.Node
	reconciled []search.RawHit
	visible    []search.RawHit

	// Recompute counters.
	builds  int
	filters int
}

// derive refreshes the derived views and reports whether the visible list
// changed.
func (r *StateReducer) derive(state *AppState) bool {
	sel := r.coord.State()
	state.Selection = sel
	m := &r.memo

	visibleChanged := false
	if !m.valid || m.results != state.Results {
		m.results = state.Results
		m.tree = nil
		m.reconciled = nil
		if state.Results != nil {
			hits := state.Results.Hits()
			mode := state.Results.Mode()
			m.tree = r.projector.Build(hits)
			m.reconciled = reconcile.Reconcile(hits, mode, r.thresholds.For(mode))
		}
		if r.seedExpansion {
			r.seedExpansion = false
			if expanded := expandDefault(m.tree); len(expanded) > 0 {
				state.Expanded = expanded
			}
		}
		m.builds++
		m.valid = true
		m.folder = sel.SelectedFolder
		m.visible = selection.Filter(m.reconciled, m.folder, r.projector.PathOf)
		m.filters++
		visibleChanged = true
	} else if m.folder != sel.SelectedFolder {
		m.folder = sel.SelectedFolder
		m.visible = selection.Filter(m.reconciled, m.folder, r.projector.PathOf)
		m.filters++
		visibleChanged = true
	}

	state.Tree = m.tree
	state.Reconciled = m.reconciled
	state.Visible = m.visible
	state.TreeRows = tree.Flatten(state.Tree, state.Expanded)

	if visibleChanged {
		r.remeasure(state)
	}
	return visibleChanged
}

// remeasure loads every visible row height into the virtualizer.
func (r *StateReducer) remeasure(state *AppState) {
	r.virt.SetCount(len(state.Visible))
	for i, hit := range state.Visible {
		if h := state.RowHeight(hit); h != 1 {
			r.virt.Measure(i, h)
		}
	}
}

// measure updates the height of one visible row.
func (r *StateReducer) measure(state *AppState, i int) {
	if i < 0 || i >= len(state.Visible) {
		return
	}
	r.virt.Measure(i, state.RowHeight(state.Visible[i]))
}

// updateWindow clamps cursors and scroll offsets to the current views.
func (r *StateReducer) updateWindow(state *AppState) {
	rows := state.PaneRows()

	if n := len(state.Visible); n == 0 {
		state.ListIndex = 0
	} else if state.ListIndex >= n {
		state.ListIndex = n - 1
	} else if state.ListIndex < 0 {
		state.ListIndex = 0
	}
	state.ListScroll = r.virt.ClampScroll(state.ListScroll, rows)
	state.ListWindow = r.virt.Window(state.ListScroll, rows)
	state.ListRows = state.ListRows[:0]
	for i := state.ListWindow.Start; i <= state.ListWindow.End; i++ {
		state.ListRows = append(state.ListRows, ListRow{
			Index:  i,
			Y:      r.virt.Offset(i) - state.ListScroll,
			Height: r.virt.Height(i),
		})
	}

	if n := len(state.TreeRows); n == 0 {
		state.TreeIndex = 0
	} else if state.TreeIndex >= n {
		state.TreeIndex = n - 1
	} else if state.TreeIndex < 0 {
		state.TreeIndex = 0
	}
	if state.TreeIndex < state.TreeScroll {
		state.TreeScroll = state.TreeIndex
	}
	if state.TreeIndex >= state.TreeScroll+rows {
		state.TreeScroll = state.TreeIndex - rows + 1
	}
	if limit := len(state.TreeRows) - rows; state.TreeScroll > limit {
		state.TreeScroll = limit
	}
	if state.TreeScroll < 0 {
		state.TreeScroll = 0
	}
}

func (r *StateReducer) ensureListCursorVisible(state *AppState) {
	state.ListScroll = r.virt.EnsureVisible(state.ListIndex, state.ListScroll, state.PaneRows())
}

// expandDefault opens the first levels of a fresh tree.
func expandDefault(nodes []*tree.Node) map[string]bool {
	expanded := make(map[string]bool)
	var walk func([]*tree.Node, int)
	walk = func(level []*tree.Node, depth int) {
		if depth >= defaultExpandDepth {
			return
		}
		for _, n := range level {
			if n.IsFolder() {
				expanded[n.Path] = true
				walk(n.Children, depth+1)
			}
		}
	}
	walk(nodes, 0)
	return expanded
}

// indexOfPath returns the position of the visible hit whose canonical path
// is p, or -1.
func (r *StateReducer) indexOfPath(state *AppState, p string) int {
	for i, hit := range state.Visible {
		if hp, ok := r.projector.PathOf(hit); ok && selection.SamePath(hp, p) {
			return i
		}
	}
	return -1
}

func treeRowIndex(rows []tree.Row, p string) int {
	for i, row := range rows {
		if selection.SamePath(row.Node.Path, p) {
			return i
		}
	}
	return -1
}

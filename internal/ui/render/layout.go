package render

import statepkg "github.com/kk-code-lab/seekr/internal/state"

// Layout is the screen split shared by drawing and mouse hit testing.
type Layout struct {
	Width  int
	Height int

	TreeWidth      int
	SeparatorWidth int
	ListStart      int
	ListWidth      int

	PaneTop  int
	PaneRows int
}

// InTree reports whether screen cell x, y lies in the tree pane.
func (l Layout) InTree(x, y int) bool {
	return l.TreeWidth > 0 && x < l.TreeWidth && l.inPanes(y)
}

// InList reports whether screen cell x, y lies in the result list.
func (l Layout) InList(x, y int) bool {
	return x >= l.ListStart && x < l.ListStart+l.ListWidth && l.inPanes(y)
}

func (l Layout) inPanes(y int) bool {
	return y >= l.PaneTop && y < l.PaneTop+l.PaneRows
}

// FieldAt returns the input field drawn on screen row y.
func (l Layout) FieldAt(y int) (statepkg.Focus, bool) {
	switch y {
	case 0:
		return statepkg.FocusQuery, true
	case 1:
		return statepkg.FocusImage, true
	}
	return 0, false
}

// ComputeLayout splits a w by h screen into header, tree, list and status.
func ComputeLayout(w, h int) Layout {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	l := Layout{Width: w, Height: h, PaneTop: statepkg.HeaderRows}
	l.PaneRows = h - statepkg.HeaderRows - statepkg.StatusRows
	if l.PaneRows < 0 {
		l.PaneRows = 0
	}

	l.TreeWidth = treeWidthForWidth(w)
	if l.TreeWidth > 0 && l.TreeWidth < w {
		l.SeparatorWidth = 1
	}
	l.ListStart = l.TreeWidth + l.SeparatorWidth
	l.ListWidth = w - l.ListStart
	if l.ListWidth < 0 {
		l.ListWidth = 0
	}
	return l
}

// treeWidthForWidth gives the tree roughly a third of wide terminals and
// hides it when the list would get too narrow.
func treeWidthForWidth(w int) int {
	switch {
	case w >= 160:
		return 48
	case w >= 130:
		return 40
	case w >= 110:
		return 34
	case w >= 90:
		return 28
	case w >= 72:
		return 22
	default:
		return 0
	}
}

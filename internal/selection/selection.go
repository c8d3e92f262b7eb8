// Package selection coordinates folder selection in the tree with file
// highlighting in the result list.
package selection

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/kk-code-lab/seekr/internal/search"
)

// State is the selection snapshot shared by the tree and the list. Paths are
// canonical; the empty string means none.
type State struct {
	SelectedFolder      string
	HighlightedFile     string
	HighlightGeneration uint64
}

// Coordinator owns the selection state. It is created by the orchestrator and
// handed to both views; it is not safe for concurrent use.
type Coordinator struct {
	state State

	// Reveal is called with the canonical path of a highlighted file so the
	// tree can expand its ancestors.
	Reveal func(path string)
}

// NewCoordinator returns a coordinator with no selection.
func NewCoordinator(reveal func(string)) *Coordinator {
	return &Coordinator{Reveal: reveal}
}

// State returns the current selection.
func (c *Coordinator) State() State { return c.state }

// SelectFolder selects path, or clears the selection when path is already
// selected.
func (c *Coordinator) SelectFolder(path string) {
	path = strings.Trim(path, "/")
	if path == "" || SamePath(c.state.SelectedFolder, path) {
		c.state.SelectedFolder = ""
	} else {
		c.state.SelectedFolder = path
	}
}

// ClearFolder drops the folder selection.
func (c *Coordinator) ClearFolder() {
	c.state.SelectedFolder = ""
}

// SelectFile highlights path. The generation advances on every call, so a
// repeated click on the same file is still observable. Any folder filter is
// cleared and the tree is asked to reveal the file.
func (c *Coordinator) SelectFile(path string) {
	path = strings.Trim(path, "/")
	c.state.HighlightedFile = path
	c.state.HighlightGeneration++
	c.state.SelectedFolder = ""
	if c.Reveal != nil && path != "" {
		c.Reveal(path)
	}
}

// Reset clears folder and highlight but keeps the generation monotonic.
func (c *Coordinator) Reset() {
	c.state.SelectedFolder = ""
	c.state.HighlightedFile = ""
}

// SamePath reports whether two canonical paths are equal ignoring case.
func SamePath(a, b string) bool {
	fold := cases.Fold()
	return fold.String(a) == fold.String(b)
}

// InFolder reports whether canonical path p lies inside folder. The match is
// case-insensitive on whole segments: "a/bc" is not inside "a/b".
func InFolder(p, folder string) bool {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return true
	}
	fold := cases.Fold()
	fp := fold.String(strings.Trim(p, "/"))
	ff := fold.String(folder)
	if !strings.HasPrefix(fp, ff) {
		return false
	}
	return len(fp) > len(ff) && fp[len(ff)] == '/'
}

// Filter returns the hits whose canonical path lies in folder, preserving
// order. pathOf maps a hit to its canonical path and reports false for hits
// that have none. An empty folder returns hits unchanged.
func Filter(hits []search.RawHit, folder string, pathOf func(search.RawHit) (string, bool)) []search.RawHit {
	if strings.Trim(folder, "/") == "" {
		return hits
	}
	out := make([]search.RawHit, 0, len(hits))
	for _, h := range hits {
		p, ok := pathOf(h)
		if ok && InFolder(p, folder) {
			out = append(out, h)
		}
	}
	return out
}

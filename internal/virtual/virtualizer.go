// Package virtual computes which rows of a long, variable-height list
// intersect the viewport.
package virtual

// Window is the inclusive range of row indices to realize. End is -1 when
// the list is empty. Scroll is the offset after clamping.
type Window struct {
	Start    int
	End      int
	Overscan int
	Scroll   int
}

// Len returns the number of rows in the window.
func (w Window) Len() int {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

// Contains reports whether row i is inside the window.
func (w Window) Contains(i int) bool { return i >= w.Start && i <= w.End }

// Virtualizer tracks row heights in a Fenwick tree so that offsets, total
// height and hit testing cost O(log n). Rows start at the estimated height
// until measured. The zero value is an empty list with unit rows.
type Virtualizer struct {
	estimate int
	overscan int
	heights  []int
	fen      []int // 1-based
}

// New returns a virtualizer with the given row-height estimate and overscan.
func New(estimate, overscan int) *Virtualizer {
	if estimate < 1 {
		estimate = 1
	}
	if overscan < 0 {
		overscan = 0
	}
	return &Virtualizer{estimate: estimate, overscan: overscan}
}

// Count returns the number of rows.
func (v *Virtualizer) Count() int { return len(v.heights) }

// Overscan returns the rows realized beyond each edge of the viewport.
func (v *Virtualizer) Overscan() int { return v.overscan }

// SetCount resets the list to n rows of the estimated height.
func (v *Virtualizer) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	est := v.estimate
	if est < 1 {
		est = 1
	}
	v.heights = make([]int, n)
	v.fen = make([]int, n+1)
	for i := range v.heights {
		v.heights[i] = est
		v.fen[i+1] += est
		if parent := (i + 1) + ((i + 1) & -(i + 1)); parent <= n {
			v.fen[parent] += v.fen[i+1]
		}
	}
}

// Measure records the real height of row i and returns the change in total
// height. Offsets of rows above i are unaffected; when i lies above the
// viewport the caller adds the delta to its scroll offset to stay anchored.
func (v *Virtualizer) Measure(i, h int) int {
	if i < 0 || i >= len(v.heights) {
		return 0
	}
	if h < 1 {
		h = 1
	}
	delta := h - v.heights[i]
	if delta == 0 {
		return 0
	}
	v.heights[i] = h
	for j := i + 1; j < len(v.fen); j += j & -j {
		v.fen[j] += delta
	}
	return delta
}

// Height returns the current height of row i.
func (v *Virtualizer) Height(i int) int {
	if i < 0 || i >= len(v.heights) {
		return 0
	}
	return v.heights[i]
}

// Offset returns the y coordinate of the top of row i.
func (v *Virtualizer) Offset(i int) int {
	if i <= 0 {
		return 0
	}
	if i > len(v.heights) {
		i = len(v.heights)
	}
	sum := 0
	for j := i; j > 0; j -= j & -j {
		sum += v.fen[j]
	}
	return sum
}

// TotalHeight returns the height of the whole list.
func (v *Virtualizer) TotalHeight() int { return v.Offset(len(v.heights)) }

// IndexAt returns the row containing y, clamped to the list.
func (v *Virtualizer) IndexAt(y int) int {
	n := len(v.heights)
	if n == 0 {
		return -1
	}
	if y <= 0 {
		return 0
	}
	pos, rem := 0, y
	for step := highBit(n); step > 0; step >>= 1 {
		if next := pos + step; next <= n && v.fen[next] <= rem {
			pos = next
			rem -= v.fen[next]
		}
	}
	if pos >= n {
		return n - 1
	}
	return pos
}

// ClampScroll limits scroll to [0, TotalHeight-viewport].
func (v *Virtualizer) ClampScroll(scroll, viewport int) int {
	if viewport < 1 {
		viewport = 1
	}
	limit := v.TotalHeight() - viewport
	if scroll > limit {
		scroll = limit
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}

// Window returns the rows intersecting [scroll, scroll+viewport) plus the
// overscan on each side. A non-positive viewport counts as one row.
func (v *Virtualizer) Window(scroll, viewport int) Window {
	n := len(v.heights)
	if n == 0 {
		return Window{Start: 0, End: -1, Overscan: v.overscan}
	}
	if viewport < 1 {
		viewport = 1
	}
	scroll = v.ClampScroll(scroll, viewport)

	first := v.IndexAt(scroll)
	last := v.IndexAt(scroll + viewport - 1)

	start := first - v.overscan
	if start < 0 {
		start = 0
	}
	end := last + v.overscan
	if end > n-1 {
		end = n - 1
	}
	return Window{Start: start, End: end, Overscan: v.overscan, Scroll: scroll}
}

// EnsureVisible returns the smallest scroll change that brings row i fully
// into the viewport.
func (v *Virtualizer) EnsureVisible(i, scroll, viewport int) int {
	if len(v.heights) == 0 {
		return 0
	}
	if viewport < 1 {
		viewport = 1
	}
	if i < 0 {
		i = 0
	}
	if i >= len(v.heights) {
		i = len(v.heights) - 1
	}
	top := v.Offset(i)
	bottom := top + v.heights[i]
	switch {
	case top < scroll:
		scroll = top
	case bottom > scroll+viewport:
		scroll = bottom - viewport
		if scroll > top {
			scroll = top
		}
	}
	return v.ClampScroll(scroll, viewport)
}

func highBit(n int) int {
	b := 1
	for b<<1 <= n {
		b <<= 1
	}
	return b
}

package render

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/seekr/internal/filetype"
	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/selection"
	statepkg "github.com/kk-code-lab/seekr/internal/state"
	"github.com/kk-code-lab/seekr/internal/textutil"
	"github.com/kk-code-lab/seekr/internal/tree"
)

// yankFlash is how long the status line flashes after a yank.
const yankFlash = 100 * time.Millisecond

// Renderer handles all UI rendering
type Renderer struct {
	screen           tcell.Screen
	theme            ColorTheme
	norm             *pathnorm.Normalizer
	now              func() time.Time
	runeWidthCache   [128]int // ASCII cache (0-127)
	runeWidthCacheMu sync.RWMutex
	runeWidthWide    sync.Map // For non-ASCII runes
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithNormalizer sets the normalizer used to show network paths in result
// details.
func WithNormalizer(n *pathnorm.Normalizer) Option {
	return func(r *Renderer) {
		if n != nil {
			r.norm = n
		}
	}
}

// NewRenderer creates a new renderer
func NewRenderer(screen tcell.Screen, opts ...Option) *Renderer {
	r := &Renderer{
		screen: screen,
		theme:  GetColorTheme(),
		norm:   pathnorm.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws the entire UI based on state
func (r *Renderer) Render(state *statepkg.AppState) {
	r.screen.Clear()
	r.screen.HideCursor()

	w, h := r.screen.Size()
	if state.HelpVisible {
		r.drawHelpOverlay(state, w, h)
		r.screen.Show()
		return
	}

	layout := ComputeLayout(w, h)
	r.drawHeader(state, w)
	if layout.TreeWidth > 0 {
		r.drawTree(state, layout)
		if layout.SeparatorWidth > 0 {
			sepStyle := tcell.StyleDefault.Foreground(r.theme.LabelFg)
			for y := layout.PaneTop; y < layout.PaneTop+layout.PaneRows; y++ {
				r.screen.SetContent(layout.TreeWidth, y, '│', nil, sepStyle)
			}
		}
	}
	r.drawResults(state, layout)
	r.drawStatusLine(state, w, h)

	r.screen.Show()
}

// ===== HEADER =====

// drawHeader renders the query field with the match and type filters on
// row 0 and the image field with the search mode on row 1.
func (r *Renderer) drawHeader(state *statepkg.AppState, w int) {
	headerStyle := tcell.StyleDefault.Background(r.theme.HeaderBg).Foreground(r.theme.HeaderFg)

	fileType := state.FileType
	if fileType == "" {
		fileType = "any"
	}
	queryTags := fmt.Sprintf(" [%s] [type:%s] ", strings.ToUpper(state.Match.String()), fileType)
	r.drawField(0, w, "seekr  Query ", state.Query, state.QueryCursor, state.Focus == statepkg.FocusQuery, queryTags, headerStyle)

	imageTags := " [" + state.Mode().String() + "] "
	if state.Embedding {
		imageTags = " embedding…" + imageTags
	} else if state.Searching {
		imageTags = " searching…" + imageTags
	}
	r.drawField(1, w, "       Image ", state.ImagePath, state.ImageCursor, state.Focus == statepkg.FocusImage, imageTags, headerStyle)
}

func (r *Renderer) drawField(y, w int, label, text string, cursor int, focused bool, tags string, base tcell.Style) {
	r.fillLine(0, y, w, base)
	labelStyle := base.Foreground(r.theme.LabelFg)
	if focused {
		labelStyle = base.Bold(true)
	}
	x := r.drawCell(0, y, w, label, labelStyle)

	tagWidth := r.measureTextWidth(tags)
	fieldEnd := w - tagWidth
	if fieldEnd < x+1 {
		fieldEnd = w
		tags = ""
	}

	fieldStyle := base
	if focused {
		fieldStyle = base.Background(r.theme.FieldActiveBg)
		r.fillLine(x, y, fieldEnd, fieldStyle)
	}
	visible, cursorX := r.scrollField(textutil.SanitizeTerminalText(text), cursor, fieldEnd-x-1)
	r.drawTextLine(x, y, fieldEnd-x, visible, fieldStyle)
	if focused {
		r.screen.ShowCursor(x+cursorX, y)
	}

	if tags != "" {
		r.drawCell(fieldEnd, y, w, tags, base.Foreground(r.theme.LabelFg))
	}
}

// scrollField returns the part of text that fits width with the cursor
// visible, and the cursor column within it.
func (r *Renderer) scrollField(text string, cursor, width int) (string, int) {
	runes := []rune(text)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}
	if width < 1 {
		return "", 0
	}
	start := 0
	for r.measureTextWidth(string(runes[start:cursor])) > width {
		start++
	}
	col := r.measureTextWidth(string(runes[start:cursor]))
	return r.truncateTextToWidth(string(runes[start:]), width+1), col
}

// ===== TREE =====

func (r *Renderer) drawTree(state *statepkg.AppState, l Layout) {
	base := tcell.StyleDefault.Background(r.theme.TreeBg).Foreground(r.theme.TreeFg)
	for row := 0; row < l.PaneRows; row++ {
		y := l.PaneTop + row
		i := state.TreeScroll + row
		if i >= len(state.TreeRows) {
			r.fillLine(0, y, l.TreeWidth, base)
			continue
		}
		tr := state.TreeRows[i]
		style := r.treeRowStyle(state, tr.Node.Path, tr.Node.IsFolder(), base)
		if i == state.TreeIndex {
			style = r.cursorStyle(style, state.Focus == statepkg.FocusTree)
		}
		r.fillLine(0, y, l.TreeWidth, style)

		marker := "  "
		if tr.Node.IsFolder() {
			marker = "▸ "
			if state.Expanded[tr.Node.Path] {
				marker = "▾ "
			}
		}
		label := strings.Repeat("  ", tr.Depth) + marker + tr.Node.Name
		if tr.Node.IsFolder() {
			label += fmt.Sprintf(" (%d)", tr.Node.Files)
		}
		r.drawCell(0, y, l.TreeWidth, " "+label, style)
	}
	if len(state.TreeRows) == 0 && l.PaneRows > 0 {
		r.drawCell(0, l.PaneTop, l.TreeWidth, " No folders", base.Foreground(r.theme.LabelFg))
	}
}

func (r *Renderer) treeRowStyle(state *statepkg.AppState, p string, folder bool, base tcell.Style) tcell.Style {
	sel := state.Selection
	switch {
	case folder && sel.SelectedFolder != "" && selection.SamePath(p, sel.SelectedFolder):
		return base.Foreground(r.theme.SelectedFolder).Bold(true)
	case !folder && sel.HighlightedFile != "" && selection.SamePath(p, sel.HighlightedFile):
		return base.Foreground(r.theme.HighlightFg).Bold(true)
	case folder:
		return base.Foreground(r.theme.FolderFg)
	}
	return base
}

func (r *Renderer) cursorStyle(style tcell.Style, active bool) tcell.Style {
	if active {
		return style.Background(r.theme.SelectionBg).Foreground(r.theme.SelectionFg)
	}
	return style.Background(r.theme.InactiveCursor)
}

// ===== RESULT LIST =====

func (r *Renderer) drawResults(state *statepkg.AppState, l Layout) {
	base := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)
	start, end := l.ListStart, l.ListStart+l.ListWidth
	for row := 0; row < l.PaneRows; row++ {
		r.fillLine(start, l.PaneTop+row, end, base)
	}
	if l.ListWidth <= 0 || l.PaneRows <= 0 {
		return
	}

	if len(state.Visible) == 0 {
		r.drawCell(start+1, l.PaneTop, end, emptyListMessage(state), base.Foreground(r.theme.LabelFg))
		return
	}

	paths := leafPaths(state)
	for _, row := range state.ListRows {
		hit := state.Visible[row.Index]
		lines := r.resultLines(state, hit, paths, l.ListWidth)
		selected := row.Index == state.ListIndex
		for k, line := range lines {
			y := l.PaneTop + row.Y + k
			if y < l.PaneTop || y >= l.PaneTop+l.PaneRows {
				continue
			}
			r.drawResultLine(state, line, selected, y, start, end, base)
		}
	}
}

func emptyListMessage(state *statepkg.AppState) string {
	switch {
	case state.Busy():
		return "Searching…"
	case state.Results == nil:
		return "Type a query or an image path and press Enter"
	case len(state.Reconciled) == 0 && len(state.Results.Hits()) > 0:
		return "No results above the confidence threshold"
	case state.Selection.SelectedFolder != "":
		return "No results in " + state.Selection.SelectedFolder
	}
	return "No results"
}

type lineKind int

const (
	lineMain lineKind = iota
	lineSnippet
	lineDetail
)

type resultLine struct {
	kind  lineKind
	badge string
	kindT filetype.Kind
	text  string
	right string
	hl    bool
}

// resultLines lays out the lines of one hit. Their count always equals
// AppState.RowHeight so the virtualizer offsets stay true.
func (r *Renderer) resultLines(state *statepkg.AppState, hit search.RawHit, paths map[string]string, width int) []resultLine {
	kind := filetype.Classify(hit.FileType, hit.Name())
	main := resultLine{kind: lineMain, badge: kind.Badge(), kindT: kind, text: hit.Name()}
	if hl := state.Selection.HighlightedFile; hl != "" {
		if p, ok := paths[hit.ID]; ok && selection.SamePath(p, hl) {
			main.hl = true
		}
	}
	switch {
	case width >= 72:
		main.right = fmt.Sprintf(" %9s  %16s ", textutil.FormatSize(hit.SizeBytes), textutil.FormatTime(hit.ModifiedAt))
	case width >= 44:
		main.right = fmt.Sprintf(" %9s ", textutil.FormatSize(hit.SizeBytes))
	}
	lines := []resultLine{main}

	if state.ShowSnippets && hit.Snippet != "" {
		lines = append(lines, resultLine{kind: lineSnippet, text: hit.Snippet})
	}
	if state.Details[hit.ID] {
		location := hit.StoragePath
		if unc, ok := r.norm.UNCPath(hit.StoragePath); ok {
			location = unc
		}
		facts := []string{fmt.Sprintf("score %.3f", hit.RelevanceScore)}
		if hit.EmbeddingDistance != nil {
			facts = append(facts, fmt.Sprintf("distance %.3f", *hit.EmbeddingDistance))
		}
		if loc := r.norm.Inspect(hit.StoragePath); loc.Category != "" {
			facts = append(facts, loc.Category)
		}
		if age := textutil.FormatAge(hit.ModifiedAt, r.now()); age != "" {
			facts = append(facts, "modified "+age)
		}
		if hit.ID != "" {
			facts = append(facts, "id "+hit.ID)
		}
		lines = append(lines,
			resultLine{kind: lineDetail, text: location},
			resultLine{kind: lineDetail, text: strings.Join(facts, " · ")},
		)
	}
	return lines
}

// leafPaths maps hit IDs to their canonical tree paths, so the list needs
// no projector of its own.
func leafPaths(state *statepkg.AppState) map[string]string {
	if state.Selection.HighlightedFile == "" {
		return nil
	}
	leaves := tree.Leaves(state.Tree)
	out := make(map[string]string, len(leaves))
	for _, n := range leaves {
		if n.HitID != "" {
			out[n.HitID] = n.Path
		}
	}
	return out
}

func (r *Renderer) drawResultLine(state *statepkg.AppState, line resultLine, selected bool, y, start, end int, base tcell.Style) {
	style := base
	if selected {
		style = r.cursorStyle(base, state.Focus == statepkg.FocusResults)
		r.fillLine(start, y, end, style)
	}

	switch line.kind {
	case lineSnippet:
		r.drawCell(start+7, y, end, line.text, style.Foreground(r.theme.SnippetFg))
		return
	case lineDetail:
		r.drawCell(start+7, y, end, line.text, style.Foreground(r.theme.DetailFg))
		return
	}

	x := r.drawCell(start+1, y, end, line.badge, style.Foreground(r.theme.badgeColor(line.kindT)).Bold(true))
	x = r.drawCell(x, y, end, "  ", style)

	rightWidth := r.measureTextWidth(line.right)
	nameEnd := end - rightWidth
	if nameEnd <= x {
		nameEnd = end
		line.right = ""
	}
	nameStyle := style
	if line.hl {
		nameStyle = nameStyle.Foreground(r.theme.HighlightFg).Bold(true)
	}
	r.drawCell(x, y, nameEnd, line.text, nameStyle)
	if line.right != "" {
		r.drawCell(nameEnd, y, end, line.right, style.Foreground(r.theme.ScoreFg))
	}
}

// ===== STATUS LINE =====

func (r *Renderer) drawStatusLine(state *statepkg.AppState, w, h int) {
	if h <= 0 {
		return
	}
	y := h - 1
	normalStyle := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)
	flashStyle := tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)

	isFlashing := !state.LastYankTime.IsZero() && r.now().Sub(state.LastYankTime) < yankFlash
	lineStyle := normalStyle
	if isFlashing {
		lineStyle = flashStyle
	}
	r.fillLine(0, y, w, lineStyle)

	msg, msgStyle := r.statusMessage(state, lineStyle)
	x := r.drawCell(0, y, w, msg, msgStyle)

	if summary := formatResultSummary(state); summary != "" {
		x = r.drawCell(x, y, w, " │ "+summary, lineStyle)
	}
	if help := buildFooterHelpText(state); help != "" {
		helpWidth := r.measureTextWidth(help)
		if x+3+helpWidth <= w {
			r.drawCell(w-helpWidth, y, w, help, lineStyle.Foreground(r.theme.LabelFg))
		}
	}
}

func (r *Renderer) statusMessage(state *statepkg.AppState, base tcell.Style) (string, tcell.Style) {
	switch {
	case state.LastError != nil:
		return " ✗ " + state.LastError.Error(), base.Foreground(r.theme.ErrorFg)
	case state.Notice != "":
		return " " + state.Notice, base.Foreground(r.theme.NoticeFg)
	case state.Embedding:
		return " embedding image…", base.Foreground(r.theme.BusyFg)
	case state.Searching:
		return " searching…", base.Foreground(r.theme.BusyFg)
	}
	if hit, ok := state.CurrentHit(); ok && state.Focus == statepkg.FocusResults {
		return " " + hit.StoragePath, base
	}
	if row, ok := state.CurrentTreeRow(); ok && state.Focus == statepkg.FocusTree {
		return " " + row.Node.Path, base
	}
	return " ", base
}

// formatResultSummary renders paging and filter counts, e.g.
// "page 2/3 · 42 hits · 12 shown in a/b".
func formatResultSummary(state *statepkg.AppState) string {
	if state.Results == nil {
		return ""
	}
	parts := []string{}
	if pages := state.TotalPages(); pages > 1 {
		parts = append(parts, fmt.Sprintf("page %d/%d", state.PageNumber, pages))
	}
	parts = append(parts, fmt.Sprintf("%d hits", state.Total()))
	if hidden := len(state.Results.Hits()) - len(state.Reconciled); hidden > 0 {
		parts = append(parts, fmt.Sprintf("%d below threshold", hidden))
	}
	if folder := state.Selection.SelectedFolder; folder != "" {
		parts = append(parts, fmt.Sprintf("%d shown in %s", len(state.Visible), folder))
	}
	return strings.Join(parts, " · ")
}

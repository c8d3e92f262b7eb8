package input

import (
	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

// InputHandler converts tcell events to Actions
type InputHandler struct {
	actionChan chan statepkg.Action
	state      *statepkg.AppState // Reference to current state for focus checking
}

// NewInputHandler creates a new input handler
func NewInputHandler(actionChan chan statepkg.Action) *InputHandler {
	return &InputHandler{
		actionChan: actionChan,
	}
}

// SetState sets the state reference for focus checking
func (ih *InputHandler) SetState(state *statepkg.AppState) {
	ih.state = state
}

// ProcessEvent converts a tcell event into an Action. It returns false once
// the user asked to quit.
func (ih *InputHandler) ProcessEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return ih.processKeyEvent(ev)
	case *tcell.EventResize:
		w, h := ev.Size()
		ih.actionChan <- statepkg.ResizeAction{Width: w, Height: h}
		return true
	default:
		return true
	}
}

func (ih *InputHandler) emit(a statepkg.Action) bool {
	ih.actionChan <- a
	return true
}

// processKeyEvent handles keyboard input
func (ih *InputHandler) processKeyEvent(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		ih.actionChan <- statepkg.QuitAction{}
		return false
	}

	if ih.state != nil && ih.state.HelpVisible {
		switch ev.Key() {
		case tcell.KeyEscape:
			return ih.emit(statepkg.HelpHideAction{})
		case tcell.KeyRune:
			r := ev.Rune()
			if r == '?' || r == 'q' || r == 'Q' {
				return ih.emit(statepkg.HelpHideAction{})
			}
		}
		return true
	}

	// Keys that work in every pane.
	switch ev.Key() {
	case tcell.KeyTab:
		return ih.emit(statepkg.FocusNextAction{})
	case tcell.KeyBacktab:
		return ih.emit(statepkg.FocusPrevAction{})
	case tcell.KeyCtrlZ:
		return ih.emit(statepkg.SuspendAction{})
	case tcell.KeyCtrlO:
		return ih.emit(statepkg.ToggleMatchModeAction{})
	case tcell.KeyCtrlT:
		return ih.emit(statepkg.CycleFileTypeAction{})
	}

	focus := statepkg.FocusQuery
	if ih.state != nil {
		focus = ih.state.Focus
	}
	switch focus {
	case statepkg.FocusQuery, statepkg.FocusImage:
		return ih.processFieldKey(ev, focus)
	case statepkg.FocusTree:
		return ih.processTreeKey(ev)
	default:
		return ih.processResultKey(ev)
	}
}

// processFieldKey edits the focused query field.
func (ih *InputHandler) processFieldKey(ev *tcell.EventKey, focus statepkg.Focus) bool {
	word := ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) != 0

	switch ev.Key() {
	case tcell.KeyEnter:
		return ih.emit(statepkg.SubmitQueryAction{})
	case tcell.KeyEscape:
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusResults})
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if ev.Modifiers()&tcell.ModAlt != 0 {
			return ih.emit(statepkg.DeleteWordAction{})
		}
		return ih.emit(statepkg.BackspaceAction{})
	case tcell.KeyDelete:
		return ih.emit(statepkg.DeleteAction{})
	case tcell.KeyCtrlW:
		return ih.emit(statepkg.DeleteWordAction{})
	case tcell.KeyCtrlU:
		return ih.emit(statepkg.ClearFieldAction{})
	case tcell.KeyLeft:
		if word {
			return ih.emit(statepkg.MoveCursorAction{Direction: "word-left"})
		}
		return ih.emit(statepkg.MoveCursorAction{Direction: "left"})
	case tcell.KeyRight:
		if word {
			return ih.emit(statepkg.MoveCursorAction{Direction: "word-right"})
		}
		return ih.emit(statepkg.MoveCursorAction{Direction: "right"})
	case tcell.KeyHome, tcell.KeyCtrlA:
		return ih.emit(statepkg.MoveCursorAction{Direction: "home"})
	case tcell.KeyEnd, tcell.KeyCtrlE:
		return ih.emit(statepkg.MoveCursorAction{Direction: "end"})
	case tcell.KeyUp:
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusQuery})
	case tcell.KeyDown:
		if focus == statepkg.FocusQuery {
			return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusImage})
		}
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusResults})
	case tcell.KeyRune:
		return ih.emit(statepkg.InsertRuneAction{Rune: ev.Rune()})
	}
	return true
}

// processResultKey drives the result list.
func (ih *InputHandler) processResultKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp:
		return ih.emit(statepkg.ListMoveAction{Delta: -1})
	case tcell.KeyDown:
		return ih.emit(statepkg.ListMoveAction{Delta: 1})
	case tcell.KeyPgUp:
		return ih.emit(statepkg.ListPageAction{Direction: -1})
	case tcell.KeyPgDn:
		return ih.emit(statepkg.ListPageAction{Direction: 1})
	case tcell.KeyHome:
		return ih.emit(statepkg.ListHomeAction{})
	case tcell.KeyEnd:
		return ih.emit(statepkg.ListEndAction{})
	case tcell.KeyEnter:
		return ih.emit(statepkg.ActivateResultAction{})
	case tcell.KeyLeft:
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusTree})
	case tcell.KeyEscape:
		return ih.emit(statepkg.ClearFolderAction{})
	case tcell.KeyRune:
	default:
		return true
	}

	switch ev.Rune() {
	case 'k':
		return ih.emit(statepkg.ListMoveAction{Delta: -1})
	case 'j':
		return ih.emit(statepkg.ListMoveAction{Delta: 1})
	case 'g':
		return ih.emit(statepkg.ListHomeAction{})
	case 'G':
		return ih.emit(statepkg.ListEndAction{})
	case 'h':
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusTree})
	case 'd':
		return ih.emit(statepkg.ToggleDetailAction{})
	case 's':
		return ih.emit(statepkg.ToggleSnippetsAction{})
	case 'n':
		return ih.emit(statepkg.NextPageAction{})
	case 'p':
		return ih.emit(statepkg.PrevPageAction{})
	case 'o':
		return ih.emit(statepkg.PreviewAction{})
	case 'D':
		return ih.emit(statepkg.DownloadAction{})
	case 'y':
		return ih.emit(statepkg.YankPathAction{})
	}
	return ih.processCommonRune(ev.Rune())
}

// processTreeKey drives the folder tree.
func (ih *InputHandler) processTreeKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp:
		return ih.emit(statepkg.TreeMoveAction{Delta: -1})
	case tcell.KeyDown:
		return ih.emit(statepkg.TreeMoveAction{Delta: 1})
	case tcell.KeyPgUp:
		return ih.emit(statepkg.TreeMoveAction{Delta: -ih.pageRows()})
	case tcell.KeyPgDn:
		return ih.emit(statepkg.TreeMoveAction{Delta: ih.pageRows()})
	case tcell.KeyEnter:
		return ih.emit(statepkg.TreeActivateAction{})
	case tcell.KeyRight:
		return ih.emit(statepkg.TreeExpandAction{})
	case tcell.KeyLeft:
		return ih.emit(statepkg.TreeCollapseAction{})
	case tcell.KeyEscape:
		return ih.emit(statepkg.ClearFolderAction{})
	case tcell.KeyRune:
	default:
		return true
	}

	switch ev.Rune() {
	case 'k':
		return ih.emit(statepkg.TreeMoveAction{Delta: -1})
	case 'j':
		return ih.emit(statepkg.TreeMoveAction{Delta: 1})
	case ' ':
		return ih.emit(statepkg.TreeActivateAction{})
	case 'l':
		return ih.emit(statepkg.TreeExpandAction{})
	case 'h':
		return ih.emit(statepkg.TreeCollapseAction{})
	}
	return ih.processCommonRune(ev.Rune())
}

// processCommonRune handles the letter keys shared by both panes.
func (ih *InputHandler) processCommonRune(r rune) bool {
	switch r {
	case '/':
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusQuery})
	case 'i':
		return ih.emit(statepkg.FocusAction{Focus: statepkg.FocusImage})
	case '?':
		return ih.emit(statepkg.HelpToggleAction{})
	case 'q', 'Q':
		ih.actionChan <- statepkg.QuitAction{}
		return false
	}
	return true
}

func (ih *InputHandler) pageRows() int {
	if ih.state == nil {
		return 10
	}
	return ih.state.PaneRows()
}

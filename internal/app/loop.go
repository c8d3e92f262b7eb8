package app

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gdamore/tcell/v2"

	statepkg "github.com/kk-code-lab/seekr/internal/state"
	renderui "github.com/kk-code-lab/seekr/internal/ui/render"
)

const (
	doubleClickThreshold = 300 * time.Millisecond
	wheelLines           = 3
)

// Run processes events until the user quits.
func (app *Application) Run() {
	defer app.screen.Fini()

	app.renderer.Render(app.state)
	renderPending := false

	eventChan := make(chan tcell.Event)
	go func() {
		for {
			ev := app.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	var sigContCh chan os.Signal
	if sigs := contSignals(); len(sigs) > 0 {
		sigContCh = make(chan os.Signal, 1)
		signal.Notify(sigContCh, sigs...)
		defer signal.Stop(sigContCh)
	}

	const animationInterval = 50 * time.Millisecond
	var animationTimer *time.Timer
	var animationCh <-chan time.Time

	startAnimation := func() {
		if animationTimer == nil {
			animationTimer = time.NewTimer(animationInterval)
		} else {
			if !animationTimer.Stop() {
				select {
				case <-animationTimer.C:
				default:
				}
			}
			animationTimer.Reset(animationInterval)
		}
		animationCh = animationTimer.C
	}

	stopAnimation := func() {
		if animationTimer == nil {
			return
		}
		if !animationTimer.Stop() {
			select {
			case <-animationTimer.C:
			default:
			}
		}
		animationCh = nil
	}

	for !app.shouldQuit {
		if renderPending {
			app.renderer.Render(app.state)
			renderPending = false
		}

		if app.shouldAnimate() {
			startAnimation()
		} else {
			stopAnimation()
		}

		select {
		case ev := <-eventChan:
			if app.handleEvent(ev) {
				renderPending = true
			}
		case <-animationCh:
			renderPending = true
		case action := <-app.actionCh:
			if app.handleAction(action) {
				renderPending = true
			}
		case <-sigContCh:
			if app.resumeAfterStop() {
				renderPending = true
			}
		}

		if app.processActions() {
			renderPending = true
		}
	}

	stopAnimation()
}

func (app *Application) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey, *tcell.EventResize:
		if !app.input.ProcessEvent(ev) {
			app.shouldQuit = true
		}
	case *tcell.EventMouse:
		app.handleMouse(ev)
		return true
	case *tcell.EventInterrupt:
		return true
	default:
		return false
	}
	return true
}

// handleMouse maps clicks to focus and selection and the wheel to
// scrolling. A second click on the same row activates it.
func (app *Application) handleMouse(ev *tcell.EventMouse) {
	if app.state == nil || app.state.HelpVisible {
		return
	}

	x, y := ev.Position()
	layout := renderui.ComputeLayout(app.state.ScreenWidth, app.state.ScreenHeight)
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.WheelUp != 0:
		app.scroll(layout, x, y, -wheelLines)
		return
	case buttons&tcell.WheelDown != 0:
		app.scroll(layout, x, y, wheelLines)
		return
	case buttons&tcell.Button1 == 0:
		return
	}

	if focus, ok := layout.FieldAt(y); ok {
		app.actionCh <- statepkg.FocusAction{Focus: focus}
		return
	}

	row := y - layout.PaneTop
	switch {
	case layout.InTree(x, y):
		idx := app.state.TreeIndexAtLine(row)
		if idx < 0 {
			return
		}
		doubleClick := app.registerClick(fmt.Sprintf("tree-%d", idx))
		app.actionCh <- statepkg.TreeSelectIndexAction{Index: idx}
		if doubleClick {
			app.actionCh <- statepkg.TreeActivateAction{}
		}
	case layout.InList(x, y):
		idx := app.state.ListIndexAtLine(row)
		if idx < 0 {
			return
		}
		doubleClick := app.registerClick(fmt.Sprintf("list-%d", idx))
		app.actionCh <- statepkg.ListSelectIndexAction{Index: idx}
		if doubleClick {
			app.actionCh <- statepkg.ActivateResultAction{}
		}
	}
}

func (app *Application) scroll(layout renderui.Layout, x, y, lines int) {
	switch {
	case layout.InTree(x, y):
		app.actionCh <- statepkg.TreeMoveAction{Delta: lines}
	case layout.InList(x, y):
		app.actionCh <- statepkg.ListScrollAction{Lines: lines}
	}
}

func (app *Application) registerClick(key string) bool {
	doubleClick := app.lastClickKey == key && time.Since(app.lastClickTime) <= doubleClickThreshold
	app.lastClickKey = key
	app.lastClickTime = time.Now()
	if doubleClick {
		// A third click starts over.
		app.lastClickKey = ""
	}
	return doubleClick
}

func (app *Application) processActions() bool {
	changed := false
	for {
		select {
		case action := <-app.actionCh:
			if app.handleAction(action) {
				changed = true
			}
		default:
			return changed
		}
	}
}

func (app *Application) shouldAnimate() bool {
	if app.state == nil || app.state.LastYankTime.IsZero() {
		return false
	}
	return time.Since(app.state.LastYankTime) < 100*time.Millisecond
}

func (app *Application) handleAction(action statepkg.Action) bool {
	if action == nil {
		return false
	}

	switch action.(type) {
	case statepkg.QuitAction:
		app.shouldQuit = true
		return false
	case statepkg.SuspendAction:
		app.suspendToShell()
		app.resumeAfterStop()
		return true
	}

	return app.handleAppAction(action)
}

func (app *Application) handleAppAction(action statepkg.Action) bool {
	switch a := action.(type) {
	case statepkg.YankPathAction:
		return app.handleClipboard()
	case statepkg.PreviewAction:
		return app.handleLocate(false)
	case statepkg.DownloadAction:
		return app.handleLocate(true)
	case statepkg.LocateResultAction:
		if a.Err == nil {
			a.Err = app.openTarget(a.Target)
		}
		action = a
	}

	if _, err := app.reducer.Reduce(app.state, action); err != nil {
		app.logger.Warn("action failed", "action", fmt.Sprintf("%T", action), "err", err)
	}
	return true
}

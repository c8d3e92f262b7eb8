package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/search"
	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

var commandBuilder = exec.Command

var (
	errNoOpener  = errors.New("no opener command available")
	errNoBackend = errors.New("no search backend configured")
)

func (app *Application) handleClipboard() bool {
	hit, ok := app.state.CurrentHit()
	if !ok {
		return true
	}
	if !app.clipboardAvail || len(app.clipboardCmd) == 0 {
		app.state.Notice = "no clipboard command available"
		return true
	}

	text := clipboardPath(app.normalizer, hit)
	cmd := commandBuilder(app.clipboardCmd[0], app.clipboardCmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		app.state.LastError = fmt.Errorf("clipboard %s: %w", filepath.Base(app.clipboardCmd[0]), err)
		return true
	}
	app.state.LastYankTime = time.Now()
	app.state.LastError = nil
	return true
}

// clipboardPath prefers the UNC path users paste into Explorer, falling
// back to the storage path when the host cannot be recovered.
func clipboardPath(n *pathnorm.Normalizer, hit search.RawHit) string {
	if n == nil {
		n = pathnorm.Default()
	}
	if unc, ok := n.UNCPath(hit.StoragePath); ok {
		return unc
	}
	return hit.StoragePath
}

// handleLocate asks the backend where the current hit can be opened and
// reports back with a LocateResultAction.
func (app *Application) handleLocate(download bool) bool {
	hit, ok := app.state.CurrentHit()
	if !ok {
		return true
	}
	if app.backend == nil {
		app.state.LastError = errNoBackend
		return true
	}

	dispatch := func(a statepkg.Action) {
		select {
		case app.actionCh <- a:
		default:
			go func() { app.actionCh <- a }()
		}
	}
	go func() {
		ctx, cancel := app.jobContext()
		defer cancel()
		var (
			target string
			err    error
		)
		if download {
			target, err = app.backend.Download(ctx, hit.ID)
		} else {
			target, err = app.backend.Preview(ctx, hit.ID)
		}
		if app.ctx.Err() != nil {
			return
		}
		dispatch(statepkg.LocateResultAction{HitID: hit.ID, Target: target, Download: download, Err: err})
	}()
	app.state.Notice = "locating " + hit.Name() + "…"
	return true
}

func (app *Application) jobContext() (context.Context, context.CancelFunc) {
	if app.timeout > 0 {
		return context.WithTimeout(app.ctx, app.timeout)
	}
	return context.WithCancel(app.ctx)
}

// openTarget hands a URL or path to the desktop without waiting for it.
func (app *Application) openTarget(target string) error {
	if len(app.openerCmd) == 0 {
		return errNoOpener
	}
	args := append(append([]string(nil), app.openerCmd[1:]...), target)
	cmd := commandBuilder(app.openerCmd[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			app.logger.Warn("opener exited", "target", target, "err", err)
		}
	}()
	return nil
}

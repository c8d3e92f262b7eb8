//go:build windows

package app

import "golang.org/x/sys/windows"

// flushPendingInput drops key presses queued before the screen took over
// the console, such as the Enter that launched seekr.
func flushPendingInput() error {
	handle, err := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	if err != nil {
		return err
	}
	return windows.FlushConsoleInputBuffer(handle)
}

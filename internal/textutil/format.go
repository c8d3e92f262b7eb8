package textutil

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatSize renders a byte count for the result list; unknown sizes are
// blank.
func FormatSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.IBytes(uint64(n))
}

// FormatTime renders a modification time as a date, or blank when unknown.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// FormatAge renders how long ago t was, relative to now.
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

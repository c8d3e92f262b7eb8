//go:build windows

package extract

import (
	"syscall"
)

const (
	fileAttributeHidden = 0x02
	fileAttributeSystem = 0x04
)

// Hidden reports whether the indexer should skip the entry: dot files and
// entries carrying the hidden or system attribute.
func Hidden(fullPath string, name string) bool {
	if len(name) > 0 && name[0] == '.' {
		return true
	}
	if fullPath == "" {
		return false
	}
	ptr, err := syscall.UTF16PtrFromString(fullPath)
	if err != nil {
		return false
	}
	attrs, err := syscall.GetFileAttributes(ptr)
	if err != nil {
		return false
	}
	return attrs&(fileAttributeHidden|fileAttributeSystem) != 0
}

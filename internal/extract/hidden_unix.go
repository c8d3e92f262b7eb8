//go:build !windows

package extract

// Hidden reports whether the indexer should skip the entry as hidden.
func Hidden(_ string, name string) bool {
	return len(name) > 0 && name[0] == '.'
}

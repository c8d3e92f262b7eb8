package pathnorm

import "strings"

// Location describes where a canonical path lives on the NAS.
type Location struct {
	Host       string // empty when the path carries no host segment
	Category   string // department from the host category map, may be empty
	RootFolder string // first folder below the host
}

// Inspect normalizes raw and reports its host, category and root folder.
func (n *Normalizer) Inspect(raw string) Location {
	segs := n.Segments(raw)
	if len(segs) == 0 || !n.host.MatchString(segs[0]) {
		return Location{}
	}
	loc := Location{
		Host:     segs[0],
		Category: n.Category(segs[0]),
	}
	// The last segment is the file itself, not a folder.
	if len(segs) > 2 {
		loc.RootFolder = segs[1]
	}
	return loc
}

// UNCPath renders a path as a Windows UNC path (\\host\share\...). It
// reports false when the path has no host segment.
func (n *Normalizer) UNCPath(raw string) (string, bool) {
	segs := n.Segments(raw)
	if len(segs) == 0 || !n.host.MatchString(segs[0]) {
		return "", false
	}
	parts := make([]string, 0, len(segs)+1)
	parts = append(parts, segs[0])
	if len(n.shares) > 0 {
		parts = append(parts, n.shares[0])
	}
	parts = append(parts, segs[1:]...)
	return `\\` + strings.Join(parts, `\`), true
}

// Category returns the department of host, or "" when it is unmapped.
func (n *Normalizer) Category(host string) string {
	return n.categories[strings.ToLower(host)]
}

package tree

import "strings"

// Row is one visible line of an expand/collapse tree view.
type Row struct {
	Node  *Node
	Depth int
}

// Flatten returns the rows visible when the folders whose paths are set in
// expanded are open. Top-level nodes are always visible.
func Flatten(nodes []*Node, expanded map[string]bool) []Row {
	var rows []Row
	var walk func([]*Node, int)
	walk = func(level []*Node, depth int) {
		for _, n := range level {
			rows = append(rows, Row{Node: n, Depth: depth})
			if n.Kind == Folder && expanded[n.Path] {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(nodes, 0)
	return rows
}

// Ancestors returns the folder paths that must be expanded to reveal the
// node at p, outermost first.
func Ancestors(p string) []string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// Find returns the node at canonical path p, or nil.
func Find(nodes []*Node, p string) *Node {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	level := nodes
	var found *Node
	for _, seg := range strings.Split(p, "/") {
		found = nil
		for _, n := range level {
			if n.Name == seg {
				found = n
				break
			}
		}
		if found == nil {
			return nil
		}
		level = found.Children
	}
	return found
}

// Leaves returns every file node below nodes in display order.
func Leaves(nodes []*Node) []*Node {
	var out []*Node
	var walk func([]*Node)
	walk = func(level []*Node) {
		for _, n := range level {
			if n.Kind == File {
				out = append(out, n)
				continue
			}
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}

// Package tree projects a flat page of search hits onto the folder
// hierarchy they came from.
package tree

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/search"
)

// Kind distinguishes folders from files.
type Kind int

const (
	Folder Kind = iota
	File
)

func (k Kind) String() string {
	if k == File {
		return "file"
	}
	return "folder"
}

// UnknownFolder holds hits whose storage path yields no segments.
const UnknownFolder = "unknown"

// DefaultExclusions are sidecar files that never appear in the tree.
var DefaultExclusions = []string{"*.meta", "._*", "Thumbs.db", "desktop.ini", ".DS_Store"}

// Node is one folder or file of the projected tree. ID and Path are the
// canonical path of the node. Folders own Children; files carry the ID of
// the hit they came from.
type Node struct {
	ID       string
	Name     string
	Kind     Kind
	Path     string
	Children []*Node
	HitID    string

	// Files counts the file nodes below a folder.
	Files int
}

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool { return n != nil && n.Kind == Folder }

// Projector builds trees. A Projector is not safe for concurrent use because
// its collator keeps scratch buffers.
type Projector struct {
	norm       *pathnorm.Normalizer
	collator   *collate.Collator
	exclusions []string
}

// Option customizes a Projector.
type Option func(*Projector)

// WithNormalizer sets the path normalizer.
func WithNormalizer(n *pathnorm.Normalizer) Option {
	return func(p *Projector) {
		if n != nil {
			p.norm = n
		}
	}
}

// WithLocale sets the collation locale, a BCP 47 tag such as "ja" or "en".
// Unparseable tags fall back to language.Und.
func WithLocale(tag string) Option {
	return func(p *Projector) {
		t, err := language.Parse(tag)
		if err != nil {
			t = language.Und
		}
		p.collator = collate.New(t, collate.Numeric)
	}
}

// WithExclusions replaces the sidecar patterns (path.Match syntax, matched
// against the file name).
func WithExclusions(patterns []string) Option {
	return func(p *Projector) {
		p.exclusions = append([]string(nil), patterns...)
	}
}

// NewProjector returns a projector with the default normalizer, the
// undetermined locale and the default exclusions, adjusted by opts.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		norm:       pathnorm.Default(),
		collator:   collate.New(language.Und, collate.Numeric),
		exclusions: DefaultExclusions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var nameReplacer = strings.NewReplacer("/", "_", `\`, "_")

// Segments returns the canonical segments under which hit is placed, or nil
// when the hit cannot be placed or is an excluded sidecar.
func (p *Projector) Segments(hit search.RawHit) []string {
	if p.Excluded(hit.Name()) {
		return nil
	}
	segs := p.norm.Segments(hit.StoragePath)
	if len(segs) > 0 {
		if p.Excluded(segs[len(segs)-1]) {
			return nil
		}
		return segs
	}
	name := strings.TrimSpace(nameReplacer.Replace(hit.DisplayName))
	if name == "" || name == "." {
		return nil
	}
	return []string{UnknownFolder, name}
}

// PathOf returns the canonical path under which hit is placed.
func (p *Projector) PathOf(hit search.RawHit) (string, bool) {
	segs := p.Segments(hit)
	if len(segs) == 0 {
		return "", false
	}
	return strings.Join(segs, "/"), true
}

// Excluded reports whether name matches a sidecar pattern.
func (p *Projector) Excluded(name string) bool {
	if name == "" {
		return false
	}
	for _, pattern := range p.exclusions {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Build returns the sorted top-level nodes for hits. The result shares no
// memory with earlier results.
func (p *Projector) Build(hits []search.RawHit) []*Node {
	b := builder{children: make(map[*Node]map[string]*Node)}
	root := &Node{Kind: Folder}

	for _, hit := range hits {
		segs := p.Segments(hit)
		if len(segs) == 0 {
			continue
		}
		b.insert(root, segs, hit.ID)
	}

	p.sortNodes(root.Children)
	countFiles(root)
	return root.Children
}

type builder struct {
	children map[*Node]map[string]*Node
}

func (b *builder) insert(root *Node, segs []string, hitID string) {
	parent := root
	for i, seg := range segs {
		last := i == len(segs)-1
		index := b.children[parent]
		if index == nil {
			index = make(map[string]*Node)
			b.children[parent] = index
		}

		node, ok := index[seg]
		if !ok {
			kind := Folder
			if last {
				kind = File
			}
			p := seg
			if parent.Path != "" {
				p = parent.Path + "/" + seg
			}
			node = &Node{ID: p, Name: seg, Kind: kind, Path: p}
			if last {
				node.HitID = hitID
			}
			index[seg] = node
			parent.Children = append(parent.Children, node)
		} else if last && node.Kind == File {
			node.HitID = hitID
		} else if !last && node.Kind == File {
			node.Kind = Folder
			node.HitID = ""
		}

		if node.Kind == File {
			return
		}
		parent = node
	}
}

func (p *Projector) sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Kind != b.Kind {
			return a.Kind == Folder
		}
		if c := p.collator.CompareString(a.Name, b.Name); c != 0 {
			return c < 0
		}
		return a.Name < b.Name
	})
	for _, n := range nodes {
		if n.Kind == Folder {
			p.sortNodes(n.Children)
		}
	}
}

func countFiles(n *Node) int {
	if n.Kind == File {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += countFiles(c)
	}
	n.Files = total
	return total
}

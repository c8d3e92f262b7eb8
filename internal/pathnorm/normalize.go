// Package pathnorm maps raw storage paths (NAS UNC paths, object-store
// keys, local file paths) onto one canonical slash-separated form.
package pathnorm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultHostPattern matches the NAS host segments found in storage paths.
const DefaultHostPattern = `(?i)^(?:ts-server|host-)\d+$`

// DefaultStoragePrefixes lists the object-store prefixes that carry no
// meaning for navigation.
var DefaultStoragePrefixes = []string{
	"documents/road",
	"documents/structure",
	"documents/thumbnails",
	"documents/previews",
	"processed/road",
	"processed/structure",
	"docuworks-converted/road",
	"docuworks-converted/structure",
	"documents",
	"processed",
	"docuworks-converted",
	"thumbnails",
	"previews",
}

// DefaultShareSegments are the SMB share names that directly follow a host.
var DefaultShareSegments = []string{"share"}

// DefaultHostCategories groups NAS hosts by department.
var DefaultHostCategories = map[string]string{
	"ts-server3": "road",
	"ts-server5": "road",
	"ts-server6": "structure",
	"ts-server7": "structure",
}

var schemePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.\-]*)://`)

// Options configures a Normalizer. Zero-valued fields take the defaults.
type Options struct {
	HostPattern     string
	StoragePrefixes []string
	ShareSegments   []string
	HostCategories  map[string]string
}

// Normalizer canonicalizes storage paths. It is immutable and safe for
// concurrent use.
type Normalizer struct {
	host       *regexp.Regexp
	prefixes   [][]string
	shares     []string
	categories map[string]string
}

var defaultNormalizer = MustNew(Options{})

// Default returns the normalizer built from the default options.
func Default() *Normalizer { return defaultNormalizer }

// Normalize canonicalizes raw with the default normalizer.
func Normalize(raw string) string { return defaultNormalizer.Normalize(raw) }

// New builds a Normalizer from opts.
func New(opts Options) (*Normalizer, error) {
	pattern := opts.HostPattern
	if pattern == "" {
		pattern = DefaultHostPattern
	}
	host, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pathnorm: host pattern: %w", err)
	}

	prefixes := opts.StoragePrefixes
	if prefixes == nil {
		prefixes = DefaultStoragePrefixes
	}
	shares := opts.ShareSegments
	if shares == nil {
		shares = DefaultShareSegments
	}
	categories := opts.HostCategories
	if categories == nil {
		categories = DefaultHostCategories
	}

	n := &Normalizer{
		host:       host,
		shares:     append([]string(nil), shares...),
		categories: make(map[string]string, len(categories)),
	}
	for k, v := range categories {
		n.categories[strings.ToLower(k)] = v
	}
	for _, p := range prefixes {
		segs := Split(strings.ReplaceAll(p, `\`, "/"))
		if len(segs) > 0 {
			n.prefixes = append(n.prefixes, segs)
		}
	}
	// Longest prefix first; ties keep configuration order.
	sort.SliceStable(n.prefixes, func(i, j int) bool {
		return len(n.prefixes[i]) > len(n.prefixes[j])
	})
	return n, nil
}

// MustNew is New that panics on an invalid host pattern.
func MustNew(opts Options) *Normalizer {
	n, err := New(opts)
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize returns the canonical form of raw. It never fails: input that
// matches no known layout is returned sanitized but otherwise unchanged.
// Normalize(Normalize(p)) == Normalize(p) for every p.
func (n *Normalizer) Normalize(raw string) string {
	return strings.Join(n.Segments(raw), "/")
}

// Segments returns the canonical path of raw split into segments.
func (n *Normalizer) Segments(raw string) []string {
	segs := n.sanitize(raw)
	if i := n.hostIndex(segs); i >= 0 {
		return n.fromHost(segs[i:])
	}
	return n.stripPrefixes(segs)
}

func (n *Normalizer) sanitize(raw string) []string {
	p := strings.TrimSpace(raw)
	if p == "" {
		return nil
	}
	p = norm.NFC.String(strings.ReplaceAll(p, `\`, "/"))

	dropBucket := false
	if m := schemePattern.FindStringSubmatch(p); m != nil {
		dropBucket = strings.EqualFold(m[1], "s3")
		p = p[len(m[0]):]
	}
	segs := Split(p)
	if dropBucket && len(segs) > 0 {
		segs = segs[1:]
	}
	return segs
}

func (n *Normalizer) hostIndex(segs []string) int {
	for i, s := range segs {
		if n.host.MatchString(s) {
			return i
		}
	}
	return -1
}

func (n *Normalizer) fromHost(segs []string) []string {
	out := make([]string, 0, len(segs))
	out = append(out, segs[0])
	rest := segs[1:]
	for len(rest) > 0 && n.isShare(rest[0]) {
		rest = rest[1:]
	}
	return append(out, rest...)
}

func (n *Normalizer) stripPrefixes(segs []string) []string {
	for {
		stripped := false
		for _, prefix := range n.prefixes {
			if hasSegmentPrefix(segs, prefix) {
				segs = segs[len(prefix):]
				stripped = true
				break
			}
		}
		if !stripped {
			return segs
		}
	}
}

func (n *Normalizer) isShare(seg string) bool {
	for _, s := range n.shares {
		if strings.EqualFold(s, seg) {
			return true
		}
	}
	return false
}

func hasSegmentPrefix(segs, prefix []string) bool {
	if len(prefix) > len(segs) {
		return false
	}
	for i, p := range prefix {
		if !strings.EqualFold(segs[i], p) {
			return false
		}
	}
	return true
}

// Split splits a slash-separated path into trimmed segments, dropping empty
// and "." segments.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

package search

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// EmbeddingDimension is the length of every image embedding vector accepted
// by the search backends.
const EmbeddingDimension = 1024

var (
	// ErrEmbeddingDimension reports an image embedding of the wrong length.
	ErrEmbeddingDimension = errors.New("search: embedding dimension mismatch")
	// ErrEmptyQuery reports a text query with no terms.
	ErrEmptyQuery = errors.New("search: empty query")
)

// RawHit is one search hit as returned by a backend. Hits are immutable once
// received; the orchestrator owns them for the lifetime of one search.
type RawHit struct {
	ID             string
	StoragePath    string
	DisplayName    string
	FileType       string
	SizeBytes      int64
	ModifiedAt     time.Time
	Snippet        string
	RelevanceScore float64

	// EmbeddingDistance is set by image searches only.
	EmbeddingDistance *float64
}

// Name returns the display name, falling back to the last element of the
// storage path.
func (h RawHit) Name() string {
	if name := strings.TrimSpace(h.DisplayName); name != "" {
		return name
	}
	p := strings.TrimRight(strings.ReplaceAll(h.StoragePath, `\`, "/"), "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Options carries the paging and filter settings shared by every query mode.
type Options struct {
	Page     int // 1-based
	PageSize int
	FileType string
}

// Normalized returns opts with paging defaults applied.
func (o Options) Normalized() Options {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	return o
}

// DefaultPageSize is used when Options.PageSize is not set.
const DefaultPageSize = 50

// Page is one page of hits returned by a backend.
type Page struct {
	Hits     []RawHit
	Total    int
	Page     int
	PageSize int
}

// TotalPages reports how many pages the backend holds for the query.
func (p Page) TotalPages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Searcher executes queries against a search backend.
type Searcher interface {
	Search(ctx context.Context, q Query, opts Options) (*Page, error)
}

// FileLocator resolves a hit ID into something the OS can open: a URL for
// remote backends, a file path for the local index.
type FileLocator interface {
	Preview(ctx context.Context, id string) (string, error)
	Download(ctx context.Context, id string) (string, error)
}

// Backend is a complete search collaborator.
type Backend interface {
	Searcher
	FileLocator
	Close() error
}

// ResultSet is the result of one successful search. The orchestrator replaces
// its current set as a whole; a ResultSet is never mutated after creation.
type ResultSet struct {
	Generation uint64
	Query      Query
	Options    Options
	Page       Page
	ReceivedAt time.Time
}

// Mode reports the query mode the set was produced by.
func (r *ResultSet) Mode() Mode {
	if r == nil || r.Query == nil {
		return ModeText
	}
	return r.Query.Mode()
}

// Hits returns the hits of the set, nil for a nil set.
func (r *ResultSet) Hits() []RawHit {
	if r == nil {
		return nil
	}
	return r.Page.Hits
}

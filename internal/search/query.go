package search

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Mode identifies the kind of query that produced a result set.
type Mode int

const (
	ModeText Mode = iota
	ModeImage
	ModeHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeImage:
		return "image"
	case ModeHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MatchMode controls how multiple text terms combine.
type MatchMode int

const (
	MatchAll MatchMode = iota // every term must match
	MatchAny                  // at least one term must match
)

func (m MatchMode) String() string {
	if m == MatchAny {
		return "or"
	}
	return "and"
}

// ParseMatchMode accepts "and"/"or" (case-insensitive); anything else is MatchAll.
func ParseMatchMode(s string) MatchMode {
	if strings.EqualFold(strings.TrimSpace(s), "or") {
		return MatchAny
	}
	return MatchAll
}

// Query is a closed union of TextQuery, ImageQuery and HybridQuery. Values
// are built with NewTextQuery and NewImageQuery so that every variant carries
// exactly the fields it needs.
type Query interface {
	Mode() Mode
	isQuery()
}

// TextQuery matches file names, paths and extracted text.
type TextQuery struct {
	Text  string
	Match MatchMode
}

// ImageQuery ranks files by similarity to an image embedding.
type ImageQuery struct {
	Embedding []float32
}

// HybridQuery narrows candidates by text and ranks them by image similarity.
type HybridQuery struct {
	Text      string
	Embedding []float32
}

func (TextQuery) Mode() Mode   { return ModeText }
func (ImageQuery) Mode() Mode  { return ModeImage }
func (HybridQuery) Mode() Mode { return ModeHybrid }

func (TextQuery) isQuery()   {}
func (ImageQuery) isQuery()  {}
func (HybridQuery) isQuery() {}

// Terms splits the query text into lower-cased terms.
func (q TextQuery) Terms() []string { return splitTerms(q.Text) }

// Terms splits the query text into lower-cased terms.
func (q HybridQuery) Terms() []string { return splitTerms(q.Text) }

// NewTextQuery builds a text query. Blank text is rejected.
func NewTextQuery(text string, match MatchMode) (TextQuery, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TextQuery{}, ErrEmptyQuery
	}
	return TextQuery{Text: text, Match: match}, nil
}

// NewImageQuery builds an image query, or a hybrid query when text is not
// blank. The embedding must have EmbeddingDimension finite components.
func NewImageQuery(embedding []float32, text string) (Query, error) {
	if len(embedding) != EmbeddingDimension {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDimension, len(embedding), EmbeddingDimension)
	}
	for i, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("search: embedding component %d is not finite", i)
		}
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	text = strings.TrimSpace(text)
	if text == "" {
		return ImageQuery{Embedding: vec}, nil
	}
	return HybridQuery{Text: text, Embedding: vec}, nil
}

// QueryText returns the text part of q, empty for image-only queries.
func QueryText(q Query) string {
	switch q := q.(type) {
	case TextQuery:
		return q.Text
	case HybridQuery:
		return q.Text
	default:
		return ""
	}
}

func splitTerms(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Generations hands out monotonically increasing request generations. A
// response is current only while no newer generation has been issued.
type Generations struct {
	n atomic.Uint64
}

// Next issues a new generation, superseding all earlier ones.
func (g *Generations) Next() uint64 { return g.n.Add(1) }

// IsCurrent reports whether gen is the latest issued generation.
func (g *Generations) IsCurrent(gen uint64) bool { return gen != 0 && gen == g.n.Load() }

package localindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/vector"
)

// Weights of a term found in each field.
const (
	nameWeight    = 3.0
	pathWeight    = 2.0
	contentWeight = 1.0
)

const snippetRadius = 60

type candidate struct {
	doc   Document
	score float64
	dist  *float64
}

// Search runs q over the index. Scoring happens in Go: text queries weight
// term matches in name, path and content; image queries rank by cosine
// similarity; hybrid queries keep only text matches and rank them by
// similarity.
func (ix *Index) Search(ctx context.Context, q search.Query, opts search.Options) (*search.Page, error) {
	opts = opts.Normalized()

	var (
		cands []candidate
		err   error
	)
	switch q := q.(type) {
	case search.TextQuery:
		cands, err = ix.textCandidates(ctx, q.Terms(), q.Match, opts.FileType, false)
	case search.ImageQuery:
		cands, err = ix.vectorCandidates(ctx, nil, q.Embedding, opts.FileType)
	case search.HybridQuery:
		cands, err = ix.vectorCandidates(ctx, q.Terms(), q.Embedding, opts.FileType)
	case nil:
		return nil, search.ErrEmptyQuery
	default:
		return nil, fmt.Errorf("localindex: unsupported query %T", q)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].doc.Path < cands[j].doc.Path
	})

	page := &search.Page{Total: len(cands), Page: opts.Page, PageSize: opts.PageSize}
	start := (opts.Page - 1) * opts.PageSize
	if start > len(cands) {
		start = len(cands)
	}
	end := start + opts.PageSize
	if end > len(cands) {
		end = len(cands)
	}
	terms := termsOf(q)
	page.Hits = make([]search.RawHit, 0, end-start)
	for _, c := range cands[start:end] {
		page.Hits = append(page.Hits, search.RawHit{
			ID:                c.doc.ID,
			StoragePath:       c.doc.Path,
			DisplayName:       c.doc.Name,
			FileType:          c.doc.FileType,
			SizeBytes:         c.doc.Size,
			ModifiedAt:        c.doc.ModifiedAt,
			Snippet:           snippet(c.doc.Content, terms),
			RelevanceScore:    c.score,
			EmbeddingDistance: c.dist,
		})
	}
	ix.logger.Debug("search", "mode", q.Mode(), "total", page.Total, "page", page.Page)
	return page, nil
}

func termsOf(q search.Query) []string {
	switch q := q.(type) {
	case search.TextQuery:
		return q.Terms()
	case search.HybridQuery:
		return q.Terms()
	}
	return nil
}

// textCandidates narrows with LIKE in sqlite and scores the survivors.
func (ix *Index) textCandidates(ctx context.Context, terms []string, match search.MatchMode, fileType string, needEmbedding bool) ([]candidate, error) {
	if len(terms) == 0 {
		return nil, search.ErrEmptyQuery
	}
	var (
		where []string
		args  []any
	)
	clauses := make([]string, 0, len(terms))
	for _, term := range terms {
		like := "%" + escapeLike(term) + "%"
		clauses = append(clauses, `(file_name LIKE ? ESCAPE '\' OR file_path LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	joiner := " AND "
	if match == search.MatchAny {
		joiner = " OR "
	}
	where = append(where, "("+strings.Join(clauses, joiner)+")")
	if fileType != "" {
		where = append(where, "file_type = ?")
		args = append(args, strings.ToLower(strings.TrimPrefix(fileType, ".")))
	}
	if needEmbedding {
		where = append(where, "embedding IS NOT NULL")
	}

	docs, err := ix.queryDocuments(ctx, strings.Join(where, " AND "), args)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(docs))
	for _, d := range docs {
		score, matched := textScore(d, terms)
		if match == search.MatchAll && matched < len(terms) {
			continue
		}
		if matched == 0 {
			continue
		}
		out = append(out, candidate{doc: d, score: score})
	}
	return out, nil
}

func (ix *Index) vectorCandidates(ctx context.Context, terms []string, vec []float32, fileType string) ([]candidate, error) {
	var docs []Document
	if len(terms) > 0 {
		cands, err := ix.textCandidates(ctx, terms, search.MatchAll, fileType, true)
		if err != nil {
			return nil, err
		}
		docs = make([]Document, 0, len(cands))
		for _, c := range cands {
			docs = append(docs, c.doc)
		}
	} else {
		where := "embedding IS NOT NULL"
		var args []any
		if fileType != "" {
			where += " AND file_type = ?"
			args = append(args, strings.ToLower(strings.TrimPrefix(fileType, ".")))
		}
		var err error
		if docs, err = ix.queryDocuments(ctx, where, args); err != nil {
			return nil, err
		}
	}

	out := make([]candidate, 0, len(docs))
	for _, d := range docs {
		if len(d.Embedding) != len(vec) {
			continue
		}
		sim := vector.Cosine(vec, d.Embedding)
		dist := 1 - sim
		out = append(out, candidate{doc: d, score: sim, dist: &dist})
	}
	return out, nil
}

func (ix *Index) queryDocuments(ctx context.Context, where string, args []any) ([]Document, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, file_name, file_path, file_type, file_size, modified_at, content, embedding
		FROM files WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("localindex: query: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("localindex: scan: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("localindex: rows: %w", err)
	}
	return docs, nil
}

// textScore returns the weighted score of d and how many terms matched.
func textScore(d Document, terms []string) (float64, int) {
	name := strings.ToLower(d.Name)
	p := strings.ToLower(d.Path)
	content := strings.ToLower(d.Content)

	score := 0.0
	matched := 0
	for _, term := range terms {
		hit := false
		if strings.Contains(name, term) {
			score += nameWeight
			hit = true
		}
		if strings.Contains(p, term) {
			score += pathWeight
			hit = true
		}
		if n := strings.Count(content, term); n > 0 {
			if n > 5 {
				n = 5
			}
			score += contentWeight * float64(n)
			hit = true
		}
		if hit {
			matched++
		}
	}
	return score, matched
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// snippet returns the content around the first matching term.
func snippet(content string, terms []string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return ""
	}
	lower := strings.ToLower(content)
	at := -1
	for _, term := range terms {
		if i := strings.Index(lower, term); i >= 0 && (at < 0 || i < at) {
			at = i
		}
	}
	if at < 0 || len(lower) != len(content) {
		// Lower-casing changed byte offsets; fall back to the head.
		at = 0
	}
	start := at - snippetRadius
	if start < 0 {
		start = 0
	}
	end := at + snippetRadius*2
	if end > len(content) {
		end = len(content)
	}
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}
	out := content[start:end]
	if start > 0 {
		out = "…" + out
	}
	if end < len(content) {
		out += "…"
	}
	return out
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kk-code-lab/seekr/internal/search"
)

type vectorRequest struct {
	ImageEmbedding []float32 `json:"imageEmbedding"`
	Query          string    `json:"q,omitempty"`
	Page           int       `json:"page"`
	Limit          int       `json:"limit"`
	FileType       string    `json:"fileType,omitempty"`
}

// envelope is the optional {"success":..,"data":..,"error":..} wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type searchPayload struct {
	Results    []hitRecord `json:"results"`
	Pagination *pagination `json:"pagination"`
	Total      *int        `json:"total"`
}

type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type locatorResponse struct {
	URL          string `json:"url"`
	PresignedURL string `json:"presignedUrl"`
}

// hitRecord accepts both the snake_case and camelCase spellings the API has
// used over time.
type hitRecord struct {
	ID            string      `json:"id"`
	FileName      string      `json:"file_name"`
	FileNameCamel string      `json:"fileName"`
	FilePath      string      `json:"file_path"`
	FilePathCamel string      `json:"filePath"`
	FileType      string      `json:"file_type"`
	FileTypeCamel string      `json:"fileType"`
	FileSize      json.Number `json:"file_size"`
	FileSizeCamel json.Number `json:"fileSize"`
	Modified      string      `json:"modified_date"`
	ModifiedCamel string      `json:"modifiedDate"`
	Snippet       string      `json:"snippet"`
	Highlights    []string    `json:"highlights"`
	Score         *float64    `json:"relevance_score"`
	ScoreCamel    *float64    `json:"relevanceScore"`
	Distance      *float64    `json:"embedding_distance"`
	DistanceCamel *float64    `json:"embeddingDistance"`
}

func decodeSearch(body []byte) (*search.Page, error) {
	var payload searchPayload
	if err := unwrap(body, &payload); err != nil {
		return nil, err
	}

	page := &search.Page{Hits: make([]search.RawHit, 0, len(payload.Results))}
	for _, rec := range payload.Results {
		page.Hits = append(page.Hits, rec.toHit())
	}
	switch {
	case payload.Pagination != nil:
		page.Total = payload.Pagination.Total
		page.Page = payload.Pagination.Page
		page.PageSize = payload.Pagination.Limit
	case payload.Total != nil:
		page.Total = *payload.Total
	default:
		page.Total = len(page.Hits)
	}
	return page, nil
}

// unwrap decodes body into v, looking inside a "data" member when the
// response uses the success envelope.
func unwrap(body []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("httpapi: parse response: %w", err)
	}
	if env.Success != nil && !*env.Success {
		if env.Error != nil {
			return fmt.Errorf("httpapi: %s: %s", env.Error.Code, env.Error.Message)
		}
		return errors.New("httpapi: request unsuccessful")
	}
	src := body
	if len(bytes.TrimSpace(env.Data)) > 0 && !bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		src = env.Data
	}
	if err := json.Unmarshal(src, v); err != nil {
		return fmt.Errorf("httpapi: parse payload: %w", err)
	}
	return nil
}

func (r hitRecord) toHit() search.RawHit {
	h := search.RawHit{
		ID:                r.ID,
		DisplayName:       first(r.FileName, r.FileNameCamel),
		StoragePath:       first(r.FilePath, r.FilePathCamel),
		FileType:          first(r.FileType, r.FileTypeCamel),
		SizeBytes:         parseSize(r.FileSize, r.FileSizeCamel),
		ModifiedAt:        parseTime(first(r.Modified, r.ModifiedCamel)),
		Snippet:           r.Snippet,
		EmbeddingDistance: r.Distance,
	}
	if h.Snippet == "" && len(r.Highlights) > 0 {
		h.Snippet = strings.Join(r.Highlights, " … ")
	}
	if h.EmbeddingDistance == nil {
		h.EmbeddingDistance = r.DistanceCamel
	}
	switch {
	case r.Score != nil:
		h.RelevanceScore = *r.Score
	case r.ScoreCamel != nil:
		h.RelevanceScore = *r.ScoreCamel
	}
	return h
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseSize(values ...json.Number) int64 {
	for _, v := range values {
		if v == "" {
			continue
		}
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

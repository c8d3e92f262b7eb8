package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v2"

	"github.com/kk-code-lab/seekr/internal/config"
	"github.com/kk-code-lab/seekr/internal/embed"
	"github.com/kk-code-lab/seekr/internal/pathnorm"
	"github.com/kk-code-lab/seekr/internal/reconcile"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/selection"
	"github.com/kk-code-lab/seekr/internal/textutil"
	"github.com/kk-code-lab/seekr/internal/tree"
)

const nameColumn = 40

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run one search and print the results and their folder tree",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Search by the image at `PATH`; text narrows the result",
			},
			&cli.StringFlag{
				Name:    "match",
				Aliases: []string{"m"},
				Usage:   "Term matching: and (every term) or or (any term)",
				Value:   "and",
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Only return files of this type (pdf, docx, jpg, ...)",
			},
			&cli.IntFlag{
				Name:    "page",
				Aliases: []string{"p"},
				Usage:   "Result page, starting at 1",
				Value:   1,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per page (defaults to results.page_size)",
			},
			&cli.StringFlag{
				Name:    "folder",
				Aliases: []string{"f"},
				Usage:   "Only list results inside this tree folder",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "Copy the network path of the first result to the clipboard",
			},
			&cli.BoolFlag{
				Name:  "no-tree",
				Usage: "Do not print the folder tree",
			},
		},
		Action: runQuery,
	}
}

func runQuery(c *cli.Context) error {
	cfg := configFrom(c)
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	imagePath := strings.TrimSpace(c.String("image"))
	if text == "" && imagePath == "" {
		return errors.New("query needs search text or --image")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	match := search.ParseMatchMode(c.String("match"))
	var embedder embed.Embedder
	if imagePath != "" {
		e, closeEmbedder := openEmbedder(cfg)
		defer closeEmbedder()
		embedder = e
	}
	q, err := buildQuery(ctx, embedder, text, match, imagePath)
	if err != nil {
		return err
	}

	pageSize := cfg.Results.PageSize
	if c.Int("limit") > 0 {
		pageSize = c.Int("limit")
	}
	opts := search.Options{Page: c.Int("page"), PageSize: pageSize, FileType: c.String("type")}
	page, err := backend.Search(ctx, q, opts)
	if err != nil {
		return err
	}

	r, err := newReport(cfg, q, page, c.String("folder"))
	if err != nil {
		return err
	}
	if c.Bool("copy") {
		if err := copyFirst(r); err != nil {
			return err
		}
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, r, !c.Bool("no-tree"))
	}
	printReport(c.App.Writer, r, !c.Bool("no-tree"))
	return nil
}

func copyFirst(r *report) error {
	if len(r.shown) == 0 {
		return errors.New("nothing to copy")
	}
	if clipboard.Unsupported {
		return errors.New("no clipboard available")
	}
	if err := clipboard.WriteAll(r.location(r.shown[0])); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

func buildQuery(ctx context.Context, embedder embed.Embedder, text string, match search.MatchMode, imagePath string) (search.Query, error) {
	if imagePath == "" {
		return search.NewTextQuery(text, match)
	}
	if embedder == nil {
		return nil, errors.New("image search needs embedding.url in the config")
	}
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	vec, err := embedder.Embed(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embed image: %w", err)
	}
	return search.NewImageQuery(vec, text)
}

// report is one search as the console would show it: the tree projected
// from every raw hit, the reconciled hits and those left by the folder
// filter.
type report struct {
	query   string
	mode    search.Mode
	page    *search.Page
	dropped int
	folder  string
	shown   []search.RawHit
	nodes   []*tree.Node
	norm    *pathnorm.Normalizer
}

func newReport(cfg *config.Config, q search.Query, page *search.Page, folder string) (*report, error) {
	norm, err := cfg.Normalizer()
	if err != nil {
		return nil, err
	}
	proj := cfg.Projector(norm)
	mode := q.Mode()
	reconciled := reconcile.Reconcile(page.Hits, mode, cfg.ReconcileThresholds().For(mode))

	r := &report{
		query:   search.QueryText(q),
		mode:    mode,
		page:    page,
		dropped: len(page.Hits) - len(reconciled),
		folder:  strings.Trim(folder, "/"),
		shown:   reconciled,
		nodes:   proj.Build(page.Hits),
		norm:    norm,
	}
	if r.folder != "" {
		r.shown = selection.Filter(reconciled, r.folder, proj.PathOf)
	}
	return r, nil
}

func (r *report) summary() string {
	parts := []string{r.mode.String()}
	if pages := r.page.TotalPages(); pages > 1 {
		parts = append(parts, fmt.Sprintf("page %d/%d", r.page.Page, pages))
	}
	parts = append(parts, fmt.Sprintf("%d hits", r.page.Total))
	if r.dropped > 0 {
		parts = append(parts, fmt.Sprintf("%d below threshold", r.dropped))
	}
	if r.folder != "" {
		parts = append(parts, fmt.Sprintf("%d shown in %s", len(r.shown), r.folder))
	}
	return strings.Join(parts, " · ")
}

func (r *report) location(h search.RawHit) string {
	if unc, ok := r.norm.UNCPath(h.StoragePath); ok {
		return unc
	}
	return h.StoragePath
}

func printReport(w io.Writer, r *report, withTree bool) {
	fmt.Fprintln(w, r.summary())
	if len(r.shown) == 0 {
		fmt.Fprintln(w, "no results")
	}
	for _, h := range r.shown {
		name := textutil.PadRight(textutil.Truncate(textutil.SanitizeTerminalText(h.Name()), nameColumn), nameColumn)
		fmt.Fprintf(w, "%8.3f  %s  %9s  %16s  %s\n", h.RelevanceScore, name,
			textutil.FormatSize(h.SizeBytes), textutil.FormatTime(h.ModifiedAt),
			textutil.SanitizeTerminalText(r.location(h)))
	}
	if !withTree || len(r.nodes) == 0 {
		return
	}
	fmt.Fprintln(w)
	printTree(w, r.nodes, 0)
}

func printTree(w io.Writer, nodes []*tree.Node, depth int) {
	for _, n := range nodes {
		name := textutil.SanitizeTerminalText(n.Name)
		if n.IsFolder() {
			fmt.Fprintf(w, "%s%s/ (%d)\n", strings.Repeat("  ", depth), name, n.Files)
			printTree(w, n.Children, depth+1)
			continue
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), name)
	}
}

type jsonReport struct {
	Query          string     `json:"query,omitempty"`
	Mode           string     `json:"mode"`
	Total          int        `json:"total"`
	Page           int        `json:"page"`
	TotalPages     int        `json:"totalPages"`
	BelowThreshold int        `json:"belowThreshold"`
	Folder         string     `json:"folder,omitempty"`
	Hits           []jsonHit  `json:"hits"`
	Tree           []jsonNode `json:"tree,omitempty"`
}

type jsonHit struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Path              string     `json:"path"`
	UNCPath           string     `json:"uncPath,omitempty"`
	FileType          string     `json:"fileType,omitempty"`
	Size              int64      `json:"size,omitempty"`
	ModifiedAt        *time.Time `json:"modifiedAt,omitempty"`
	Score             float64    `json:"score"`
	EmbeddingDistance *float64   `json:"embeddingDistance,omitempty"`
	Snippet           string     `json:"snippet,omitempty"`
}

type jsonNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Kind     string     `json:"kind"`
	Files    int        `json:"files,omitempty"`
	HitID    string     `json:"hitId,omitempty"`
	Children []jsonNode `json:"children,omitempty"`
}

func writeJSON(w io.Writer, r *report, withTree bool) error {
	out := jsonReport{
		Query:          r.query,
		Mode:           r.mode.String(),
		Total:          r.page.Total,
		Page:           r.page.Page,
		TotalPages:     r.page.TotalPages(),
		BelowThreshold: r.dropped,
		Folder:         r.folder,
		Hits:           make([]jsonHit, 0, len(r.shown)),
	}
	for _, h := range r.shown {
		hit := jsonHit{
			ID:                h.ID,
			Name:              h.Name(),
			Path:              h.StoragePath,
			FileType:          h.FileType,
			Size:              h.SizeBytes,
			Score:             h.RelevanceScore,
			EmbeddingDistance: h.EmbeddingDistance,
			Snippet:           h.Snippet,
		}
		if unc, ok := r.norm.UNCPath(h.StoragePath); ok {
			hit.UNCPath = unc
		}
		if !h.ModifiedAt.IsZero() {
			t := h.ModifiedAt
			hit.ModifiedAt = &t
		}
		out.Hits = append(out.Hits, hit)
	}
	if withTree {
		out.Tree = jsonNodes(r.nodes)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

func jsonNodes(nodes []*tree.Node) []jsonNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]jsonNode, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, jsonNode{
			Name:     n.Name,
			Path:     n.Path,
			Kind:     n.Kind.String(),
			Files:    n.Files,
			HitID:    n.HitID,
			Children: jsonNodes(n.Children),
		})
	}
	return out
}

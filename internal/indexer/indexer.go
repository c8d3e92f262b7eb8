// Package indexer walks a directory tree into the local search index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/kk-code-lab/seekr/internal/embed"
	"github.com/kk-code-lab/seekr/internal/extract"
	"github.com/kk-code-lab/seekr/internal/filetype"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search/localindex"
)

// DefaultExcludedExtensions are never indexed: temporaries, backups, links
// and sidecar metadata.
var DefaultExcludedExtensions = []string{".tmp", ".$$$", ".bak", ".lnk", ".meta", ".log"}

const (
	defaultBatchSize     = 100
	defaultMaxImageBytes = 32 << 20
)

// namespace scopes document IDs so the same path always maps to the same ID.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("seekr:file"))

// DocumentID returns the stable ID of the file at path.
func DocumentID(path string) string {
	return uuid.NewSHA1(namespace, []byte(filepath.ToSlash(path))).String()
}

// Store is the part of the local index the indexer writes to.
type Store interface {
	Stamps(ctx context.Context) (map[string]localindex.Stamp, error)
	Upsert(ctx context.Context, docs []localindex.Document) error
	Prune(ctx context.Context, keep map[string]struct{}) (int, error)
}

// Stats counts what a run did.
type Stats struct {
	Scanned     int
	Indexed     int
	Unchanged   int
	Skipped     int
	Embedded    int
	EmbedFailed int
	Failed      int
	Pruned      int
	Elapsed     time.Duration
}

// Indexer builds documents for files under a root and writes them in
// batches.
type Indexer struct {
	store         Store
	embedder      embed.Embedder
	workers       int
	batchSize     int
	excerptBytes  int64
	maxImageBytes int64
	excluded      map[string]struct{}
	prune         bool
	progress      func(Stats)
	logger        *log.Logger
}

// Option customizes an Indexer.
type Option func(*Indexer)

// WithEmbedder embeds image files through e.
func WithEmbedder(e embed.Embedder) Option {
	return func(ix *Indexer) { ix.embedder = e }
}

// WithWorkers bounds how many files are read and embedded at once.
func WithWorkers(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.workers = n
		}
	}
}

// WithBatchSize sets how many documents go into one upsert.
func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithExcerptBytes sets how much of each text file is stored.
func WithExcerptBytes(n int64) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.excerptBytes = n
		}
	}
}

// WithExcludedExtensions replaces the skipped extensions.
func WithExcludedExtensions(exts []string) Option {
	return func(ix *Indexer) { ix.excluded = extensionSet(exts) }
}

// WithPrune controls whether documents for vanished files are deleted.
func WithPrune(on bool) Option {
	return func(ix *Indexer) { ix.prune = on }
}

// WithProgress is called after every batch with the running totals.
func WithProgress(fn func(Stats)) Option {
	return func(ix *Indexer) { ix.progress = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

// New returns an indexer writing to store.
func New(store Store, opts ...Option) *Indexer {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	ix := &Indexer{
		store:         store,
		workers:       workers,
		batchSize:     defaultBatchSize,
		excerptBytes:  extract.DefaultExcerptBytes,
		maxImageBytes: defaultMaxImageBytes,
		excluded:      extensionSet(DefaultExcludedExtensions),
		prune:         true,
		logger:        logging.WithPrefix("indexer"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

// run holds the shared state of one Run.
type run struct {
	mu    sync.Mutex
	stats Stats
	keep  map[string]struct{}
	err   error
}

func (r *run) update(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *run) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *run) fail(err error) {
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
}

// Run indexes every file under root. Files whose size and modification time
// match the index are left alone; when pruning is on, index entries for
// files no longer present are removed. Pruning is skipped when the walk did
// not finish.
func (ix *Indexer) Run(ctx context.Context, root string) (Stats, error) {
	start := time.Now()
	root, err := filepath.Abs(root)
	if err != nil {
		return Stats{}, fmt.Errorf("indexer: resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Stats{}, fmt.Errorf("indexer: %w", err)
	}
	if !info.IsDir() {
		return Stats{}, fmt.Errorf("indexer: %s is not a directory", root)
	}

	stamps, err := ix.store.Stamps(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("indexer: load stamps: %w", err)
	}

	pool, err := ants.NewPool(ix.workers)
	if err != nil {
		return Stats{}, fmt.Errorf("indexer: create pool: %w", err)
	}
	defer pool.Release()

	r := &run{keep: make(map[string]struct{})}
	docs := make(chan localindex.Document, ix.batchSize)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		ix.collect(ctx, r, docs)
	}()

	var wg sync.WaitGroup
	conf := &fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			ix.logger.Warn("walk error", "path", path, "err", err)
			r.update(func(s *Stats) { s.Failed++ })
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if extract.Hidden(path, d.Name()) {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ix.skip(path, d.Name()) {
			r.update(func(s *Stats) { s.Skipped++ })
			return nil
		}

		info, err := d.Info()
		if err != nil {
			r.update(func(s *Stats) { s.Failed++ })
			return nil
		}
		id := DocumentID(path)
		kind := filetype.Classify("", d.Name())
		wantEmbedding := ix.embedder != nil && kind == filetype.Image && info.Size() <= ix.maxImageBytes

		r.mu.Lock()
		r.stats.Scanned++
		r.keep[id] = struct{}{}
		r.mu.Unlock()

		if s, ok := stamps[path]; ok && s.ID == id && s.Size == info.Size() &&
			s.ModifiedAt.Equal(info.ModTime()) && (!wantEmbedding || s.Embedded) {
			r.update(func(s *Stats) { s.Unchanged++ })
			return nil
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			doc := ix.build(ctx, r, path, id, kind, info, wantEmbedding)
			select {
			case docs <- doc:
			case <-ctx.Done():
			}
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("indexer: submit: %w", submitErr)
		}
		return nil
	})

	wg.Wait()
	close(docs)
	<-collected

	stats := r.snapshot()
	if walkErr == nil && r.err == nil && ix.prune && ctx.Err() == nil {
		pruned, err := ix.store.Prune(ctx, r.keep)
		if err != nil {
			r.fail(fmt.Errorf("indexer: prune: %w", err))
		}
		stats.Pruned = pruned
	}
	stats.Elapsed = time.Since(start)

	ix.logger.Info("index run finished", "root", root, "scanned", stats.Scanned, "indexed", stats.Indexed,
		"unchanged", stats.Unchanged, "pruned", stats.Pruned, "failed", stats.Failed, "elapsed", stats.Elapsed)

	switch {
	case walkErr != nil:
		return stats, fmt.Errorf("indexer: walk: %w", walkErr)
	case r.err != nil:
		return stats, r.err
	}
	return stats, nil
}

func (ix *Indexer) skip(path, name string) bool {
	if extract.Hidden(path, name) {
		return true
	}
	_, excluded := ix.excluded[strings.ToLower(filepath.Ext(name))]
	return excluded
}

func (ix *Indexer) build(ctx context.Context, r *run, path, id string, kind filetype.Kind, info fs.FileInfo, wantEmbedding bool) localindex.Document {
	doc := localindex.Document{
		ID:         id,
		Name:       info.Name(),
		Path:       path,
		FileType:   filetype.Ext(info.Name()),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}

	if kind.IsTextLike() {
		content, err := extract.Excerpt(path, ix.excerptBytes)
		if err != nil {
			ix.logger.Warn("read text failed", "path", path, "err", err)
		}
		doc.Content = content
	}

	if wantEmbedding {
		vec, err := ix.embedFile(ctx, path)
		if err != nil {
			ix.logger.Warn("embed failed", "path", path, "err", err)
			r.update(func(s *Stats) { s.EmbedFailed++ })
		} else {
			doc.Embedding = vec
			r.update(func(s *Stats) { s.Embedded++ })
		}
	}
	return doc
}

func (ix *Indexer) embedFile(ctx context.Context, path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, ix.maxImageBytes))
	if err != nil {
		return nil, err
	}
	return ix.embedder.Embed(ctx, data)
}

// collect batches documents into upserts until docs is closed.
func (ix *Indexer) collect(ctx context.Context, r *run, docs <-chan localindex.Document) {
	batch := make([]localindex.Document, 0, ix.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := ix.store.Upsert(ctx, batch); err != nil {
			if !errors.Is(err, context.Canceled) {
				ix.logger.Error("upsert failed", "count", len(batch), "err", err)
			}
			r.fail(fmt.Errorf("indexer: upsert: %w", err))
		} else {
			n := len(batch)
			r.update(func(s *Stats) { s.Indexed += n })
		}
		batch = batch[:0]
		if ix.progress != nil {
			ix.progress(r.snapshot())
		}
	}
	for doc := range docs {
		batch = append(batch, doc)
		if len(batch) >= ix.batchSize {
			flush()
		}
	}
	flush()
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kk-code-lab/seekr/internal/embed"
	"github.com/kk-code-lab/seekr/internal/search"
	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

// errNoEmbedder reports an image query without an embedding service.
var errNoEmbedder = errors.New("no embedding service configured")

// executor runs searches and embeddings off the event loop and reports back
// through dispatch. Starting a search cancels the one in flight; the
// reducer drops late results by generation either way.
type executor struct {
	ctx      context.Context
	searcher search.Searcher
	embedder embed.Embedder
	dispatch func(statepkg.Action)
	readFile func(string) ([]byte, error)
	logger   *log.Logger

	searchTimeout time.Duration
	embedTimeout  time.Duration

	mu         sync.Mutex
	cancelPrev context.CancelFunc
	wg         sync.WaitGroup
}

func newExecutor(ctx context.Context, s search.Searcher, e embed.Embedder, dispatch func(statepkg.Action), logger *log.Logger) *executor {
	return &executor{
		ctx:      ctx,
		searcher: s,
		embedder: e,
		dispatch: dispatch,
		readFile: os.ReadFile,
		logger:   logger,
	}
}

// begin derives the context of a new background job, canceling the
// previous one.
func (e *executor) begin(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(e.ctx)
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
		inner := cancel
		cancel = func() { cancelTimeout(); inner() }
	}
	e.mu.Lock()
	if e.cancelPrev != nil {
		e.cancelPrev()
	}
	e.cancelPrev = cancel
	e.mu.Unlock()
	return ctx, cancel
}

// Search runs q in the background.
func (e *executor) Search(gen uint64, q search.Query, opts search.Options) {
	ctx, cancel := e.begin(e.searchTimeout)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		start := time.Now()
		page, err := e.searcher.Search(ctx, q, opts)
		if superseded(ctx, err) {
			return
		}
		e.logger.Debug("search finished", "gen", gen, "mode", q.Mode(), "page", opts.Page,
			"elapsed", time.Since(start), "err", err)
		e.dispatch(statepkg.SearchResultAction{Generation: gen, Query: q, Options: opts, Page: page, Err: err})
	}()
}

// Embed reads the image at imagePath and embeds it in the background.
func (e *executor) Embed(gen uint64, imagePath string) {
	ctx, cancel := e.begin(e.embedTimeout)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		vec, err := e.embedFile(ctx, imagePath)
		if superseded(ctx, err) {
			return
		}
		e.dispatch(statepkg.EmbeddingResultAction{Generation: gen, Path: imagePath, Embedding: vec, Err: err})
	}()
}

// superseded reports a job canceled by a newer one or by shutdown. Timeouts
// are reported.
func superseded(ctx context.Context, err error) bool {
	return err != nil && errors.Is(ctx.Err(), context.Canceled)
}

func (e *executor) embedFile(ctx context.Context, imagePath string) ([]float32, error) {
	if e.embedder == nil {
		return nil, errNoEmbedder
	}
	data, err := e.readFile(expandUserPath(imagePath))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return e.embedder.Embed(ctx, data)
}

// statImage stats the query image the way embedFile reads it.
func statImage(path string) (fs.FileInfo, error) {
	return os.Stat(expandUserPath(path))
}

func (e *executor) wait() {
	e.wg.Wait()
}

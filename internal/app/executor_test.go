package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kk-code-lab/seekr/internal/embed"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
	statepkg "github.com/kk-code-lab/seekr/internal/state"
)

func newTestExecutor(t *testing.T, b *fakeBackend, e *fakeEmbedder) (*executor, chan statepkg.Action) {
	t.Helper()
	ch := make(chan statepkg.Action, 8)
	ctx, cancel := context.WithCancel(context.Background())
	var embedder embed.Embedder
	if e != nil {
		embedder = e
	}
	ex := newExecutor(ctx, b, embedder, func(a statepkg.Action) { ch <- a }, logging.Discard())
	t.Cleanup(func() {
		cancel()
		ex.wait()
	})
	return ex, ch
}

func receive(t *testing.T, ch chan statepkg.Action) statepkg.Action {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an action")
	}
	return nil
}

func TestExecutorSearchDispatchesResult(t *testing.T) {
	ex, ch := newTestExecutor(t, &fakeBackend{hits: testHits()}, nil)
	q, _ := search.NewTextQuery("plan", search.MatchAll)

	ex.Search(4, q, search.Options{Page: 2, PageSize: 10})
	got, ok := receive(t, ch).(statepkg.SearchResultAction)
	if !ok {
		t.Fatalf("expected SearchResultAction")
	}
	if got.Generation != 4 || got.Err != nil || got.Page == nil || len(got.Page.Hits) != 3 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Options.Page != 2 || search.QueryText(got.Query) != "plan" {
		t.Fatalf("expected query and options echoed, got %+v", got)
	}
}

func TestExecutorSearchReportsBackendError(t *testing.T) {
	boom := errors.New("boom")
	ex, ch := newTestExecutor(t, &fakeBackend{err: boom}, nil)
	q, _ := search.NewTextQuery("plan", search.MatchAll)

	ex.Search(1, q, search.Options{})
	got := receive(t, ch).(statepkg.SearchResultAction)
	if !errors.Is(got.Err, boom) {
		t.Fatalf("expected backend error, got %v", got.Err)
	}
}

func TestExecutorNewSearchCancelsPrevious(t *testing.T) {
	b := &fakeBackend{hits: testHits(), block: true}
	ex, ch := newTestExecutor(t, b, nil)
	q, _ := search.NewTextQuery("plan", search.MatchAll)

	ex.Search(1, q, search.Options{})
	deadline := time.Now().Add(2 * time.Second)
	for b.searchCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	ex.Search(2, q, search.Options{})

	got := receive(t, ch).(statepkg.SearchResultAction)
	if got.Generation != 2 || got.Err != nil {
		t.Fatalf("expected the second search to report, got %+v", got)
	}
	ex.wait()
	select {
	case a := <-ch:
		t.Fatalf("canceled search must not report, got %+v", a)
	default:
	}
}

func TestExecutorSearchTimeoutIsReported(t *testing.T) {
	ex, ch := newTestExecutor(t, &fakeBackend{block: true}, nil)
	ex.searchTimeout = 10 * time.Millisecond
	q, _ := search.NewTextQuery("plan", search.MatchAll)

	ex.Search(1, q, search.Options{})
	got := receive(t, ch).(statepkg.SearchResultAction)
	if !errors.Is(got.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", got.Err)
	}
}

func TestExecutorEmbedReadsImage(t *testing.T) {
	e := &fakeEmbedder{}
	ex, ch := newTestExecutor(t, &fakeBackend{}, e)
	ex.readFile = func(path string) ([]byte, error) {
		if path != "/photos/pier.jpg" {
			t.Errorf("unexpected path %q", path)
		}
		return []byte("jpeg"), nil
	}

	ex.Embed(3, "/photos/pier.jpg")
	got := receive(t, ch).(statepkg.EmbeddingResultAction)
	if got.Generation != 3 || got.Path != "/photos/pier.jpg" || got.Err != nil {
		t.Fatalf("unexpected embedding result %+v", got)
	}
	if len(got.Embedding) != search.EmbeddingDimension {
		t.Fatalf("expected %d values, got %d", search.EmbeddingDimension, len(got.Embedding))
	}
	if len(e.images) != 1 || string(e.images[0]) != "jpeg" {
		t.Fatalf("expected image bytes passed to embedder")
	}
}

func TestExecutorEmbedErrors(t *testing.T) {
	ex, ch := newTestExecutor(t, &fakeBackend{}, nil)
	ex.Embed(1, "/photos/pier.jpg")
	if got := receive(t, ch).(statepkg.EmbeddingResultAction); !errors.Is(got.Err, errNoEmbedder) {
		t.Fatalf("expected errNoEmbedder, got %v", got.Err)
	}

	ex, ch = newTestExecutor(t, &fakeBackend{}, &fakeEmbedder{})
	ex.readFile = func(string) ([]byte, error) { return nil, errors.New("missing") }
	ex.Embed(2, "/nope.jpg")
	if got := receive(t, ch).(statepkg.EmbeddingResultAction); got.Err == nil {
		t.Fatalf("expected read error")
	}
}

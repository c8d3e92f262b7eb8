package localindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"), WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func unit(axis int) []float32 {
	v := make([]float32, search.EmbeddingDimension)
	v[axis] = 1
	return v
}

func blend(a, b int, wa, wb float32) []float32 {
	v := make([]float32, search.EmbeddingDimension)
	v[a] = wa
	v[b] = wb
	return v
}

func seed(t *testing.T, ix *Index) {
	t.Helper()
	mod := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	docs := []Document{
		{ID: "1", Name: "bridge-plan.pdf", Path: "/nas/ts-server3/R06/bridge-plan.pdf", FileType: "pdf", Size: 100, ModifiedAt: mod, Content: "Pier and girder layout for the river bridge."},
		{ID: "2", Name: "notes.txt", Path: "/nas/ts-server3/R06/notes.txt", FileType: "txt", Size: 10, ModifiedAt: mod, Content: "bridge bridge bridge inspection notes"},
		{ID: "3", Name: "photo-a.jpg", Path: "/nas/photos/photo-a.jpg", FileType: "jpg", Embedding: unit(0)},
		{ID: "4", Name: "photo-b.jpg", Path: "/nas/photos/bridge/photo-b.jpg", FileType: "jpg", Embedding: blend(0, 1, 0.6, 0.8)},
		{ID: "5", Name: "tunnel.pdf", Path: "/nas/ts-server5/tunnel.pdf", FileType: "pdf", Content: "100% concrete_lining"},
	}
	require.NoError(t, ix.Upsert(context.Background(), docs))
}

func TestUpsertAndGet(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)
	ctx := context.Background()

	n, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	d, err := ix.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "photo-a.jpg", d.Name)
	require.Len(t, d.Embedding, search.EmbeddingDimension)
	assert.Equal(t, float32(1), d.Embedding[0])

	_, err = ix.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, ix.Upsert(ctx, []Document{{ID: "2", Name: "notes.txt", Path: "/nas/ts-server3/R06/notes.txt", Content: "rewritten"}}))
	d, err = ix.Get(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "rewritten", d.Content)
}

func TestUpsertRejectsMissingID(t *testing.T) {
	ix := openTestIndex(t)
	err := ix.Upsert(context.Background(), []Document{{Name: "x", Path: "/x"}})
	assert.Error(t, err)
}

func TestTextSearchScoresAndPages(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)
	ctx := context.Background()

	q, err := search.NewTextQuery("bridge", search.MatchAll)
	require.NoError(t, err)
	page, err := ix.Search(ctx, q, search.Options{})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	// name+path+content beats path only and content only.
	assert.Equal(t, "1", page.Hits[0].ID)
	assert.Contains(t, page.Hits[0].Snippet, "bridge")

	page, err = ix.Search(ctx, q, search.Options{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Hits, 1)
}

func TestTextSearchMatchModes(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)
	ctx := context.Background()

	all, _ := search.NewTextQuery("pier tunnel", search.MatchAll)
	page, err := ix.Search(ctx, all, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	anyQ, _ := search.NewTextQuery("pier tunnel", search.MatchAny)
	page, err = ix.Search(ctx, anyQ, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestTextSearchEscapesWildcards(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)
	ctx := context.Background()

	q, _ := search.NewTextQuery("100%", search.MatchAll)
	page, err := ix.Search(ctx, q, search.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "5", page.Hits[0].ID)

	q, _ = search.NewTextQuery("e_l", search.MatchAll)
	page, err = ix.Search(ctx, q, search.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total, "underscore must match literally")
}

func TestTextSearchFileTypeFilter(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)
	q, _ := search.NewTextQuery("bridge", search.MatchAll)
	page, err := ix.Search(context.Background(), q, search.Options{FileType: ".TXT"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "2", page.Hits[0].ID)
}

func TestImageSearchRanksBySimilarity(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)

	q, err := search.NewImageQuery(unit(0), "")
	require.NoError(t, err)
	page, err := ix.Search(context.Background(), q, search.Options{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, "3", page.Hits[0].ID)
	assert.InDelta(t, 1.0, page.Hits[0].RelevanceScore, 1e-6)
	assert.InDelta(t, 0.6, page.Hits[1].RelevanceScore, 1e-6)
	require.NotNil(t, page.Hits[1].EmbeddingDistance)
	assert.InDelta(t, 0.4, *page.Hits[1].EmbeddingDistance, 1e-6)
}

func TestHybridSearchNarrowsByText(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)

	q, err := search.NewImageQuery(unit(0), "bridge")
	require.NoError(t, err)
	page, err := ix.Search(context.Background(), q, search.Options{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "4", page.Hits[0].ID)
}

func TestStampsPruneAndLocate(t *testing.T) {
	ix := openTestIndex(t)
	seed(t, ix)
	ctx := context.Background()

	stamps, err := ix.Stamps(ctx)
	require.NoError(t, err)
	require.Len(t, stamps, 5)
	s := stamps["/nas/ts-server3/R06/bridge-plan.pdf"]
	assert.Equal(t, "1", s.ID)
	assert.Equal(t, int64(100), s.Size)
	assert.True(t, s.ModifiedAt.Equal(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)))
	assert.True(t, stamps["/nas/photos/photo-a.jpg"].Embedded)
	assert.False(t, s.Embedded)

	removed, err := ix.Prune(ctx, map[string]struct{}{"1": {}, "3": {}})
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	p, err := ix.Preview(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "/nas/ts-server3/R06/bridge-plan.pdf", p)
	_, err = ix.Download(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnippet(t *testing.T) {
	long := "start lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua target word here and more text after the target to make it long enough for trimming on both sides"
	got := snippet(long, []string{"target"})
	assert.Contains(t, got, "target")
	assert.True(t, len(got) < len(long))
	assert.Equal(t, "", snippet("   ", []string{"x"}))
}

func TestMemoryIndexesArePrivate(t *testing.T) {
	ctx := context.Background()
	a, err := Open(":memory:", WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(":memory:", WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Upsert(ctx, []Document{{ID: "1", Name: "plan.pdf", Path: "/nas/plan.pdf"}}))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = b.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

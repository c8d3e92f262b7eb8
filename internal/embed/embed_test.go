package embed

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/kk-code-lab/seekr/internal/httpx"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func vectorJSON(fill float32) []float32 {
	v := make([]float32, search.EmbeddingDimension)
	for i := range v {
		v[i] = fill
	}
	return v
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	hc := httpx.New(5*time.Second, 0)
	hc.Limiter = rate.NewLimiter(rate.Inf, 1)
	hc.Backoffs = []time.Duration{time.Millisecond}
	opts = append([]Option{WithHTTPClient(hc), WithLogger(logging.Discard())}, opts...)
	c, err := NewClient(srv.URL+"/embed", opts...)
	require.NoError(t, err)
	return c
}

func TestPrepareDownscalesToJPEG(t *testing.T) {
	out, err := Prepare(pngImage(t, 400, 100), 200)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	out, err := Prepare(pngImage(t, 30, 60), 200)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 60, cfg.Height)
}

func TestPrepareRejectsUnknownFormat(t *testing.T) {
	_, err := Prepare([]byte("%PDF-1.7 not an image"), 100)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 200, 100, 50},
		{2000, 1000, 1000, 1000, 500},
		{1000, 2000, 1000, 500, 1000},
		{5000, 1, 100, 100, 1},
		{10, 10, 0, 10, 10},
	}
	for _, tt := range tests {
		w, h := fit(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fit(%d, %d, %d) = %d×%d, want %d×%d", tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestEmbedSendsDataURL(t *testing.T) {
	var req embedRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &req))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"embedding": vectorJSON(0.5),
				"dimension": search.EmbeddingDimension,
				"model":     "titan-embed-image-v1",
				"cached":    false,
			},
		})
	}, WithAPIKey("k"), WithMaxSide(64))

	v, err := c.Embed(context.Background(), pngImage(t, 128, 128))
	require.NoError(t, err)
	require.Len(t, v, search.EmbeddingDimension)
	assert.Equal(t, float32(0.5), v[0])

	assert.True(t, req.UseCache)
	require.True(t, strings.HasPrefix(req.ImageBase64, "data:image/jpeg;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(req.ImageBase64, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
}

func TestEmbedAcceptsBareResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": vectorJSON(0.25)})
	}, WithServerCache(false))
	v, err := c.Embed(context.Background(), pngImage(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), v[search.EmbeddingDimension-1])
}

func TestEmbedReportsServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"code":"INVALID_IMAGE","message":"too large"}}`))
	})
	_, err := c.Embed(context.Background(), pngImage(t, 8, 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_IMAGE")
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[1,2,3]}`))
	})
	_, err := c.Embed(context.Background(), pngImage(t, 8, 8))
	assert.ErrorIs(t, err, search.ErrEmbeddingDimension)
}

func TestEmbedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": vectorJSON(1)})
	})
	_, err := c.Embed(context.Background(), pngImage(t, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewClientValidatesEndpoint(t *testing.T) {
	for _, raw := range []string{"", "  ", "file:///tmp/x"} {
		_, err := NewClient(raw)
		assert.Error(t, err, raw)
	}
}

type countingEmbedder struct {
	calls atomic.Int32
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return vectorJSON(float32(len(image))), nil
}

func TestCachedMemoizesByContent(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := OpenCache(inner, "", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	a, err := c.Embed(ctx, []byte("image-a"))
	require.NoError(t, err)
	again, err := c.Embed(ctx, []byte("image-a"))
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = c.Embed(ctx, []byte("image-bb"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	inner := &countingEmbedder{}
	c, err := OpenCache(inner, dir, 0)
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), []byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = OpenCache(inner, dir, 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	_, err = c.Embed(context.Background(), []byte("persisted"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	boom := errors.New("boom")
	inner := &countingEmbedder{err: boom}
	c, err := OpenCache(inner, "", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.Embed(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, boom)
	_, err = c.Embed(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestOpenCacheNeedsEmbedder(t *testing.T) {
	_, err := OpenCache(nil, "", 0)
	assert.Error(t, err)
}

// Package embed turns query images into embedding vectors by way of the
// remote image-embedding service.
package embed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kk-code-lab/seekr/internal/httpx"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
)

// DefaultMaxSide is the longest edge, in pixels, of an image sent for
// embedding.
const DefaultMaxSide = 1024

// Embedder computes the embedding of an encoded image.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// Client calls the embedding service.
type Client struct {
	endpoint string
	http     *httpx.Client
	maxSide  int
	useCache bool
	logger   *log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIKey sends key in the X-Api-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.http.Header.Set("X-Api-Key", key)
		}
	}
}

// WithHTTPClient replaces the transport, timeouts and retry policy.
func WithHTTPClient(h *httpx.Client) Option {
	return func(c *Client) {
		if h != nil {
			if h.Header == nil {
				h.Header = make(http.Header)
			}
			c.http = h
		}
	}
}

// WithMaxSide sets the downscale bound; non-positive values keep the default.
func WithMaxSide(px int) Option {
	return func(c *Client) {
		if px > 0 {
			c.maxSide = px
		}
	}
}

// WithServerCache controls the useCache flag sent to the service.
func WithServerCache(on bool) Option {
	return func(c *Client) { c.useCache = on }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client posting to endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("embed: endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("embed: endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("embed: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		endpoint: u.String(),
		http:     httpx.New(60*time.Second, 2),
		maxSide:  DefaultMaxSide,
		useCache: true,
		logger:   logging.WithPrefix("embed"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type embedRequest struct {
	ImageBase64 string `json:"imageBase64"`
	UseCache    bool   `json:"useCache"`
}

type embedResult struct {
	Embedding []float32 `json:"embedding"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"model"`
	Cached    bool      `json:"cached"`
	ImageHash string    `json:"imageHash"`
}

type embedResponse struct {
	Success *bool        `json:"success"`
	Data    *embedResult `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	embedResult
}

// Embed downscales image, posts it as a JPEG data URL and returns the
// vector.
func (c *Client) Embed(ctx context.Context, image []byte) ([]float32, error) {
	jpegData, err := Prepare(image, c.maxSide)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(embedRequest{
		ImageBase64: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData),
		UseCache:    c.useCache,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: encode request: %w", err)
	}

	start := time.Now()
	data, err := c.http.Do(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	var resp embedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("embed: parse response: %w", err)
	}
	if resp.Success != nil && !*resp.Success {
		if resp.Error != nil {
			return nil, fmt.Errorf("embed: %s: %s", resp.Error.Code, resp.Error.Message)
		}
		return nil, errors.New("embed: request unsuccessful")
	}
	result := resp.embedResult
	if resp.Data != nil {
		result = *resp.Data
	}
	if len(result.Embedding) != search.EmbeddingDimension {
		return nil, fmt.Errorf("%w: service returned %d values", search.ErrEmbeddingDimension, len(result.Embedding))
	}
	c.logger.Debug("embedded image", "bytes", len(jpegData), "model", result.Model,
		"cached", result.Cached, "elapsed", time.Since(start))
	return result.Embedding, nil
}

var _ Embedder = (*Client)(nil)

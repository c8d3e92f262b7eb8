// Package httpapi is the search backend reached over the document-search
// HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kk-code-lab/seekr/internal/httpx"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
)

// ErrNoURL reports a locator response without a URL.
var ErrNoURL = errors.New("httpapi: response carries no url")

// Client talks to the search API.
type Client struct {
	base   *url.URL
	http   *httpx.Client
	logger *log.Logger
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

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpapi: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpapi: base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpapi: unsupported scheme %q", base.Scheme)
	}
	c := &Client{
		base:   base,
		http:   httpx.New(30*time.Second, 5),
		logger: logging.WithPrefix("httpapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs q and returns one page of hits. Text queries use GET with
// query parameters; image and hybrid queries POST the embedding.
func (c *Client) Search(ctx context.Context, q search.Query, opts search.Options) (*search.Page, error) {
	opts = opts.Normalized()
	start := time.Now()

	var (
		body []byte
		err  error
	)
	switch q := q.(type) {
	case search.TextQuery:
		params := url.Values{}
		params.Set("q", q.Text)
		params.Set("page", strconv.Itoa(opts.Page))
		params.Set("limit", strconv.Itoa(opts.PageSize))
		params.Set("searchMode", q.Match.String())
		if opts.FileType != "" {
			params.Set("fileType", opts.FileType)
		}
		body, err = c.http.Do(ctx, http.MethodGet, c.endpoint("search", params), nil)
	case search.ImageQuery:
		body, err = c.postVector(ctx, q.Embedding, "", opts)
	case search.HybridQuery:
		body, err = c.postVector(ctx, q.Embedding, q.Text, opts)
	case nil:
		return nil, search.ErrEmptyQuery
	default:
		return nil, fmt.Errorf("httpapi: unsupported query %T", q)
	}
	if err != nil {
		return nil, fmt.Errorf("httpapi: %s search: %w", q.Mode(), err)
	}

	page, err := decodeSearch(body)
	if err != nil {
		return nil, err
	}
	if page.Page == 0 {
		page.Page = opts.Page
	}
	if page.PageSize == 0 {
		page.PageSize = opts.PageSize
	}
	c.logger.Debug("search", "mode", q.Mode(), "page", page.Page, "hits", len(page.Hits), "total", page.Total, "elapsed", time.Since(start))
	return page, nil
}

func (c *Client) postVector(ctx context.Context, vec []float32, text string, opts search.Options) ([]byte, error) {
	req := vectorRequest{
		ImageEmbedding: vec,
		Query:          text,
		Page:           opts.Page,
		Limit:          opts.PageSize,
		FileType:       opts.FileType,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.http.Do(ctx, http.MethodPost, c.endpoint("search", nil), payload)
}

// Preview returns a URL that renders the document.
func (c *Client) Preview(ctx context.Context, id string) (string, error) {
	return c.locate(ctx, "preview", id)
}

// Download returns a URL that serves the original document.
func (c *Client) Download(ctx context.Context, id string) (string, error) {
	return c.locate(ctx, "download", id)
}

func (c *Client) locate(ctx context.Context, kind, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("httpapi: %s: empty id", kind)
	}
	params := url.Values{}
	params.Set("id", id)
	body, err := c.http.Do(ctx, http.MethodGet, c.endpoint(kind, params), nil)
	if err != nil {
		return "", fmt.Errorf("httpapi: %s %s: %w", kind, id, err)
	}
	var resp locatorResponse
	if err := unwrap(body, &resp); err != nil {
		return "", err
	}
	u := resp.URL
	if u == "" {
		u = resp.PresignedURL
	}
	if u == "" {
		return "", fmt.Errorf("httpapi: %s %s: %w", kind, id, ErrNoURL)
	}
	return u, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.HTTP.CloseIdleConnections()
	return nil
}

func (c *Client) endpoint(name string, params url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + name
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

var _ search.Backend = (*Client)(nil)

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kk-code-lab/seekr/internal/config"
	"github.com/kk-code-lab/seekr/internal/embed"
	"github.com/kk-code-lab/seekr/internal/httpx"
	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/search/httpapi"
	"github.com/kk-code-lab/seekr/internal/search/localindex"
)

// openBackend builds the search backend named by the config.
func openBackend(cfg *config.Config) (search.Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendLocal:
		return openIndex(cfg)
	case config.BackendHTTP:
		hc := httpx.New(cfg.Backend.Timeout.Duration, cfg.Backend.RequestsPerSecond)
		return httpapi.New(cfg.Backend.URL,
			httpapi.WithHTTPClient(hc),
			httpapi.WithAPIKey(cfg.Backend.APIKey),
			httpapi.WithLogger(logging.WithPrefix("httpapi")),
		)
	}
	return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend.Kind)
}

func openIndex(cfg *config.Config) (*localindex.Index, error) {
	if dir := filepath.Dir(cfg.Index.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
	}
	return localindex.Open(cfg.Index.Path, localindex.WithLogger(logging.WithPrefix("localindex")))
}

// openEmbedder returns the embedding client behind its on-disk cache, or nil
// when no embedding service is configured. The cache is skipped when it
// cannot be opened, for example while another seekr holds it.
func openEmbedder(cfg *config.Config) (embed.Embedder, func()) {
	noop := func() {}
	if cfg.Embedding.URL == "" {
		return nil, noop
	}
	logger := logging.WithPrefix("embed")
	hc := httpx.New(cfg.Embedding.Timeout.Duration, cfg.Backend.RequestsPerSecond)
	client, err := embed.NewClient(cfg.Embedding.URL,
		embed.WithHTTPClient(hc),
		embed.WithAPIKey(cfg.Embedding.APIKey),
		embed.WithMaxSide(cfg.Embedding.MaxImageSide),
		embed.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("embedding disabled", "err", err)
		return nil, noop
	}
	if cfg.Embedding.CacheDir == "" {
		return client, noop
	}
	cached, err := embed.OpenCache(client, cfg.Embedding.CacheDir, embed.DefaultCacheTTL)
	if err != nil {
		logger.Warn("embedding cache disabled", "dir", cfg.Embedding.CacheDir, "err", err)
		return client, noop
	}
	return cached, func() {
		if err := cached.Close(); err != nil {
			logger.Warn("close embedding cache", "err", err)
		}
	}
}

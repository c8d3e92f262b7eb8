package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/vector"
)

// DefaultCacheTTL is how long a cached embedding stays valid.
const DefaultCacheTTL = 30 * 24 * time.Hour

const cacheKeyPrefix = "emb:"

// Cached memoizes an Embedder in a badger store keyed by the SHA-256 of the
// original image bytes.
type Cached struct {
	inner  Embedder
	db     *badger.DB
	ttl    time.Duration
	logger *log.Logger
}

// badgerLogger routes badger's printf-style logging to charmbracelet/log.
type badgerLogger struct {
	logger *log.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (bl *badgerLogger) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Infof(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

func (bl *badgerLogger) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenCache wraps inner with a cache stored in dir. An empty dir keeps the
// cache in memory.
func OpenCache(inner Embedder, dir string, ttl time.Duration) (*Cached, error) {
	if inner == nil {
		return nil, errors.New("embed: cache needs an embedder")
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("embed: create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	logger := logging.WithPrefix("embed-cache")
	opts.Logger = &badgerLogger{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("embed: open cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{inner: inner, db: db, ttl: ttl, logger: logger}, nil
}

// Close closes the store.
func (c *Cached) Close() error { return c.db.Close() }

// Embed returns the cached vector for image, computing and storing it on a
// miss. Store failures are logged and do not fail the call.
func (c *Cached) Embed(ctx context.Context, image []byte) ([]float32, error) {
	key := cacheKey(image)
	if v, ok := c.lookup(key); ok {
		c.logger.Debug("cache hit", "key", string(key[len(cacheKeyPrefix):]))
		return v, nil
	}

	v, err := c.inner.Embed(ctx, image)
	if err != nil {
		return nil, err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, vector.Encode(v)).WithTTL(c.ttl))
	})
	if err != nil {
		c.logger.Warn("cache store failed", "err", err)
	}
	return v, nil
}

func (c *Cached) lookup(key []byte) ([]float32, bool) {
	var v []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v = vector.Decode(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("cache read failed", "err", err)
		}
		return nil, false
	}
	if len(v) != search.EmbeddingDimension {
		return nil, false
	}
	return v, true
}

func cacheKey(image []byte) []byte {
	sum := sha256.Sum256(image)
	return []byte(cacheKeyPrefix + hex.EncodeToString(sum[:]))
}

var _ Embedder = (*Cached)(nil)

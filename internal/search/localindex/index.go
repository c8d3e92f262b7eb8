// Package localindex is a search backend over a sqlite index of files on
// local or mounted disks.
package localindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"

	"github.com/kk-code-lab/seekr/internal/logging"
	"github.com/kk-code-lab/seekr/internal/search"
	"github.com/kk-code-lab/seekr/internal/vector"
)

// ErrNotFound reports an unknown document ID.
var ErrNotFound = errors.New("localindex: document not found")

// Document is one indexed file.
type Document struct {
	ID         string
	Name       string
	Path       string
	FileType   string
	Size       int64
	ModifiedAt time.Time
	Content    string
	Embedding  []float32
}

// Stamp identifies the indexed version of a file.
type Stamp struct {
	ID         string
	Size       int64
	ModifiedAt time.Time
	Embedded   bool
}

// Index is the sqlite-backed index. It is safe for concurrent use.
type Index struct {
	db     *sql.DB
	logger *log.Logger
}

// Option customizes an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// memorySeq names in-memory databases so that each Open gets its own.
var memorySeq atomic.Uint64

// Open opens or creates the index at path. ":memory:" opens a private
// in-memory database.
func Open(path string, opts ...Option) (*Index, error) {
	connStr := path
	if path == ":memory:" {
		connStr = fmt.Sprintf("file:seekr-memory-%d?mode=memory&cache=shared", memorySeq.Add(1))
	}
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("localindex: open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("localindex: ping database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("localindex: enable WAL mode: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("localindex: busy timeout: %w", err)
		}
	}

	ix := &Index{db: db, logger: logging.WithPrefix("localindex")}
	for _, opt := range opts {
		opt(ix)
	}
	if err := ix.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

func (ix *Index) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL UNIQUE,
		file_type TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		modified_at INTEGER NOT NULL DEFAULT 0,
		content TEXT NOT NULL DEFAULT '',
		embedding BLOB,
		indexed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_type ON files(file_type);
	CREATE INDEX IF NOT EXISTS idx_files_name ON files(file_name);
	`
	if _, err := ix.db.Exec(schema); err != nil {
		return fmt.Errorf("localindex: create tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (ix *Index) Close() error { return ix.db.Close() }

// Upsert inserts or replaces docs in one transaction.
func (ix *Index) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("localindex: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (id, file_name, file_path, file_type, file_size, modified_at, content, embedding, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			file_path = excluded.file_path,
			file_type = excluded.file_type,
			file_size = excluded.file_size,
			modified_at = excluded.modified_at,
			content = excluded.content,
			embedding = excluded.embedding,
			indexed_at = excluded.indexed_at
	`)
	if err != nil {
		return fmt.Errorf("localindex: prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("localindex: document %q has no id", d.Path)
		}
		var blob any
		if len(d.Embedding) > 0 {
			blob = vector.Encode(d.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Name, d.Path, strings.ToLower(d.FileType), d.Size,
			unixNano(d.ModifiedAt), d.Content, blob, now); err != nil {
			return fmt.Errorf("localindex: upsert %s: %w", d.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("localindex: commit: %w", err)
	}
	ix.logger.Debug("upserted", "count", len(docs))
	return nil
}

// Get returns the document with id.
func (ix *Index) Get(ctx context.Context, id string) (Document, error) {
	row := ix.db.QueryRowContext(ctx, `
		SELECT id, file_name, file_path, file_type, file_size, modified_at, content, embedding
		FROM files WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("localindex: get %s: %w", id, err)
	}
	return d, nil
}

// Count returns the number of indexed documents.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&n); err != nil {
		return 0, fmt.Errorf("localindex: count: %w", err)
	}
	return n, nil
}

// Stamps returns the indexed version of every file, keyed by path.
func (ix *Index) Stamps(ctx context.Context) (map[string]Stamp, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT id, file_path, file_size, modified_at, embedding IS NOT NULL FROM files")
	if err != nil {
		return nil, fmt.Errorf("localindex: stamps: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Stamp)
	for rows.Next() {
		var (
			s        Stamp
			p        string
			mod      int64
			embedded int
		)
		if err := rows.Scan(&s.ID, &p, &s.Size, &mod, &embedded); err != nil {
			return nil, fmt.Errorf("localindex: scan stamp: %w", err)
		}
		s.ModifiedAt = fromUnixNano(mod)
		s.Embedded = embedded != 0
		out[p] = s
	}
	return out, rows.Err()
}

// Prune deletes every document whose ID is not in keep and returns how many
// were removed.
func (ix *Index) Prune(ctx context.Context, keep map[string]struct{}) (int, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT id FROM files")
	if err != nil {
		return 0, fmt.Errorf("localindex: prune: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("localindex: prune scan: %w", err)
		}
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("localindex: begin: %w", err)
	}
	defer tx.Rollback()
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("localindex: delete %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("localindex: commit: %w", err)
	}
	return len(stale), nil
}

// Preview returns the file path of the document; the OS opener shows it.
func (ix *Index) Preview(ctx context.Context, id string) (string, error) {
	d, err := ix.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return d.Path, nil
}

// Download returns the file path of the document.
func (ix *Index) Download(ctx context.Context, id string) (string, error) {
	return ix.Preview(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (Document, error) {
	var (
		d    Document
		mod  int64
		blob []byte
	)
	if err := s.Scan(&d.ID, &d.Name, &d.Path, &d.FileType, &d.Size, &mod, &d.Content, &blob); err != nil {
		return Document{}, err
	}
	d.ModifiedAt = fromUnixNano(mod)
	d.Embedding = vector.Decode(blob)
	return d, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

var _ search.Backend = (*Index)(nil)

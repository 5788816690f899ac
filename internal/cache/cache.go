// Package cache remembers per-file parse results between runs so unchanged
// files are not parsed again.
package cache

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"docgraph/internal/graph"
)

// DefaultDir is the cache location used when none is configured.
const DefaultDir = ".docgraph/cache"

// FileName is the database file inside the cache directory.
const FileName = "parse.db"

const schema = `
CREATE TABLE IF NOT EXISTS parse_cache (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	digest TEXT NOT NULL,
	parser TEXT NOT NULL,
	result TEXT NOT NULL
);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// result is the stored form of a parse. Annotated is false for files that
// produced no node, so they are not re-read either.
type result struct {
	Annotated bool         `json:"annotated"`
	Name      string       `json:"name,omitempty"`
	Edges     []graph.Edge `json:"edges,omitempty"`
	Note      string       `json:"note,omitempty"`
}

// Cache is a SQLite-backed parse cache keyed by file path. Entries are only
// valid for the parser configuration they were written with.
type Cache struct {
	db     *sql.DB
	parser string
}

// Open opens or creates the cache database in dir. parser identifies the
// parser configuration; entries written under another value are misses.
func Open(dir, parser string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// Parse workers share the cache; one connection serializes writes.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Cache{db: db, parser: parser}, nil
}

// Close closes the database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Lookup returns the cached parse for path when size and mtime still match.
// The node is nil when the file was not annotated. ok is false on a miss.
func (c *Cache) Lookup(path string, size int64, mtime time.Time) (node *graph.Node, ok bool, err error) {
	var (
		cachedSize, cachedMtime int64
		raw                     string
	)
	err = c.db.QueryRow(
		"SELECT size, mtime, result FROM parse_cache WHERE path = ? AND parser = ?",
		path, c.parser,
	).Scan(&cachedSize, &cachedMtime, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}
	if cachedSize != size || cachedMtime != mtime.UnixNano() {
		return nil, false, nil
	}

	node, err = decode(path, raw)
	if err != nil {
		return nil, false, err
	}
	return node, true, nil
}

// LookupDigest returns the cached parse for path when its content digest
// matches, which catches files that were touched but not changed. A hit
// refreshes the stored size and mtime.
func (c *Cache) LookupDigest(path, digest string, size int64, mtime time.Time) (node *graph.Node, ok bool, err error) {
	var raw string
	err = c.db.QueryRow(
		"SELECT result FROM parse_cache WHERE path = ? AND parser = ? AND digest = ?",
		path, c.parser, digest,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying cache: %w", err)
	}

	node, err = decode(path, raw)
	if err != nil {
		return nil, false, err
	}

	if _, err := c.db.Exec(
		"UPDATE parse_cache SET size = ?, mtime = ? WHERE path = ?",
		size, mtime.UnixNano(), path,
	); err != nil {
		return nil, false, fmt.Errorf("refreshing cache entry: %w", err)
	}
	return node, true, nil
}

// Store records the parse of path. node may be nil for a file that is not
// annotated.
func (c *Cache) Store(path string, size int64, mtime time.Time, digest string, node *graph.Node) error {
	r := result{}
	if node != nil {
		r = result{Annotated: true, Name: node.Name, Edges: node.Edges, Note: node.Note}
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO parse_cache (path, size, mtime, digest, parser, result)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		path, size, mtime.UnixNano(), digest, c.parser, string(raw),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM parse_cache")
	return err
}

// Stats describes the cache contents.
type Stats struct {
	Entries int64
}

// Stats counts stored entries.
func (c *Cache) Stats() (*Stats, error) {
	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM parse_cache").Scan(&count); err != nil {
		return nil, err
	}
	return &Stats{Entries: count}, nil
}

// Digest returns the hex BLAKE3-256 digest of content.
func Digest(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// decode rebuilds a fresh node so callers may mutate it. LastModified is
// left at the sentinel for the caller to fill from the file.
func decode(path, raw string) (*graph.Node, error) {
	var r result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}
	if !r.Annotated {
		return nil, nil
	}

	node := graph.NewNode(r.Name, path)
	for _, e := range r.Edges {
		node.AddEdge(e.Target, e.Kind)
	}
	node.Note = r.Note
	return node, nil
}

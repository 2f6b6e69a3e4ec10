// Package clibinary caches CLI binary resolution metadata (resolved path,
// mode, last-seen version) in a small on-disk SQLite database, so repeated
// sessions in the same host don't re-walk PATH or re-exec `claude
// --version` every time. It stores no conversation content — only
// resolution bookkeeping, keeping modernc.org/sqlite wired without
// crossing the "no persistent storage of conversations" boundary.
package clibinary

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
    mode TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    version TEXT,
    resolved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Cache is a handle to the resolution-metadata database.
type Cache struct {
	db *sql.DB
}

// DefaultPath returns the cache file location under the user's config
// directory, creating the directory if necessary.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	full := filepath.Join(dir, "claude-agent-sdk-go")
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	return filepath.Join(full, "clibinary.db"), nil
}

// Open creates or opens the cache at path and ensures its schema exists.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening clibinary cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing clibinary schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }

// Resolution is one cached binary-resolution result for a given mode.
type Resolution struct {
	Path       string
	Version    string
	ResolvedAt time.Time
}

// Get returns the cached resolution for mode ("bundled" or "global"), if
// any and if still fresh enough to trust (the caller decides staleness;
// this layer just returns what it has).
func (c *Cache) Get(mode string) (Resolution, bool, error) {
	var r Resolution
	err := c.db.QueryRow(
		`SELECT path, version, resolved_at FROM resolutions WHERE mode = ?`, mode,
	).Scan(&r.Path, &r.Version, &r.ResolvedAt)
	if err == sql.ErrNoRows {
		return Resolution{}, false, nil
	}
	if err != nil {
		return Resolution{}, false, fmt.Errorf("querying clibinary cache: %w", err)
	}
	return r, true, nil
}

// Put records a fresh resolution for mode, overwriting any prior entry.
func (c *Cache) Put(mode string, r Resolution) error {
	_, err := c.db.Exec(
		`INSERT INTO resolutions (mode, path, version, resolved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(mode) DO UPDATE SET path=excluded.path, version=excluded.version, resolved_at=excluded.resolved_at`,
		mode, r.Path, r.Version, r.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("writing clibinary cache: %w", err)
	}
	return nil
}

// Package hashcache remembers ROM hashes between scans so unchanged files are
// not re-read. Entries are keyed by path and system and are only reused when
// the file size and modification time still match.
package hashcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Key identifies one hashed file revision.
type Key struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
	System  string
}

// Cache is a SQLite-backed hash memo. It is safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
}

// Open creates or opens the cache database at path and applies migrations.
func Open(path string) (*Cache, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("hash cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure hash cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{db: db, path: path}
	if err := cache.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Path returns the database location.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the stored hash for key when size and mtime still match.
func (c *Cache) Lookup(ctx context.Context, key Key) (string, bool, error) {
	var hash string
	err := c.db.QueryRowContext(ctx,
		`SELECT hash FROM rom_hashes WHERE path = ? AND system = ? AND size = ? AND mtime_ns = ?`,
		key.Path, key.System, key.Size, key.ModTime,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query hash for %s: %w", key.Path, err)
	}
	return hash, true, nil
}

// Store records hash for key, replacing any older revision of the file.
func (c *Cache) Store(ctx context.Context, key Key, hash string) error {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return errors.New("hash must not be empty")
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rom_hashes (path, system, size, mtime_ns, hash, hashed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.Path, key.System, key.Size, key.ModTime, hash, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store hash for %s: %w", key.Path, err)
	}
	return nil
}

// FindByHash returns the paths last recorded with hash.
func (c *Cache) FindByHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT path FROM rom_hashes WHERE hash = LOWER(?) ORDER BY path`, hash)
	if err != nil {
		return nil, fmt.Errorf("query paths by hash: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of stored hashes.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM rom_hashes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count hashes: %w", err)
	}
	return n, nil
}

// Prune deletes rows whose files no longer exist and returns how many went.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT path FROM rom_hashes`)
	if err != nil {
		return 0, fmt.Errorf("list cached paths: %w", err)
	}
	var missing []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan path: %w", err)
		}
		if _, statErr := os.Stat(p); errors.Is(statErr, os.ErrNotExist) {
			missing = append(missing, p)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate cached paths: %w", err)
	}
	rows.Close()

	removed := 0
	for _, p := range missing {
		res, err := c.db.ExecContext(ctx, `DELETE FROM rom_hashes WHERE path = ?`, p)
		if err != nil {
			return removed, fmt.Errorf("delete %s: %w", p, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			removed += int(n)
		}
	}
	return removed, nil
}

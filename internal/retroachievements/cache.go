package retroachievements

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"romverify/internal/catalog"
	"romverify/internal/fileutil"
	"romverify/internal/logging"
	"romverify/internal/system"
)

// ErrNoCatalogs is returned when not a single requested catalog could be
// loaded or downloaded.
var ErrNoCatalogs = errors.New("no catalogs available")

// ErrNotCached is returned in offline mode for documents never downloaded.
var ErrNotCached = errors.New("catalog not cached")

const consoleIDsFile = "console_ids.json"

// Fetcher retrieves raw API documents. *Client implements it.
type Fetcher interface {
	ConsoleIDsDocument(ctx context.Context) ([]byte, error)
	GameListDocument(ctx context.Context, consoleID int) ([]byte, error)
}

var _ Fetcher = (*Client)(nil)

// LoadOptions controls how Cache treats existing files.
type LoadOptions struct {
	// Refresh downloads documents even when a cached copy exists.
	Refresh bool
	// Offline never downloads; only cached documents are used.
	Offline bool
}

// Cache stores API documents under Dir.
type Cache struct {
	dir     string
	fetcher Fetcher
	logger  *slog.Logger
}

// NewCache returns a cache rooted at dir. fetcher may be nil, in which case
// the cache behaves as if offline.
func NewCache(dir string, fetcher Fetcher, logger *slog.Logger) *Cache {
	return &Cache{
		dir:     dir,
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "catalog-cache"),
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// ConsoleIDsPath is the cached console id table.
func (c *Cache) ConsoleIDsPath() string {
	return filepath.Join(c.dir, consoleIDsFile)
}

// GameListPath is the cached game list of one console.
func (c *Cache) GameListPath(consoleID int) string {
	return filepath.Join(c.dir, "system_games_"+strconv.Itoa(consoleID)+".json")
}

// ConsoleIDs returns the console table, downloading it when missing.
func (c *Cache) ConsoleIDs(ctx context.Context, opts LoadOptions) ([]catalog.Console, error) {
	data, err := c.document(ctx, c.ConsoleIDsPath(), opts, func(ctx context.Context) ([]byte, error) {
		return c.fetcher.ConsoleIDsDocument(ctx)
	}, func(data []byte) error {
		_, err := catalog.DecodeConsoles(bytes.NewReader(data))
		return err
	})
	if err != nil {
		return nil, err
	}
	return catalog.DecodeConsoles(bytes.NewReader(data))
}

// GameList returns the catalog of sys, downloading it when missing.
func (c *Cache) GameList(ctx context.Context, sys system.System, consoleID int, opts LoadOptions) (*catalog.Catalog, error) {
	var entries []catalog.Entry
	_, err := c.document(ctx, c.GameListPath(consoleID), opts, func(ctx context.Context) ([]byte, error) {
		return c.fetcher.GameListDocument(ctx, consoleID)
	}, func(data []byte) error {
		var err error
		entries, err = catalog.DecodeEntries(bytes.NewReader(data))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &catalog.Catalog{System: sys, ConsoleID: consoleID, Entries: entries}, nil
}

// document returns the cached file at path, or downloads, validates and
// stores it. validate runs on every returned document.
func (c *Cache) document(ctx context.Context, path string, opts LoadOptions, download func(context.Context) ([]byte, error), validate func([]byte) error) ([]byte, error) {
	if !opts.Refresh || opts.Offline || c.fetcher == nil {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := validate(data); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			return data, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read cached document: %w", err)
		}
		if opts.Offline || c.fetcher == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotCached, filepath.Base(path))
		}
	}

	data, err := download(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("downloaded %s: %w", filepath.Base(path), err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("store %s: %w", filepath.Base(path), err)
	}
	c.logger.Info("catalog document downloaded",
		logging.String(logging.FieldPath, path),
		logging.Int("bytes", len(data)),
	)
	return data, nil
}

// LoadCatalogs builds the catalog set for systems. Systems whose console id
// or game list cannot be obtained are logged and skipped; ErrNoCatalogs is
// returned only when nothing loaded.
func (c *Cache) LoadCatalogs(ctx context.Context, systems []system.System, opts LoadOptions) (catalog.Set, error) {
	consoles, err := c.ConsoleIDs(ctx, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("console id table unavailable; using built-in ids", logging.Error(err))
	}
	ids := catalog.SystemIDs(consoles)

	set := make(catalog.Set, len(systems))
	for _, sys := range systems {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		consoleID, ok := ids[sys]
		if !ok {
			logging.WarnWithContext(ctx, c.logger, "no console id for system", "catalog_console_unknown",
				logging.String(logging.FieldSystem, sys.String()),
				logging.String(logging.FieldErrorHint, "run 'romverify catalog fetch --refresh' to update the console table"),
				logging.String(logging.FieldImpact, "files of this system stay unmatched"),
			)
			continue
		}
		cat, err := c.GameList(ctx, sys, consoleID, opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.WarnWithContext(ctx, c.logger, "catalog unavailable", "catalog_load_failed",
				logging.String(logging.FieldSystem, sys.String()),
				logging.Int("console_id", consoleID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, loadHint(err)),
				logging.String(logging.FieldImpact, "files of this system stay unmatched"),
			)
			continue
		}
		set[sys] = cat
		c.logger.Debug("catalog loaded",
			logging.String(logging.FieldSystem, sys.String()),
			logging.Int("entries", cat.Len()),
			logging.Int("hashes", cat.HashCount()),
		)
	}

	if len(set) == 0 {
		return nil, ErrNoCatalogs
	}
	return set, nil
}

func loadHint(err error) string {
	switch {
	case errors.Is(err, ErrNotCached):
		return "run 'romverify catalog fetch' with an API key configured"
	case errors.Is(err, ErrMissingAPIKey):
		return "set retroachievements.api_key or RA_API_KEY"
	case errors.Is(err, ErrUnauthorized):
		return "check the api key at https://retroachievements.org/settings"
	default:
		return "check network access and the API key, or retry with --refresh"
	}
}

// Status describes one system's cached catalog.
type Status struct {
	System    system.System
	ConsoleID int
	Path      string
	Cached    bool
	Entries   int
	Hashes    int
	Updated   time.Time
	Err       error
}

// Statuses inspects the cached catalogs of systems without downloading.
func (c *Cache) Statuses(ctx context.Context, systems []system.System) []Status {
	consoles, _ := c.ConsoleIDs(ctx, LoadOptions{Offline: true})
	ids := catalog.SystemIDs(consoles)

	out := make([]Status, 0, len(systems))
	for _, sys := range systems {
		st := Status{System: sys, ConsoleID: ids[sys]}
		if st.ConsoleID == 0 {
			out = append(out, st)
			continue
		}
		st.Path = c.GameListPath(st.ConsoleID)
		info, err := os.Stat(st.Path)
		if err != nil {
			out = append(out, st)
			continue
		}
		st.Cached = true
		st.Updated = info.ModTime()
		cat, err := catalog.LoadFile(st.Path, sys, st.ConsoleID)
		if err != nil {
			st.Err = err
		} else {
			st.Entries = cat.Len()
			st.Hashes = cat.HashCount()
		}
		out = append(out, st)
	}
	return out
}

package retroachievements

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"romverify/internal/logging"
	"romverify/internal/system"
)

type fakeFetcher struct {
	consoles  []byte
	games     map[int][]byte
	fail      map[int]error
	consoleN  int
	gameCalls map[int]int
}

func (f *fakeFetcher) ConsoleIDsDocument(context.Context) ([]byte, error) {
	f.consoleN++
	if f.consoles == nil {
		return nil, errors.New("console table offline")
	}
	return f.consoles, nil
}

func (f *fakeFetcher) GameListDocument(_ context.Context, id int) ([]byte, error) {
	if f.gameCalls == nil {
		f.gameCalls = map[int]int{}
	}
	f.gameCalls[id]++
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	if doc, ok := f.games[id]; ok {
		return doc, nil
	}
	return []byte(`[]`), nil
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		consoles: []byte(`[{"ID":4,"Name":"Game Boy","Active":true,"IsGameSystem":true},{"ID":18,"Name":"Nintendo DS","Active":true,"IsGameSystem":true}]`),
		games: map[int][]byte{
			4:  []byte(`[{"Title":"Pokemon Blue","ID":724,"ConsoleID":4,"Hashes":["50927E843568814F7ED45EC4F944BD8B"]}]`),
			18: []byte(`[{"Title":"Super Game","ID":9,"ConsoleID":18,"Hashes":[]}]`),
		},
	}
}

func TestLoadCatalogsDownloadsOnceThenReusesCache(t *testing.T) {
	dir := t.TempDir()
	fake := newFake()
	cache := NewCache(dir, fake, logging.NewNop())
	ctx := context.Background()

	set, err := cache.LoadCatalogs(ctx, []system.System{system.GB, system.NDS}, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadCatalogs failed: %v", err)
	}
	gb, ok := set.Get(system.GB)
	if !ok || gb.ConsoleID != 4 || gb.Entries[0].Hashes[0] != "50927e843568814f7ed45ec4f944bd8b" {
		t.Fatalf("unexpected GB catalog: %+v", gb)
	}
	if _, err := os.Stat(filepath.Join(dir, "system_games_4.json")); err != nil {
		t.Fatalf("expected cached game list: %v", err)
	}
	if _, err := os.Stat(cache.ConsoleIDsPath()); err != nil {
		t.Fatalf("expected cached console table: %v", err)
	}

	if _, err := cache.LoadCatalogs(ctx, []system.System{system.GB}, LoadOptions{}); err != nil {
		t.Fatalf("second LoadCatalogs failed: %v", err)
	}
	if fake.gameCalls[4] != 1 || fake.consoleN != 1 {
		t.Fatalf("expected cached documents reused, calls=%v consoles=%d", fake.gameCalls, fake.consoleN)
	}

	if _, err := cache.LoadCatalogs(ctx, []system.System{system.GB}, LoadOptions{Refresh: true}); err != nil {
		t.Fatalf("refresh LoadCatalogs failed: %v", err)
	}
	if fake.gameCalls[4] != 2 {
		t.Fatalf("refresh should download again, calls=%v", fake.gameCalls)
	}
}

func TestLoadCatalogsSkipsFailedSystems(t *testing.T) {
	fake := newFake()
	fake.fail = map[int]error{18: errors.New("boom")}
	cache := NewCache(t.TempDir(), fake, nil)

	set, err := cache.LoadCatalogs(context.Background(), []system.System{system.NDS, system.GB}, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadCatalogs failed: %v", err)
	}
	if _, ok := set.Get(system.NDS); ok {
		t.Fatal("failed system should be skipped")
	}
	if _, ok := set.Get(system.GB); !ok {
		t.Fatal("healthy system should load")
	}
}

func TestLoadCatalogsFallsBackToKnownConsoleIDs(t *testing.T) {
	fake := newFake()
	fake.consoles = nil
	cache := NewCache(t.TempDir(), fake, nil)

	set, err := cache.LoadCatalogs(context.Background(), []system.System{system.GB}, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadCatalogs failed: %v", err)
	}
	if gb, ok := set.Get(system.GB); !ok || gb.ConsoleID != 4 {
		t.Fatalf("expected built-in console id, got %+v", gb)
	}
}

func TestLoadCatalogsOffline(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(dir, nil, nil)
	ctx := context.Background()

	if _, err := cache.LoadCatalogs(ctx, system.All(), LoadOptions{Offline: true}); !errors.Is(err, ErrNoCatalogs) {
		t.Fatalf("expected ErrNoCatalogs with empty cache, got %v", err)
	}
	if _, err := cache.GameList(ctx, system.GB, 4, LoadOptions{Offline: true}); !errors.Is(err, ErrNotCached) {
		t.Fatalf("expected ErrNotCached, got %v", err)
	}

	doc := []byte(`[{"Title":"Tetris","ID":1,"ConsoleID":4,"Hashes":["aa"]}]`)
	if err := os.WriteFile(cache.GameListPath(4), doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fake := newFake()
	online := NewCache(dir, fake, nil)
	set, err := online.LoadCatalogs(ctx, []system.System{system.GB}, LoadOptions{Offline: true})
	if err != nil {
		t.Fatalf("offline LoadCatalogs failed: %v", err)
	}
	if gb, _ := set.Get(system.GB); gb.Entries[0].Title != "Tetris" {
		t.Fatalf("expected cached catalog, got %+v", gb)
	}
	if len(fake.gameCalls) != 0 || fake.consoleN != 0 {
		t.Fatal("offline mode must not download")
	}
}

func TestCorruptCacheIsReported(t *testing.T) {
	cache := NewCache(t.TempDir(), newFake(), nil)
	if err := os.WriteFile(cache.GameListPath(4), []byte(`{"broken"`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := cache.GameList(context.Background(), system.GB, 4, LoadOptions{}); err == nil {
		t.Fatal("expected decode error for corrupt cache file")
	}
}

func TestInvalidDownloadIsNotStored(t *testing.T) {
	fake := newFake()
	fake.games[4] = []byte(`{"Error":"invalid key"}`)
	cache := NewCache(t.TempDir(), fake, nil)

	if _, err := cache.GameList(context.Background(), system.GB, 4, LoadOptions{}); err == nil {
		t.Fatal("expected error for non-list document")
	}
	if _, err := os.Stat(cache.GameListPath(4)); !os.IsNotExist(err) {
		t.Fatalf("invalid document should not be cached, stat err=%v", err)
	}
}

func TestStatuses(t *testing.T) {
	cache := NewCache(t.TempDir(), newFake(), nil)
	ctx := context.Background()
	if _, err := cache.GameList(ctx, system.GB, 4, LoadOptions{}); err != nil {
		t.Fatalf("GameList failed: %v", err)
	}

	statuses := cache.Statuses(ctx, []system.System{system.GB, system.GBA})
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	gb := statuses[0]
	if !gb.Cached || gb.Entries != 1 || gb.Hashes != 1 || gb.ConsoleID != 4 || gb.Updated.IsZero() {
		t.Fatalf("unexpected GB status: %+v", gb)
	}
	if statuses[1].Cached || statuses[1].ConsoleID != 5 {
		t.Fatalf("unexpected GBA status: %+v", statuses[1])
	}
}

package testsupport

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/goccy/go-json"

	"romverify/internal/catalog"
	"romverify/internal/system"
)

// Entry builds a catalog entry with the given title and hashes.
func Entry(id int, title string, hashes ...string) catalog.Entry {
	if hashes == nil {
		hashes = []string{}
	}
	return catalog.Entry{ID: id, Title: title, Hashes: hashes}
}

// Catalog builds a single-system catalog set.
func Catalog(sys system.System, entries ...catalog.Entry) catalog.Set {
	id, _ := catalog.KnownConsoleID(sys)
	for i := range entries {
		entries[i].ConsoleID = id
		entries[i].ConsoleName = sys.CatalogName()
	}
	return catalog.Set{sys: {System: sys, ConsoleID: id, Entries: entries}}
}

// WriteGameList stores entries as a cached game list for sys under dir and
// returns the file path.
func WriteGameList(t testing.TB, dir string, sys system.System, entries ...catalog.Entry) string {
	t.Helper()

	id, ok := catalog.KnownConsoleID(sys)
	if !ok {
		t.Fatalf("no console id for %s", sys)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal game list: %v", err)
	}
	return WriteFile(t, filepath.Join(dir, "system_games_"+strconv.Itoa(id)+".json"), data)
}

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"romverify/internal/catalog"
	"romverify/internal/config"
	"romverify/internal/system"
	"romverify/internal/testsupport"
)

const emptyMD5 = "d41d8cd98f00b204e9800998ecf8427e"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("RA_API_KEY", "")
	cfg := testsupport.NewConfig(t, opts...)
	if err := os.MkdirAll(cfg.Paths.RomsDir, 0o755); err != nil {
		t.Fatalf("mkdir roms: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: testsupport.WriteConfig(t, cfg)}
}

func (e *cliTestEnv) rom(t *testing.T, name string, data []byte) string {
	t.Helper()
	return testsupport.WriteFile(t, filepath.Join(e.cfg.Paths.RomsDir, name), data)
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeScan(t *testing.T, out string) scanReport {
	t.Helper()
	var report scanReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, out)
	}
	return report
}

func TestScanOfflineConfirmsCachedCatalogMatch(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteGameList(t, env.cfg.CatalogDir(), system.GB,
		testsupport.Entry(42, "Pokemon Blue", emptyMD5))
	env.rom(t, "pokemon_blue.gb", nil)
	env.rom(t, "readme.txt", []byte("hello"))

	out, _, err := runCLI(t, env.configPath, "scan", "--offline", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	report := decodeScan(t, out)
	if report.RunID == "" {
		t.Fatal("expected run id in report")
	}
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	got := report.Results[0]
	if got.FileName != "pokemon_blue.gb" || got.MatchedTitle != "Pokemon Blue" || !got.Confirmed {
		t.Fatalf("unexpected result: %+v", got)
	}
	if report.Results[1].System != system.Unknown {
		t.Fatalf("readme should be unrecognized: %+v", report.Results[1])
	}
	if report.Summary.Confirmed != 1 || report.Summary.Classified != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
}

func TestScanTableOutput(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutHashCache())
	testsupport.WriteGameList(t, env.cfg.CatalogDir(), system.GB,
		testsupport.Entry(42, "Pokemon Blue", emptyMD5))
	env.rom(t, "pokemon_blue.gb", []byte{0x01})

	out, _, err := runCLI(t, env.configPath, "scan", "--offline")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "Pokemon Blue")
	requireContains(t, out, "name only")
	requireContains(t, out, "1 files, 1 recognized, 1 matched, 0 confirmed")
}

func TestScanWithoutCatalogsStillClassifies(t *testing.T) {
	env := setupCLITestEnv(t)
	env.rom(t, "golden_sun.gba", testsupport.Pattern(32, 1))

	out, _, err := runCLI(t, env.configPath, "scan", "--offline", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	report := decodeScan(t, out)
	if len(report.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(report.Results))
	}
	got := report.Results[0]
	if got.System != system.GBA || got.Hash == "" || got.Matched() {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestScanSingleFileArgument(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteGameList(t, env.cfg.CatalogDir(), system.GB,
		testsupport.Entry(42, "Pokemon Blue", emptyMD5))
	path := env.rom(t, "pokemon_blue.gb", nil)
	env.rom(t, "other.gb", []byte{2})

	out, _, err := runCLI(t, env.configPath, "scan", path, "--offline", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	report := decodeScan(t, out)
	if len(report.Results) != 1 || report.Results[0].Path != path {
		t.Fatalf("expected only %s, got %+v", path, report.Results)
	}
}

func TestScanSystemFilter(t *testing.T) {
	env := setupCLITestEnv(t)
	env.rom(t, "pokemon_blue.gb", nil)

	out, _, err := runCLI(t, env.configPath, "scan", "--offline", "--json", "--system", "gba")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	report := decodeScan(t, out)
	if got := report.Results[0]; got.Hash != "" || got.Note == "" {
		t.Fatalf("filtered system should be reported without hash: %+v", got)
	}
}

func TestScanRejectsInvalidWorkers(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "scan", "--offline", "--workers", "0"); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}

func newCatalogServer(t *testing.T, gameList []catalog.Entry) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var gameListCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("y") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/API_GetConsoleIDs.php"):
			_ = json.NewEncoder(w).Encode([]catalog.Console{{ID: 4, Name: "Game Boy", Active: true, IsGameSystem: true}})
		case strings.HasSuffix(r.URL.Path, "/API_GetGameList.php"):
			if r.URL.Query().Get("i") != "4" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			gameListCalls.Add(1)
			_ = json.NewEncoder(w).Encode(gameList)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &gameListCalls
}

func TestScanDownloadsMissingCatalog(t *testing.T) {
	srv, calls := newCatalogServer(t, []catalog.Entry{testsupport.Entry(42, "Pokemon Blue", emptyMD5)})
	env := setupCLITestEnv(t,
		testsupport.WithAPIKey("secret"),
		testsupport.WithBaseURL(srv.URL+"/API"),
		testsupport.WithSystems("gb"),
	)
	env.rom(t, "pokemon_blue.gb", nil)

	out, _, err := runCLI(t, env.configPath, "scan", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !decodeScan(t, out).Results[0].Confirmed {
		t.Fatalf("expected confirmed result:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.CatalogDir(), "system_games_4.json")); err != nil {
		t.Fatalf("game list not cached: %v", err)
	}

	if _, _, err := runCLI(t, env.configPath, "scan", "--json"); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("game list downloaded %d times, want 1", calls.Load())
	}
}

func TestCatalogFetchAndList(t *testing.T) {
	srv, calls := newCatalogServer(t, []catalog.Entry{
		testsupport.Entry(42, "Pokemon Blue", emptyMD5),
		testsupport.Entry(43, "Pokemon Red", "00000000000000000000000000000001"),
	})
	env := setupCLITestEnv(t, testsupport.WithAPIKey("secret"), testsupport.WithBaseURL(srv.URL+"/API"))

	out, _, err := runCLI(t, env.configPath, "catalog", "fetch", "gb")
	if err != nil {
		t.Fatalf("catalog fetch: %v", err)
	}
	requireContains(t, out, "Game Boy")
	requireContains(t, out, "cached")

	if _, _, err := runCLI(t, env.configPath, "catalog", "fetch", "gb", "--refresh"); err != nil {
		t.Fatalf("catalog fetch --refresh: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("game list downloaded %d times, want 2", calls.Load())
	}

	out, _, err = runCLI(t, env.configPath, "catalog", "list", "--json")
	if err != nil {
		t.Fatalf("catalog list: %v", err)
	}
	var records []catalogStatusRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != len(system.All()) {
		t.Fatalf("got %d records, want %d", len(records), len(system.All()))
	}
	for _, rec := range records {
		if rec.System == system.GB {
			if !rec.Cached || rec.Entries != 2 || rec.Hashes != 2 {
				t.Fatalf("unexpected gb status: %+v", rec)
			}
		} else if rec.Cached {
			t.Fatalf("%s should not be cached", rec.System)
		}
	}
}

func TestCatalogFetchRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "catalog", "fetch")
	if err == nil {
		t.Fatal("expected missing api key error")
	}
	requireContains(t, err.Error(), "RA_API_KEY")
}

func TestCatalogImport(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(t.TempDir(), "gba.json")
	data, err := json.Marshal([]catalog.Entry{testsupport.Entry(7, "Golden Sun", "abc")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	testsupport.WriteFile(t, source, data)

	out, _, err := runCLI(t, env.configPath, "catalog", "import", "gba", source)
	if err != nil {
		t.Fatalf("catalog import: %v", err)
	}
	requireContains(t, out, "Imported 1 Game Boy Advance titles")
	if _, err := os.Stat(filepath.Join(env.cfg.CatalogDir(), "system_games_5.json")); err != nil {
		t.Fatalf("imported list missing: %v", err)
	}

	bad := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "bad.json"), []byte("{not json"))
	if _, _, err := runCLI(t, env.configPath, "catalog", "import", "gba", bad); err == nil {
		t.Fatal("expected error for invalid game list")
	}
	if _, _, err := runCLI(t, env.configPath, "catalog", "import", "snes", source); err == nil {
		t.Fatal("expected error for unknown system")
	}
}

func TestHashCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.rom(t, "pokemon_blue.gb", nil)
	other := env.rom(t, "notes.txt", []byte("x"))

	out, _, err := runCLI(t, env.configPath, "hash", "--json", path, other)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	var records []hashRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Hash != emptyMD5 || records[0].System != system.GB {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if records[1].Error == "" {
		t.Fatalf("expected error for text file: %+v", records[1])
	}

	out, _, err = runCLI(t, env.configPath, "cache", "lookup", emptyMD5)
	if err != nil {
		t.Fatalf("cache lookup: %v", err)
	}
	requireContains(t, out, path)
}

func TestClassifyCommandSkipsConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	gba := testsupport.WriteFile(t, filepath.Join(dir, "game.gba"), []byte{1})
	txt := testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte{1})

	out, _, err := runCLI(t, filepath.Join(dir, "missing", "config.toml"), "classify", gba, txt)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	requireContains(t, out, "Game Boy Advance")
	requireContains(t, out, "whole file")
}

func TestCacheStatsAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.rom(t, "game.gbc", []byte{1, 2, 3})

	if _, _, err := runCLI(t, env.configPath, "scan", "--offline", "--json"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries:    1")

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	out, _, err = runCLI(t, env.configPath, "cache", "prune")
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "Removed 1 stale entries")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	if _, _, err := runCLI(t, target, "config", "validate"); err != nil {
		t.Fatalf("sample config should validate: %v", err)
	}
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := testsupport.WriteFile(t, filepath.Join(t.TempDir(), "config.toml"), []byte("[matching]\nthreshold = 2\n"))
	if _, _, err := runCLI(t, path, "scan", "--offline"); err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSystems("gb"))
	testsupport.WriteGameList(t, env.cfg.CatalogDir(), system.GB, testsupport.Entry(1, "Tetris"))

	out, _, err := runCLI(t, env.configPath, "status", "--offline")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Catalogs:")
	requireContains(t, out, "1/1 cached")
	requireContains(t, out, "API key missing")
}

func TestLogsCommandFiltersByRun(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	configPath := testsupport.WriteConfig(t, env.cfg)
	env.rom(t, "game.gb", []byte{1})

	out, _, err := runCLI(t, configPath, "scan", "--offline", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	runID := decodeScan(t, out).RunID

	out, _, err = runCLI(t, configPath, "logs", "--run", runID, "--component", "scan")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "scan started")
	requireContains(t, out, "scan finished")

	out, _, err = runCLI(t, configPath, "logs", "--run", "no-such-run")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no entries, got %q", out)
	}
}

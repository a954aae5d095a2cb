package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"romverify/internal/config"
	"romverify/internal/system"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("RA_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "romverify", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}

	if want := filepath.Join(tempHome, ".local", "share", "romverify"); cfg.Paths.DataDir != want {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, want)
	}
	if cfg.Paths.RomsDir != filepath.Join(tempHome, "roms") {
		t.Fatalf("unexpected roms dir: %q", cfg.Paths.RomsDir)
	}
	if cfg.CatalogDir() != filepath.Join(cfg.Paths.DataDir, "catalogs") {
		t.Fatalf("unexpected catalog dir: %q", cfg.CatalogDir())
	}
	if cfg.RetroAchievements.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.RetroAchievements.APIKey)
	}
	if cfg.RetroAchievements.BaseURL != "https://retroachievements.org/API" {
		t.Fatalf("unexpected base url: %q", cfg.RetroAchievements.BaseURL)
	}
	if cfg.RequestTimeout() != 30*time.Second || cfg.MinRequestInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected request pacing: %v %v", cfg.RequestTimeout(), cfg.MinRequestInterval())
	}
	if cfg.Matching.Threshold != 0.4 || cfg.Matching.TopN != 5 || len(cfg.Matching.ExcludedMarkers) != 3 {
		t.Fatalf("unexpected matching defaults: %+v", cfg.Matching)
	}
	if cfg.Scan.Workers != 1 || !cfg.Scan.HashCache || cfg.Scan.Recursive {
		t.Fatalf("unexpected scan defaults: %+v", cfg.Scan)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if got := cfg.SelectedSystems(); len(got) != len(system.All()) {
		t.Fatalf("expected every system selected, got %v", got)
	}
}

func TestLoadProjectConfigFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	if err := os.WriteFile("romverify.toml", []byte("[scan]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "romverify.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Scan.Workers != 3 {
		t.Fatalf("Workers = %d, want 3", cfg.Scan.Workers)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("RA_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "romverify.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		RetroAchievements struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"retroachievements"`
		Matching struct {
			Threshold       float64  `toml:"threshold"`
			TopN            int      `toml:"top_n"`
			ExcludedMarkers []string `toml:"excluded_markers"`
		} `toml:"matching"`
		Scan struct {
			Systems []string `toml:"systems"`
			Workers int      `toml:"workers"`
		} `toml:"scan"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.RetroAchievements.APIKey = " abc123 "
	custom.RetroAchievements.BaseURL = "https://example.com/API/"
	custom.Matching.Threshold = 0.1
	custom.Matching.TopN = 1
	custom.Matching.ExcludedMarkers = []string{" ~Hack~ ", ""}
	custom.Scan.Systems = []string{"NDS", "gba", "nds"}
	custom.Scan.Workers = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.RetroAchievements.APIKey != "abc123" {
		t.Fatalf("expected trimmed key from file, got %q", cfg.RetroAchievements.APIKey)
	}
	if cfg.RetroAchievements.BaseURL != "https://example.com/API" {
		t.Fatalf("expected base url without trailing slash, got %q", cfg.RetroAchievements.BaseURL)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Matching.Threshold != 0.1 || cfg.Matching.TopN != 1 {
		t.Fatalf("unexpected matching: %+v", cfg.Matching)
	}
	if len(cfg.Matching.ExcludedMarkers) != 1 || cfg.Matching.ExcludedMarkers[0] != "~Hack~" {
		t.Fatalf("unexpected markers: %q", cfg.Matching.ExcludedMarkers)
	}
	got := cfg.SelectedSystems()
	if len(got) != 2 || got[0] != system.NDS || got[1] != system.GBA {
		t.Fatalf("SelectedSystems = %v", got)
	}
}

func TestEnvVarDoesNotOverrideConfigFileKey(t *testing.T) {
	t.Setenv("RA_API_KEY", "from-env")
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[retroachievements]\napi_key = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RetroAchievements.APIKey != "from-file" {
		t.Fatalf("expected file key to win, got %q", cfg.RetroAchievements.APIKey)
	}
}

func TestLoadRejectsUnknownKeysAndBadSyntax(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "[scan]\nthreads = 2\n"},
		{"syntax", "[scan\nworkers = 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
				t.Fatalf("expected parse error, got %v", err)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "RA_API_KEY") {
		t.Fatalf("sample config missing API key guidance: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	defaults := config.Default()
	if cfg.Matching.Threshold != defaults.Matching.Threshold || cfg.Matching.TopN != defaults.Matching.TopN {
		t.Fatalf("sample matching section diverges from defaults: %+v", cfg.Matching)
	}
	if !strings.Contains(cfg.Paths.DataDir, "romverify") {
		t.Fatalf("expected data dir to contain romverify, got %q", cfg.Paths.DataDir)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.CatalogDir(), cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"threshold above one", func(c *config.Config) { c.Matching.Threshold = 1.5 }},
		{"negative threshold", func(c *config.Config) { c.Matching.Threshold = -0.1 }},
		{"top n zero", func(c *config.Config) { c.Matching.TopN = 0 }},
		{"workers zero", func(c *config.Config) { c.Scan.Workers = 0 }},
		{"workers too many", func(c *config.Config) { c.Scan.Workers = 1000 }},
		{"unknown system", func(c *config.Config) { c.Scan.Systems = []string{"n64"} }},
		{"bad base url", func(c *config.Config) { c.RetroAchievements.BaseURL = "ftp://example.com" }},
		{"negative interval", func(c *config.Config) { c.RetroAchievements.MinRequestIntervalMS = -1 }},
		{"negative timeout", func(c *config.Config) { c.RetroAchievements.TimeoutSeconds = -5 }},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"empty data dir", func(c *config.Config) { c.Paths.DataDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/roms/../roms/gba")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "roms", "gba") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
}

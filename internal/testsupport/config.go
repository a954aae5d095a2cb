package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"romverify/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Logging goes to stderr only and the API key is empty unless set.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.RomsDir = filepath.Join(base, "roms")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = ""
	cfgVal.RetroAchievements.MinRequestIntervalMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithAPIKey sets the RetroAchievements key.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RetroAchievements.APIKey = key
	}
}

// WithBaseURL points the client at a test server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RetroAchievements.BaseURL = url
	}
}

// WithWorkers sets scan.workers.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.Workers = n
	}
}

// WithSystems restricts scan.systems.
func WithSystems(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.Systems = names
	}
}

// WithoutHashCache disables the SQLite hash memo.
func WithoutHashCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.HashCache = false
	}
}

// WriteConfig renders cfg as TOML under the test's temp directory and returns
// the file path, for commands that load configuration themselves.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return WriteFile(t, filepath.Join(t.TempDir(), "config.toml"), data)
}

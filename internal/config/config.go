package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	userConfigPath    = "~/.config/romverify/config.toml"
	projectConfigName = "romverify.toml"
)

// Paths contains directory configuration.
type Paths struct {
	RomsDir string `toml:"roms_dir"`
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// RetroAchievements contains web API settings.
type RetroAchievements struct {
	APIKey               string `toml:"api_key"`
	BaseURL              string `toml:"base_url"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	MinRequestIntervalMS int    `toml:"min_request_interval_ms"`
}

// Matching tunes how file names are linked to catalog titles.
type Matching struct {
	Threshold       float64  `toml:"threshold"`
	TopN            int      `toml:"top_n"`
	ExcludedMarkers []string `toml:"excluded_markers"`
}

// Scan controls file discovery and hashing.
type Scan struct {
	Recursive bool     `toml:"recursive"`
	Workers   int      `toml:"workers"`
	Systems   []string `toml:"systems"`
	HashCache bool     `toml:"hash_cache"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for romverify.
type Config struct {
	Paths             Paths             `toml:"paths"`
	RetroAchievements RetroAchievements `toml:"retroachievements"`
	Matching          Matching          `toml:"matching"`
	Scan              Scan              `toml:"scan"`
	Logging           Logging           `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(userConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(userConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, catalog and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.CatalogDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogDir is where downloaded game lists and the console table are kept.
func (c *Config) CatalogDir() string {
	return filepath.Join(c.Paths.DataDir, "catalogs")
}

// HashCachePath is the SQLite database remembering computed hashes.
func (c *Config) HashCachePath() string {
	return filepath.Join(c.Paths.DataDir, "hashes.db")
}

// LockPath is the run lock shared by commands that write caches.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "romverify.lock")
}

// RequestTimeout returns the HTTP timeout for catalog downloads.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RetroAchievements.TimeoutSeconds) * time.Second
}

// MinRequestInterval returns the minimum spacing between API requests.
func (c *Config) MinRequestInterval() time.Duration {
	return time.Duration(c.RetroAchievements.MinRequestIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

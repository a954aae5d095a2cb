package config

import (
	"errors"
	"fmt"
	"net/url"

	"romverify/internal/system"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRetroAchievements(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateRetroAchievements() error {
	parsed, err := url.Parse(c.RetroAchievements.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("retroachievements.base_url must be an http(s) URL, got %q", c.RetroAchievements.BaseURL)
	}
	if c.RetroAchievements.TimeoutSeconds < 0 {
		return errors.New("retroachievements.timeout_seconds must be positive")
	}
	if c.RetroAchievements.MinRequestIntervalMS < 0 {
		return errors.New("retroachievements.min_request_interval_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.Threshold < 0 || c.Matching.Threshold > 1 {
		return errors.New("matching.threshold must be between 0 and 1")
	}
	if c.Matching.TopN < 1 {
		return errors.New("matching.top_n must be at least 1")
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.Workers < 1 || c.Scan.Workers > maxScanWorkers {
		return fmt.Errorf("scan.workers must be between 1 and %d", maxScanWorkers)
	}
	for _, name := range c.Scan.Systems {
		if _, ok := system.Parse(name); !ok {
			return fmt.Errorf("scan.systems: unknown system %q", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// SelectedSystems resolves scan.systems. Empty means every supported system.
func (c *Config) SelectedSystems() []system.System {
	if len(c.Scan.Systems) == 0 {
		return system.All()
	}
	out := make([]system.System, 0, len(c.Scan.Systems))
	for _, name := range c.Scan.Systems {
		if sys, ok := system.Parse(name); ok {
			out = append(out, sys)
		}
	}
	return out
}

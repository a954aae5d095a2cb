package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRetroAchievements()
	c.normalizeMatching()
	c.normalizeScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.RomsDir, err = expandPath(strings.TrimSpace(c.Paths.RomsDir)); err != nil {
		return fmt.Errorf("paths.roms_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRetroAchievements() {
	if c.RetroAchievements.APIKey == "" {
		if value, ok := os.LookupEnv("RA_API_KEY"); ok {
			c.RetroAchievements.APIKey = value
		}
	}
	c.RetroAchievements.APIKey = strings.TrimSpace(c.RetroAchievements.APIKey)
	c.RetroAchievements.BaseURL = strings.TrimRight(strings.TrimSpace(c.RetroAchievements.BaseURL), "/")
	if c.RetroAchievements.BaseURL == "" {
		c.RetroAchievements.BaseURL = defaultRABaseURL
	}
	if c.RetroAchievements.TimeoutSeconds == 0 {
		c.RetroAchievements.TimeoutSeconds = defaultRATimeoutSeconds
	}
}

func (c *Config) normalizeMatching() {
	if c.Matching.TopN == 0 {
		c.Matching.TopN = defaultMatchTopN
	}
	markers := c.Matching.ExcludedMarkers[:0]
	for _, marker := range c.Matching.ExcludedMarkers {
		if marker = strings.TrimSpace(marker); marker != "" {
			markers = append(markers, marker)
		}
	}
	c.Matching.ExcludedMarkers = markers
}

func (c *Config) normalizeScan() {
	if c.Scan.Workers == 0 {
		c.Scan.Workers = defaultScanWorkers
	}
	systems := make([]string, 0, len(c.Scan.Systems))
	seen := make(map[string]struct{}, len(c.Scan.Systems))
	for _, name := range c.Scan.Systems {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		systems = append(systems, name)
	}
	c.Scan.Systems = systems
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

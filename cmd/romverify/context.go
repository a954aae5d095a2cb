package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"romverify/internal/config"
	"romverify/internal/hashcache"
	"romverify/internal/logging"
	"romverify/internal/matcher"
	"romverify/internal/retroachievements"
	"romverify/internal/romhash"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("setup logging: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// catalogCache returns the on-disk catalog cache. Without an API key the
// cache can only serve documents already downloaded.
func (c *commandContext) catalogCache(cfg *config.Config, logger *slog.Logger) *retroachievements.Cache {
	var fetcher retroachievements.Fetcher
	client, err := retroachievements.New(
		cfg.RetroAchievements.APIKey,
		cfg.RetroAchievements.BaseURL,
		retroachievements.WithHTTPClient(newHTTPClient(cfg)),
		retroachievements.WithMinInterval(cfg.MinRequestInterval()),
		retroachievements.WithLogger(logger),
	)
	switch {
	case err == nil:
		fetcher = client
	case errors.Is(err, retroachievements.ErrMissingAPIKey):
		logger.Debug("no api key configured; catalog downloads disabled")
	default:
		logger.Warn("retroachievements client unavailable", logging.Error(err))
	}
	return retroachievements.NewCache(cfg.CatalogDir(), fetcher, logger)
}

// hashEngine returns a hash engine, memoized through the SQLite cache when
// scan.hash_cache is enabled. The returned close function is never nil.
func (c *commandContext) hashEngine(cfg *config.Config, logger *slog.Logger) (*romhash.Engine, func(), error) {
	if !cfg.Scan.HashCache {
		return romhash.NewEngine(romhash.WithLogger(logger)), func() {}, nil
	}
	memo, err := hashcache.Open(cfg.HashCachePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open hash cache: %w", err)
	}
	closeFn := func() {
		if err := memo.Close(); err != nil {
			logger.Warn("hash cache close failed", logging.Error(err))
		}
	}
	return romhash.NewEngine(romhash.WithMemo(memo), romhash.WithLogger(logger)), closeFn, nil
}

// acquireLock takes the data directory lock so concurrent runs do not write
// the same caches.
func (c *commandContext) acquireLock(cfg *config.Config) (func(), error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another romverify run holds %s", cfg.LockPath())
	}
	return func() { _ = lock.Unlock() }, nil
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout()}
}

func matcherFromConfig(cfg *config.Config, legacy bool) matcher.Matcher {
	if legacy {
		return matcher.Legacy()
	}
	return matcher.Matcher{
		Threshold:       cfg.Matching.Threshold,
		TopN:            cfg.Matching.TopN,
		ExcludedMarkers: cfg.Matching.ExcludedMarkers,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

package config

const (
	defaultRomsDir              = "~/roms"
	defaultDataDir              = "~/.local/share/romverify"
	defaultLogDir               = "~/.local/share/romverify/logs"
	defaultRABaseURL            = "https://retroachievements.org/API"
	defaultRATimeoutSeconds     = 30
	defaultRAMinRequestInterval = 500
	defaultMatchThreshold       = 0.4
	defaultMatchTopN            = 5
	defaultScanWorkers          = 1
	maxScanWorkers              = 64
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RomsDir: defaultRomsDir,
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		RetroAchievements: RetroAchievements{
			BaseURL:              defaultRABaseURL,
			TimeoutSeconds:       defaultRATimeoutSeconds,
			MinRequestIntervalMS: defaultRAMinRequestInterval,
		},
		Matching: Matching{
			Threshold:       defaultMatchThreshold,
			TopN:            defaultMatchTopN,
			ExcludedMarkers: []string{"[Subset", "~Hack~", "~Homebrew~"},
		},
		Scan: Scan{
			Workers:   defaultScanWorkers,
			HashCache: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

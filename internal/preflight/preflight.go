package preflight

import (
	"context"
	"log/slog"

	"romverify/internal/config"
	"romverify/internal/retroachievements"
)

// minFreeBytes is the free space wanted under data_dir for catalog downloads
// and the hash cache.
const minFreeBytes = 64 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options tunes RunAll.
type Options struct {
	// Offline skips the API reachability check.
	Offline bool
	Logger  *slog.Logger
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckFreeSpace("Data free space", cfg.Paths.DataDir, minFreeBytes),
		CheckReadable("Roms directory", cfg.Paths.RomsDir),
	}

	cache := retroachievements.NewCache(cfg.CatalogDir(), nil, opts.Logger)
	results = append(results, CheckCatalogs(ctx, cache, cfg.SelectedSystems()))

	switch {
	case cfg.RetroAchievements.APIKey == "":
		results = append(results, Result{Name: apiCheckName, Detail: "API key missing (set retroachievements.api_key or RA_API_KEY)"})
	case opts.Offline:
		results = append(results, Result{Name: apiCheckName, Passed: true, Detail: "skipped (offline)"})
	default:
		results = append(results, CheckRetroAchievements(ctx, cfg))
	}
	return results
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	var n int
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

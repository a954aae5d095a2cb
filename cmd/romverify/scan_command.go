package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"romverify/internal/catalog"
	"romverify/internal/config"
	"romverify/internal/fileutil"
	"romverify/internal/logging"
	"romverify/internal/pipeline"
	"romverify/internal/retroachievements"
	"romverify/internal/system"
)

type scanOptions struct {
	jsonOutput bool
	offline    bool
	refresh    bool
	recursive  bool
	legacy     bool
	workers    int
	systems    []string
}

type scanReport struct {
	RunID   string            `json:"run_id"`
	Root    string            `json:"root"`
	Summary pipeline.Summary  `json:"summary"`
	Results []pipeline.Result `json:"results"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Identify every ROM in a directory (or a single file)",
		Long: `Classify, hash and match ROM files against the cached RetroAchievements
catalogs. Without a path the configured paths.roms_dir is scanned.

Examples:
  romverify scan                      # Scan paths.roms_dir
  romverify scan ~/roms/gba --json    # Machine-readable output
  romverify scan --offline            # Never download catalogs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("recursive") {
				cfg.Scan.Recursive = opts.recursive
			}
			if cmd.Flags().Changed("workers") {
				cfg.Scan.Workers = opts.workers
			}
			if cmd.Flags().Changed("system") {
				cfg.Scan.Systems = opts.systems
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			root := cfg.Paths.RomsDir
			if len(args) > 0 {
				if root, err = config.ExpandPath(strings.TrimSpace(args[0])); err != nil {
					return fmt.Errorf("resolve scan path: %w", err)
				}
			}
			paths, err := scanPaths(root, cfg.Scan.Recursive)
			if err != nil {
				return err
			}
			return runScan(cmd, ctx, cfg, root, paths, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Write results as JSON")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use cached catalogs only")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Download catalogs even when cached")
	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().BoolVar(&opts.legacy, "legacy-matching", false, "Use the permissive single-candidate matcher")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 1, "Files processed concurrently")
	cmd.Flags().StringSliceVarP(&opts.systems, "system", "s", nil, "Restrict to systems ("+systemNames(system.All())+")")
	cmd.MarkFlagsMutuallyExclusive("offline", "refresh")
	return cmd
}

func scanPaths(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat scan path: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}
	return fileutil.Discover(root, recursive)
}

func runScan(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, root string, paths []string, opts scanOptions) error {
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	runID := logging.NewRunID()
	runCtx := logging.WithRunID(cmd.Context(), runID)
	logger = logging.NewComponentLogger(logger, "scan")

	unlock, err := ctx.acquireLock(cfg)
	if err != nil {
		return err
	}
	defer unlock()

	systems := cfg.SelectedSystems()
	cache := ctx.catalogCache(cfg, logger)
	catalogs, err := cache.LoadCatalogs(runCtx, systems, retroachievements.LoadOptions{
		Refresh: opts.refresh,
		Offline: opts.offline,
	})
	switch {
	case errors.Is(err, retroachievements.ErrNoCatalogs):
		logging.WarnWithContext(runCtx, logger, "no catalogs loaded", "catalogs_missing",
			logging.String(logging.FieldErrorHint, "run 'romverify catalog fetch' with an API key configured"),
			logging.String(logging.FieldImpact, "files are classified and hashed but never matched"),
		)
		catalogs = catalog.Set{}
	case err != nil:
		return fmt.Errorf("load catalogs: %w", err)
	}

	engine, closeEngine, err := ctx.hashEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	p := pipeline.New(catalogs,
		pipeline.WithLogger(logger),
		pipeline.WithMatcher(matcherFromConfig(cfg, opts.legacy)),
		pipeline.WithHasher(engine),
		pipeline.WithWorkers(cfg.Scan.Workers),
		pipeline.WithSystems(systems...),
	)

	logger.InfoContext(runCtx, "scan started",
		logging.String(logging.FieldPath, root),
		logging.Int("files", len(paths)),
		logging.Int("catalogs", len(catalogs)),
		logging.Int("workers", cfg.Scan.Workers),
	)
	started := time.Now()
	results, err := p.Run(runCtx, paths)
	if err != nil {
		return err
	}
	summary := pipeline.Summarize(results)
	logger.InfoContext(runCtx, "scan finished",
		logging.Int("files", summary.Total),
		logging.Int("matched", summary.Matched),
		logging.Int("confirmed", summary.Confirmed),
		logging.Duration("elapsed", time.Since(started)),
	)

	if opts.jsonOutput {
		return writeJSON(cmd, scanReport{RunID: runID, Root: root, Summary: summary, Results: results})
	}
	renderScan(cmd, results, summary)
	return nil
}

func renderScan(cmd *cobra.Command, results []pipeline.Result, summary pipeline.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if !r.System.Valid() {
			continue
		}
		score := ""
		if r.Matched() {
			score = fmt.Sprintf("%.2f", r.Score)
		}
		rows = append(rows, []string{
			r.FileName,
			r.System.String(),
			r.MatchedTitle,
			score,
			resultStatusText(r, colorize),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"File", "System", "Title", "Score", "Status"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "%d files, %d recognized, %d matched, %d confirmed\n",
		summary.Total, summary.Classified, summary.Matched, summary.Confirmed)
}

func resultStatus(r pipeline.Result) statusKind {
	switch {
	case r.Confirmed:
		return statusOK
	case r.Matched():
		return statusWarn
	case r.Error != "":
		return statusError
	default:
		return statusInfo
	}
}

func resultStatusText(r pipeline.Result, colorize bool) string {
	kind := resultStatus(r)
	var label string
	switch kind {
	case statusOK:
		label = "confirmed"
	case statusWarn:
		label = "name only"
	case statusError:
		label = "error: " + r.Error
	default:
		label = "no match"
		if r.Note != "" {
			label += " (" + r.Note + ")"
		}
	}
	return colorizeStatus(label, kind, colorize)
}

// systemNames renders systems for help and error text.
func systemNames(systems []system.System) string {
	names := make([]string, len(systems))
	for i, sys := range systems {
		names[i] = sys.String()
	}
	return strings.Join(names, ", ")
}

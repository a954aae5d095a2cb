package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"romverify/internal/bytesource"
	"romverify/internal/catalog"
	"romverify/internal/logging"
	"romverify/internal/matcher"
	"romverify/internal/romhash"
	"romverify/internal/system"
)

// Hasher computes the catalog hash of a classified file. *romhash.Engine
// implements it.
type Hasher interface {
	Hash(ctx context.Context, path string, sys system.System) (string, error)
}

var _ Hasher = (*romhash.Engine)(nil)

// Pipeline identifies ROM files against a read-only catalog set.
type Pipeline struct {
	catalogs catalog.Set
	matcher  matcher.Matcher
	hasher   Hasher
	systems  []system.System
	workers  int
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMatcher overrides matcher.Default.
func WithMatcher(m matcher.Matcher) Option {
	return func(p *Pipeline) {
		p.matcher = m
	}
}

// WithHasher overrides the plain romhash engine.
func WithHasher(h Hasher) Option {
	return func(p *Pipeline) {
		if h != nil {
			p.hasher = h
		}
	}
}

// WithWorkers sets how many files are processed at once. Values below one
// mean one.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = max(n, 1)
	}
}

// WithSystems limits hashing and matching to systems. Files of other systems
// are still classified and reported.
func WithSystems(systems ...system.System) Option {
	return func(p *Pipeline) {
		p.systems = slices.Clone(systems)
	}
}

// New builds a Pipeline over catalogs.
func New(catalogs catalog.Set, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalogs: catalogs,
		matcher:  matcher.Default(),
		workers:  1,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	if p.hasher == nil {
		p.hasher = romhash.NewEngine(romhash.WithLogger(p.logger))
	}
	return p
}

// Run processes paths and returns one Result per path in the same order.
// It returns early only when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, paths []string) ([]Result, error) {
	roms := make([]Rom, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			roms[i] = p.Process(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(roms))
	for i, rom := range roms {
		results[i] = p.Result(rom)
	}
	return results, nil
}

// Process identifies a single file.
func (p *Pipeline) Process(ctx context.Context, path string) Rom {
	rom := Rom{Path: path, FileName: filepath.Base(path), MatchIndex: -1}
	logger := p.logger.With(logging.String(logging.FieldPath, path))

	sys, err := system.ClassifyErr(path)
	if err != nil {
		logger.DebugContext(ctx, "file skipped", logging.Error(err))
		rom.Note = "unrecognized file"
		return rom
	}
	rom.System = sys
	logger = logger.With(logging.String(logging.FieldSystem, sys.String()))

	if !p.selected(sys) {
		logger.DebugContext(ctx, "system not selected")
		rom.Note = "system not selected"
		return rom
	}

	hash, err := p.hasher.Hash(ctx, path, sys)
	if err != nil {
		rom.HashErr = err
		logging.WarnWithContext(ctx, logger, "rom hash failed", "rom_hash_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hashHint(err)),
			logging.String(logging.FieldImpact, "file can match by name but cannot be confirmed"),
		)
	} else {
		rom.Hash = hash
	}

	cat, ok := p.catalogs.Get(sys)
	if !ok {
		logger.DebugContext(ctx, "no catalog for system")
		rom.Note = "no catalog for " + sys.String()
		return rom
	}

	match := p.matcher.Match(rom.FileName, rom.Hash, cat.Entries)
	rom.MatchIndex = match.Index
	rom.Confirmed = match.Confirmed
	rom.Score = match.Score

	switch {
	case match.Confirmed:
		logger.InfoContext(ctx, "rom identified",
			logging.String("title", match.Entry.Title),
			logging.Int("game_id", match.Entry.ID),
			logging.Float64("score", match.Score),
		)
	case match.Matched():
		logger.InfoContext(ctx, "rom matched by name only",
			logging.String("title", match.Entry.Title),
			logging.Float64("score", match.Score),
			logging.String("hash", rom.Hash),
		)
	default:
		logger.DebugContext(ctx, "no catalog match")
	}
	return rom
}

// Result renders rom for output, resolving its catalog entry.
func (p *Pipeline) Result(rom Rom) Result {
	res := Result{
		FileName:  rom.FileName,
		Path:      rom.Path,
		System:    rom.System,
		Confirmed: rom.Confirmed,
		Hash:      rom.Hash,
		Score:     rom.Score,
		Note:      rom.Note,
	}
	if entry := rom.Entry(p.catalogs); entry != nil {
		res.MatchedTitle = entry.Title
		res.MatchedID = entry.ID
	}
	if rom.HashErr != nil {
		res.Error = rom.HashErr.Error()
	}
	return res
}

func (p *Pipeline) selected(sys system.System) bool {
	return len(p.systems) == 0 || slices.Contains(p.systems, sys)
}

func hashHint(err error) string {
	switch {
	case errors.Is(err, romhash.ErrMalformedHeader):
		return "file does not look like a valid dump; re-dump or replace it"
	case errors.Is(err, bytesource.ErrEmptyArchive):
		return "archive contains no files"
	case errors.Is(err, bytesource.ErrArchive):
		return "archive could not be read; re-create it or extract the ROM"
	default:
		return "check file permissions and disk health"
	}
}

package romhash

import (
	"context"
	"log/slog"
	"os"

	"romverify/internal/hashcache"
	"romverify/internal/logging"
	"romverify/internal/system"
)

// Memo remembers hashes of files that have not changed since they were hashed.
type Memo interface {
	Lookup(ctx context.Context, key hashcache.Key) (string, bool, error)
	Store(ctx context.Context, key hashcache.Key, hash string) error
}

// Engine wraps Compute with an optional memo.
type Engine struct {
	memo   Memo
	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMemo enables hash reuse for unchanged files.
func WithMemo(memo Memo) EngineOption {
	return func(e *Engine) {
		e.memo = memo
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds an Engine. Without options it is equivalent to Compute.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "romhash")
	return e
}

// Hash returns the catalog hash for path, consulting the memo first. Memo
// failures are logged and never fail the hash.
func (e *Engine) Hash(ctx context.Context, path string, sys system.System) (string, error) {
	if e == nil || e.memo == nil {
		return Compute(path, sys)
	}

	key, keyErr := memoKey(path, sys)
	if keyErr == nil {
		cached, ok, err := e.memo.Lookup(ctx, key)
		if err != nil {
			e.logger.Debug("hash cache lookup failed", logging.String("path", path), logging.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	sum, err := Compute(path, sys)
	if err != nil {
		return "", err
	}
	if keyErr == nil {
		if err := e.memo.Store(ctx, key, sum); err != nil {
			e.logger.Debug("hash cache store failed", logging.String("path", path), logging.Error(err))
		}
	}
	return sum, nil
}

func memoKey(path string, sys system.System) (hashcache.Key, error) {
	info, err := os.Stat(path)
	if err != nil {
		return hashcache.Key{}, err
	}
	return hashcache.Key{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		System:  sys.String(),
	}, nil
}

package system

import (
	"errors"
	"fmt"
	"os"

	"romverify/internal/bytesource"
)

// ErrUnrecognized is returned when no system claims a path.
var ErrUnrecognized = errors.New("unrecognized rom type")

// Classify maps path to a system, or reports false when it cannot be
// classified. Callers skip unclassified files.
func Classify(path string) (System, bool) {
	s, err := ClassifyErr(path)
	return s, err == nil
}

// ClassifyErr is Classify with the reason for a failed classification.
//
// The file extension is checked first so plain ROMs are never opened. Archives
// whose own extension claims no system are listed, and the first member whose
// extension belongs to a system decides the result.
func ClassifyErr(path string) (System, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Unknown, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return Unknown, fmt.Errorf("%w: %s is not a regular file", ErrUnrecognized, path)
	}

	ext := bytesource.Ext(path)
	if s, ok := ForExtension(ext); ok {
		return s, nil
	}
	if !bytesource.IsArchive(path) {
		return Unknown, fmt.Errorf("%w: extension %q", ErrUnrecognized, ext)
	}

	names, err := bytesource.Entries(path)
	if err != nil {
		return Unknown, err
	}
	for _, name := range names {
		if s, ok := ForExtension(bytesource.Ext(name)); ok {
			return s, nil
		}
	}
	return Unknown, fmt.Errorf("%w: no rom inside %s", ErrUnrecognized, path)
}

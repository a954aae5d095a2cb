package romhash

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"slices"

	"romverify/internal/bytesource"
	"romverify/internal/system"
)

var (
	// ErrMalformedHeader marks DS images whose header points outside the file
	// or that are not DS images at all.
	ErrMalformedHeader = errors.New("malformed rom header")
	// ErrUnsupportedSystem is returned for systems without a hash strategy.
	ErrUnsupportedSystem = errors.New("unsupported system")
)

type strategy func(path string, sys system.System) (string, error)

var strategies = map[system.HashMethod]strategy{
	system.HashWholeContent:  wholeContentHash,
	system.HashStructuredNDS: ndsHash,
}

// Compute returns the catalog hash of the ROM at path for sys.
func Compute(path string, sys system.System) (string, error) {
	if !sys.Valid() {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedSystem, sys)
	}
	fn, ok := strategies[sys.HashMethod()]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedSystem, sys)
	}
	return fn(path, sys)
}

// HashBytes renders the digest of data the same way Compute does.
func HashBytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func newDigest() hash.Hash { return md5.New() }

func render(h hash.Hash) string { return hex.EncodeToString(h.Sum(nil)) }

func wholeContentHash(path string, sys system.System) (string, error) {
	innerExt, err := archiveEntryExtension(path, sys)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	src, err := bytesource.Open(path, innerExt)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer src.Close()

	h := newDigest()
	if _, err := io.Copy(h, io.NewSectionReader(src, 0, src.Size())); err != nil {
		return "", fmt.Errorf("hash %s: read: %w", path, err)
	}
	return render(h), nil
}

// archiveEntryExtension picks the archive member to hash: the system's own
// inner extension when it has one, otherwise the first member carrying one of
// the system's extensions. An empty result selects the first member.
func archiveEntryExtension(path string, sys system.System) (string, error) {
	if ext := sys.InnerExtension(); ext != "" || !bytesource.IsArchive(path) {
		return ext, nil
	}
	names, err := bytesource.Entries(path)
	if err != nil {
		return "", err
	}
	exts := sys.Extensions()
	for _, name := range names {
		if ext := bytesource.Ext(name); slices.Contains(exts, ext) {
			return ext, nil
		}
	}
	return "", nil
}

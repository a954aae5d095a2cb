package bytesource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrArchive marks archives that cannot be opened or enumerated.
	ErrArchive = errors.New("archive error")
	// ErrEmptyArchive is returned for archives without any file entries.
	ErrEmptyArchive = fmt.Errorf("%w: archive is empty", ErrArchive)
	// ErrNoMatchingEntry is returned when a required inner file is missing.
	ErrNoMatchingEntry = fmt.Errorf("%w: no matching entry", ErrArchive)
	// ErrTruncatedRead is returned when fewer bytes exist than were requested.
	ErrTruncatedRead = errors.New("truncated read")
)

// Source is a finite, random-access byte stream.
type Source interface {
	io.ReaderAt
	// ReadExact returns exactly length bytes starting at offset.
	ReadExact(offset int64, length int) ([]byte, error)
	// Size reports the total number of bytes available.
	Size() int64
	// Name is the file or archive entry name backing the source.
	Name() string
	Close() error
}

// Open returns a Source for path. Archive paths expose a single entry: the
// first file when innerExt is empty, otherwise the first file whose extension
// equals innerExt (compared case-insensitively, without the dot).
func Open(path string, innerExt string) (Source, error) {
	if format, ok := archiveFormatFor(path); ok {
		return openArchiveEntry(format, path, normalizeExt(innerExt))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &fileSource{file: file, size: info.Size(), name: filepath.Base(path)}, nil
}

// Ext returns the lowercased extension of name without the leading dot.
func Ext(name string) string {
	return normalizeExt(filepath.Ext(name))
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

type fileSource struct {
	file *os.File
	size int64
	name string
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) { return s.file.ReadAt(p, off) }

func (s *fileSource) ReadExact(offset int64, length int) ([]byte, error) {
	return readExact(s, s.size, offset, length)
}

func (s *fileSource) Size() int64  { return s.size }
func (s *fileSource) Name() string { return s.name }
func (s *fileSource) Close() error { return s.file.Close() }

type memorySource struct {
	reader *bytes.Reader
	name   string
}

func newMemorySource(name string, data []byte) *memorySource {
	return &memorySource{reader: bytes.NewReader(data), name: name}
}

func (s *memorySource) ReadAt(p []byte, off int64) (int, error) { return s.reader.ReadAt(p, off) }

func (s *memorySource) ReadExact(offset int64, length int) ([]byte, error) {
	return readExact(s, s.reader.Size(), offset, length)
}

func (s *memorySource) Size() int64  { return s.reader.Size() }
func (s *memorySource) Name() string { return s.name }
func (s *memorySource) Close() error { return nil }

func readExact(r io.ReaderAt, size, offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("%w: offset %d length %d", ErrTruncatedRead, offset, length)
	}
	if offset > size || int64(length) > size-offset {
		return nil, fmt.Errorf("%w: need %d bytes at offset %#x, source has %d", ErrTruncatedRead, length, offset, size)
	}
	buf := make([]byte, length)
	n, err := r.ReadAt(buf, offset)
	if n == length {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: read %d of %d bytes at offset %#x", ErrTruncatedRead, n, length, offset)
	}
	return nil, fmt.Errorf("read at offset %#x: %w", offset, err)
}

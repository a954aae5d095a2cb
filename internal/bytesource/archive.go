package bytesource

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/bodgit/sevenzip"
)

type archiveFormat string

const (
	formatZip      archiveFormat = "zip"
	formatSevenZip archiveFormat = "7z"
)

var archiveFormats = map[string]archiveFormat{
	"zip": formatZip,
	"7z":  formatSevenZip,
}

// IsArchive reports whether path carries a supported archive extension.
func IsArchive(name string) bool {
	_, ok := archiveFormatFor(name)
	return ok
}

// ArchiveExtensions lists the supported archive extensions in sorted order.
func ArchiveExtensions() []string {
	exts := make([]string, 0, len(archiveFormats))
	for ext := range archiveFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Entries returns the names of the file entries inside the archive at path,
// in archive order. Directory entries are omitted.
func Entries(path string) ([]string, error) {
	format, ok := archiveFormatFor(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a supported archive", ErrArchive, path)
	}
	arc, err := openArchive(format, path)
	if err != nil {
		return nil, err
	}
	defer arc.Close()

	names := make([]string, 0, len(arc.entries))
	for _, entry := range arc.entries {
		names = append(names, entry.name)
	}
	return names, nil
}

func archiveFormatFor(name string) (archiveFormat, bool) {
	format, ok := archiveFormats[Ext(name)]
	return format, ok
}

type archiveEntry struct {
	name string
	open func() (io.ReadCloser, error)
}

type openedArchive struct {
	entries []archiveEntry
	closer  io.Closer
}

func (a *openedArchive) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func openArchive(format archiveFormat, archivePath string) (*openedArchive, error) {
	switch format {
	case formatZip:
		reader, err := zip.OpenReader(archivePath)
		if err != nil {
			return nil, fmt.Errorf("%w: open zip %s: %v", ErrArchive, archivePath, err)
		}
		entries := make([]archiveEntry, 0, len(reader.File))
		for _, f := range reader.File {
			if f.FileInfo().IsDir() {
				continue
			}
			entries = append(entries, archiveEntry{name: f.Name, open: f.Open})
		}
		return &openedArchive{entries: entries, closer: reader}, nil
	case formatSevenZip:
		reader, err := sevenzip.OpenReader(archivePath)
		if err != nil {
			return nil, fmt.Errorf("%w: open 7z %s: %v", ErrArchive, archivePath, err)
		}
		entries := make([]archiveEntry, 0, len(reader.File))
		for _, f := range reader.File {
			if f.FileInfo().IsDir() {
				continue
			}
			entries = append(entries, archiveEntry{name: f.Name, open: f.Open})
		}
		return &openedArchive{entries: entries, closer: reader}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported archive format %q", ErrArchive, format)
	}
}

func openArchiveEntry(format archiveFormat, archivePath, innerExt string) (Source, error) {
	arc, err := openArchive(format, archivePath)
	if err != nil {
		return nil, err
	}
	defer arc.Close()

	if len(arc.entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyArchive, archivePath)
	}

	selected := -1
	for i, entry := range arc.entries {
		if innerExt == "" || Ext(entry.name) == innerExt {
			selected = i
			break
		}
	}
	if selected < 0 {
		return nil, fmt.Errorf("%w: no .%s file in %s", ErrNoMatchingEntry, innerExt, archivePath)
	}

	entry := arc.entries[selected]
	rc, err := entry.open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s in %s: %v", ErrArchive, entry.name, archivePath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: extract %s from %s: %v", ErrArchive, entry.name, archivePath, err)
	}
	return newMemorySource(path.Base(entry.name), data), nil
}

package catalog

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"romverify/internal/system"
)

// Entry is one game in a console's catalog.
type Entry struct {
	ID              int      `json:"ID"`
	Title           string   `json:"Title"`
	ConsoleID       int      `json:"ConsoleID"`
	ConsoleName     string   `json:"ConsoleName"`
	ImageIcon       string   `json:"ImageIcon"`
	NumAchievements int      `json:"NumAchievements"`
	NumLeaderboards int      `json:"NumLeaderboards"`
	Points          int      `json:"Points"`
	DateModified    string   `json:"DateModified"`
	ForumTopicID    int      `json:"ForumTopicID"`
	Hashes          []string `json:"Hashes"`
}

// HasHash reports whether hash equals one of the entry's hashes exactly.
func (e Entry) HasHash(hash string) bool {
	if hash == "" {
		return false
	}
	return slices.Contains(e.Hashes, hash)
}

// Catalog is the ordered game list of one system.
type Catalog struct {
	System    system.System
	ConsoleID int
	Entries   []Entry
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Entries)
}

// Entry returns the entry at index i, or nil when i is out of range.
func (c *Catalog) Entry(i int) *Entry {
	if c == nil || i < 0 || i >= len(c.Entries) {
		return nil
	}
	return &c.Entries[i]
}

// Titles returns entry titles in catalog order.
func (c *Catalog) Titles() []string {
	if c == nil {
		return nil
	}
	titles := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		titles[i] = e.Title
	}
	return titles
}

// HashCount returns the total number of hashes across all entries.
func (c *Catalog) HashCount() int {
	if c == nil {
		return 0
	}
	var n int
	for _, e := range c.Entries {
		n += len(e.Hashes)
	}
	return n
}

// Set holds one catalog per system.
type Set map[system.System]*Catalog

// Get returns the catalog for sys, if loaded.
func (s Set) Get(sys system.System) (*Catalog, bool) {
	c, ok := s[sys]
	return c, ok && c != nil
}

// Systems returns the loaded systems in classification order.
func (s Set) Systems() []system.System {
	var out []system.System
	for _, sys := range system.All() {
		if _, ok := s.Get(sys); ok {
			out = append(out, sys)
		}
	}
	return out
}

// DecodeEntries parses a game list document. Hashes are lowercased.
func DecodeEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode game list: %w", err)
	}
	for i := range entries {
		for j, h := range entries[i].Hashes {
			entries[i].Hashes[j] = strings.ToLower(strings.TrimSpace(h))
		}
	}
	return entries, nil
}

// LoadFile reads a cached game list for sys.
func LoadFile(path string, sys system.System, consoleID int) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	entries, err := DecodeEntries(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Catalog{System: sys, ConsoleID: consoleID, Entries: entries}, nil
}
